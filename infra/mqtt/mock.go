package mqtt

import (
	"sync"

	"github.com/gridsim/chargealloc/core/model"
)

// MockPublisher records outbound controller messages for tests.
type MockPublisher struct {
	mu          sync.Mutex
	Assignments []model.PowerAssignment
	Warnings    []model.FeasibilityWarning
	Errors      []string
	ReadyEpochs []int64

	// FailStations makes PublishAssignment fail for the listed station ids.
	FailStations map[string]bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailStations: make(map[string]bool)}
}

// PublishAssignment records the assignment or fails if configured to.
func (m *MockPublisher) PublishAssignment(_ int64, a model.PowerAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStations[a.StationID] {
		return errPublishFailed
	}
	m.Assignments = append(m.Assignments, a)
	return nil
}

// PublishWarning records the warning.
func (m *MockPublisher) PublishWarning(_ int64, w model.FeasibilityWarning) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Warnings = append(m.Warnings, w)
	return nil
}

// PublishError records the error notification.
func (m *MockPublisher) PublishError(_ int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, reason)
	return nil
}

// PublishReady records the epoch-complete signal.
func (m *MockPublisher) PublishReady(epoch int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadyEpochs = append(m.ReadyEpochs, epoch)
	return nil
}
