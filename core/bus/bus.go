// Package bus defines the outbound boundary between the allocation controller
// and the simulation message fabric.
package bus

import "github.com/gridsim/chargealloc/core/model"

// Publisher sends controller results to the other simulation participants.
// Implementations exist for MQTT and for the in-process fabric used by the
// simulate command and the tests.
type Publisher interface {
	// PublishAssignment emits one per-station power assignment.
	PublishAssignment(epoch int64, a model.PowerAssignment) error

	// PublishWarning emits the feasibility warning for the epoch.
	PublishWarning(epoch int64, w model.FeasibilityWarning) error

	// PublishError emits an error notification toward the runtime.
	PublishError(epoch int64, reason string) error

	// PublishReady signals that the controller has finished the epoch.
	PublishReady(epoch int64) error
}
