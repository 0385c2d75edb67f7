package metrics

import coremetrics "github.com/gridsim/chargealloc/core/metrics"

// MultiSink fans allocation events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAssignments forwards to all sinks, returning the first error.
func (m *MultiSink) RecordAssignments(events []coremetrics.AssignmentEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAssignments(events); err != nil {
			return err
		}
	}
	return nil
}

// RecordFeasibility forwards to all sinks, returning the first error.
func (m *MultiSink) RecordFeasibility(ev coremetrics.FeasibilityEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordFeasibility(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordEpoch forwards to all sinks, returning the first error.
func (m *MultiSink) RecordEpoch(ev coremetrics.EpochEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordEpoch(ev); err != nil {
			return err
		}
	}
	return nil
}
