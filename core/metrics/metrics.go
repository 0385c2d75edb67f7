// Package metrics defines the observability events produced by the
// allocation controller and the sink interface infra implementations satisfy.
package metrics

import "time"

// AssignmentEvent is one per-station allocation result to be recorded.
type AssignmentEvent struct {
	Epoch     int64
	StationID string
	VehicleID string
	PowerKW   float64
	Time      time.Time
}

// FeasibilityEvent captures the outcome of one feasibility projection.
type FeasibilityEvent struct {
	Epoch        int64
	RequiredKWh  float64
	AvailableKWh float64
	AvailablePct float64
	Affected     int
	Short        bool
	Time         time.Time
}

// EpochEvent summarises a completed allocation pass.
type EpochEvent struct {
	Epoch        int64
	Stations     int
	TotalPowerKW float64
	Time         time.Time
}

// MetricsSink records allocation events for observability purposes.
type MetricsSink interface {
	RecordAssignments(events []AssignmentEvent) error
	RecordFeasibility(ev FeasibilityEvent) error
	RecordEpoch(ev EpochEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordAssignments([]AssignmentEvent) error { return nil }
func (NopSink) RecordFeasibility(FeasibilityEvent) error  { return nil }
func (NopSink) RecordEpoch(EpochEvent) error              { return nil }
