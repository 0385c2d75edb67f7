package model

import (
	"fmt"
	"math"
)

// NoVehicle is the sentinel vehicle reference used when a station receives an
// explicit zero-power assignment because no eligible vehicle was connected.
const NoVehicle = "none"

// PowerAssignment is the per-station allocation result. Exactly one is
// emitted per announced station per epoch.
type PowerAssignment struct {
	StationID string
	VehicleID string // NoVehicle when the station had no eligible vehicle
	PowerKW   float64
}

// Validate checks the assignment's own validity constraints before it is
// handed to the transport.
func (a PowerAssignment) Validate() error {
	if a.StationID == "" {
		return fmt.Errorf("assignment without station id")
	}
	if a.VehicleID == "" {
		return fmt.Errorf("assignment without vehicle reference")
	}
	if math.IsNaN(a.PowerKW) || math.IsInf(a.PowerKW, 0) || a.PowerKW < 0 {
		return fmt.Errorf("invalid power value %v for station %s", a.PowerKW, a.StationID)
	}
	return nil
}

// FeasibilityWarning reports that the projected deliverable energy over the
// remaining horizon does not cover the outstanding charging requirements.
type FeasibilityWarning struct {
	// AvailablePct is 100 * available / required energy.
	AvailablePct float64
	// Affected lists the owner references of the vehicles at risk.
	Affected []string
}

// Validate checks the warning before transmission.
func (w FeasibilityWarning) Validate() error {
	if len(w.Affected) == 0 {
		return fmt.Errorf("warning without affected participants")
	}
	if math.IsNaN(w.AvailablePct) || math.IsInf(w.AvailablePct, 0) || w.AvailablePct < 0 {
		return fmt.Errorf("invalid availability percentage %v", w.AvailablePct)
	}
	return nil
}

// ErrorNotification reports a non-fatal controller error toward the runtime.
type ErrorNotification struct {
	Epoch  int64
	Reason string
}

// FeasibilityCheck is the transient outcome of one feasibility projection.
type FeasibilityCheck struct {
	RequiredKWh  float64
	AvailableKWh float64
	Affected     []string
}

// Short reports whether the projection found an energy shortfall worth
// warning about.
func (c FeasibilityCheck) Short() bool {
	return len(c.Affected) > 0 && c.RequiredKWh > 0 && c.AvailableKWh < c.RequiredKWh
}

// AvailablePct returns the available energy as a percentage of the required
// energy.
func (c FeasibilityCheck) AvailablePct() float64 {
	if c.RequiredKWh == 0 {
		return 0
	}
	return 100 * c.AvailableKWh / c.RequiredKWh
}
