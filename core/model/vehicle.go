package model

import (
	"fmt"
	"time"
)

// Vehicle represents a charging session participant. A vehicle is created on
// its first metadata report and lives for the whole simulation run.
type Vehicle struct {
	ID         string
	Name       string
	Owner      string // identifier of the owning simulation participant
	StationID  string
	CarModel   string
	SoC        float64 // state of charge in percent, 0-100
	BatteryKWh float64 // total battery capacity in kWh
	MaxPower   float64 // max charge power in kW

	TargetSoC   float64
	TargetTime  time.Time
	ArrivalTime time.Time

	// RequiredKWh is derived from the latest target report and is stale
	// between target reports.
	RequiredKWh float64
}

// Validate checks that the vehicle metadata is sound.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.BatteryKWh <= 0 {
		return fmt.Errorf("battery capacity must be positive")
	}
	return nil
}

// RecomputeRequiredEnergy refreshes RequiredKWh from the current and target
// state of charge. Called only when a fresh target report arrives.
func (v *Vehicle) RecomputeRequiredEnergy() {
	v.RequiredKWh = v.BatteryKWh * (v.TargetSoC - v.SoC) / 100
}

// NeedsCharge returns true while the vehicle is below its target.
func (v Vehicle) NeedsCharge() bool {
	return v.TargetSoC > v.SoC
}

// ConnectedFor reports whether the vehicle is plugged in for the entire
// window [start, end].
func (v Vehicle) ConnectedFor(start, end time.Time) bool {
	return !v.ArrivalTime.After(start) && !v.TargetTime.Before(end)
}
