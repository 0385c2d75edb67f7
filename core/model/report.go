package model

import "time"

// Report is the closed set of inbound participant reports the controller
// consumes. The unexported marker method seals the set: dispatch is a type
// switch over these four kinds.
type Report interface {
	reportKind() string
}

// VehicleMetadata announces a vehicle's identity. Expected exactly once per
// vehicle for the whole simulation run.
type VehicleMetadata struct {
	VehicleID  string
	Name       string
	Owner      string
	StationID  string
	SoC        float64
	BatteryKWh float64
	MaxPower   float64
	CarModel   string
}

// StationCapacity announces a station's max power. Expected once per station
// per epoch.
type StationCapacity struct {
	StationID string
	MaxPower  float64
}

// VehicleTarget carries the charging goal for the current epoch. Expected
// once per vehicle per epoch.
type VehicleTarget struct {
	VehicleID   string
	TargetSoC   float64
	TargetTime  time.Time
	ArrivalTime time.Time
}

// VehicleStateUpdate refreshes a vehicle's state of charge and signals that
// the vehicle has processed its power assignment for the epoch.
type VehicleStateUpdate struct {
	VehicleID string
	SoC       float64
}

func (VehicleMetadata) reportKind() string    { return "vehicle_metadata" }
func (StationCapacity) reportKind() string    { return "station_capacity" }
func (VehicleTarget) reportKind() string      { return "vehicle_target" }
func (VehicleStateUpdate) reportKind() string { return "vehicle_state" }
