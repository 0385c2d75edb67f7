package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridsim/chargealloc/core/model"
)

// Message type identifiers carried in the envelope.
const (
	TypeVehicleMetadata    = "VehicleMetadata"
	TypeStationCapacity    = "StationCapacity"
	TypeVehicleTarget      = "VehicleTarget"
	TypeVehicleState       = "VehicleState"
	TypeEpoch              = "Epoch"
	TypePowerAssignment    = "PowerAssignment"
	TypeFeasibilityWarning = "FeasibilityWarning"
	TypeError              = "Error"
	TypeReady              = "Ready"
)

// Envelope wraps every message on the wire with routing metadata.
type Envelope struct {
	Type      string          `json:"message_type"`
	ID        string          `json:"message_id"`
	Source    string          `json:"source_id"`
	Epoch     int64           `json:"epoch"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope builds an envelope around the given payload.
func NewEnvelope(msgType, source string, epoch int64, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return Envelope{
		Type:      msgType,
		ID:        uuid.NewString(),
		Source:    source,
		Epoch:     epoch,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// Wire payloads.

type VehicleMetadataPayload struct {
	VehicleID  string  `json:"vehicle_id"`
	Name       string  `json:"name"`
	Owner      string  `json:"owner"`
	StationID  string  `json:"station_id"`
	SoC        float64 `json:"state_of_charge"`
	BatteryKWh float64 `json:"battery_capacity_kwh"`
	MaxPower   float64 `json:"max_power_kw"`
	CarModel   string  `json:"car_model"`
}

type StationCapacityPayload struct {
	StationID string  `json:"station_id"`
	MaxPower  float64 `json:"max_power_kw"`
}

type VehicleTargetPayload struct {
	VehicleID   string    `json:"vehicle_id"`
	TargetSoC   float64   `json:"target_state_of_charge"`
	TargetTime  time.Time `json:"target_time"`
	ArrivalTime time.Time `json:"arrival_time"`
}

type VehicleStatePayload struct {
	VehicleID string  `json:"vehicle_id"`
	SoC       float64 `json:"state_of_charge"`
}

type EpochPayload struct {
	Number int64     `json:"number"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

type PowerAssignmentPayload struct {
	StationID string  `json:"station_id"`
	VehicleID string  `json:"vehicle_id"`
	PowerKW   float64 `json:"power_kw"`
}

type FeasibilityWarningPayload struct {
	AvailablePct float64  `json:"available_energy_pct"`
	Affected     []string `json:"affected"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
}

// DecodeEnvelope parses a raw wire message.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope without message type")
	}
	return env, nil
}

// DecodeReport converts an inbound envelope into the controller's report
// type. It returns an error for unknown or malformed report kinds.
func DecodeReport(env Envelope) (model.Report, error) {
	switch env.Type {
	case TypeVehicleMetadata:
		var p VehicleMetadataPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return model.VehicleMetadata{
			VehicleID:  p.VehicleID,
			Name:       p.Name,
			Owner:      p.Owner,
			StationID:  p.StationID,
			SoC:        p.SoC,
			BatteryKWh: p.BatteryKWh,
			MaxPower:   p.MaxPower,
			CarModel:   p.CarModel,
		}, nil
	case TypeStationCapacity:
		var p StationCapacityPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return model.StationCapacity{StationID: p.StationID, MaxPower: p.MaxPower}, nil
	case TypeVehicleTarget:
		var p VehicleTargetPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return model.VehicleTarget{
			VehicleID:   p.VehicleID,
			TargetSoC:   p.TargetSoC,
			TargetTime:  p.TargetTime,
			ArrivalTime: p.ArrivalTime,
		}, nil
	case TypeVehicleState:
		var p VehicleStatePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return model.VehicleStateUpdate{VehicleID: p.VehicleID, SoC: p.SoC}, nil
	default:
		return nil, fmt.Errorf("unknown report type %q", env.Type)
	}
}

// DecodeEpoch converts an epoch announcement envelope.
func DecodeEpoch(env Envelope) (model.Epoch, error) {
	if env.Type != TypeEpoch {
		return model.Epoch{}, fmt.Errorf("expected %s envelope, got %s", TypeEpoch, env.Type)
	}
	var p EpochPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return model.Epoch{}, fmt.Errorf("decode epoch: %w", err)
	}
	return model.Epoch{Number: p.Number, Start: p.Start, End: p.End}, nil
}
