package controller

import (
	"math"
	"testing"
	"time"

	"github.com/gridsim/chargealloc/core/model"
	"github.com/gridsim/chargealloc/infra/mqtt"
)

var base = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestController(t *testing.T, cfg Config, pub *mqtt.MockPublisher) *Controller {
	t.Helper()
	c, err := New(cfg, pub, nil, nil)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	return c
}

func handle(t *testing.T, c *Controller, reports ...model.Report) {
	t.Helper()
	for _, r := range reports {
		if err := c.HandleReport(r); err != nil {
			t.Fatalf("handle %T: %v", r, err)
		}
	}
}

// twoStationSetup drives one full epoch of the two-station scenario with the
// given budget and returns the recorded assignments keyed by station.
func twoStationSetup(t *testing.T, budget float64) map[string]model.PowerAssignment {
	t.Helper()
	pub := mqtt.NewMockPublisher()
	c := newTestController(t, Config{TotalBudgetKW: budget, ExpectedVehicles: 2, ExpectedStations: 2}, pub)

	handle(t, c,
		model.VehicleMetadata{VehicleID: "v1", Owner: "owner1", StationID: "A", SoC: 50, BatteryKWh: 100, MaxPower: 50},
		model.VehicleMetadata{VehicleID: "v2", Owner: "owner2", StationID: "B", SoC: 20, BatteryKWh: 100, MaxPower: 60},
	)
	c.BeginEpoch(model.Epoch{Number: 1, Start: base, End: base.Add(time.Hour)})
	handle(t, c,
		model.StationCapacity{StationID: "A", MaxPower: 80},
		model.StationCapacity{StationID: "B", MaxPower: 70},
		// v1: 20 kWh required, deadline +1h. v2: 50 kWh required, deadline +2h.
		model.VehicleTarget{VehicleID: "v1", TargetSoC: 70, TargetTime: base.Add(time.Hour), ArrivalTime: base},
		model.VehicleTarget{VehicleID: "v2", TargetSoC: 70, TargetTime: base.Add(2 * time.Hour), ArrivalTime: base},
	)

	byStation := make(map[string]model.PowerAssignment, len(pub.Assignments))
	for _, a := range pub.Assignments {
		byStation[a.StationID] = a
	}
	return byStation
}

func TestAllocationDeadlineFirst(t *testing.T) {
	got := twoStationSetup(t, 100)
	if len(got) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(got))
	}
	if p := got["A"].PowerKW; p != 20 {
		t.Errorf("vehicle1 expected 20 kW, got %v", p)
	}
	if p := got["B"].PowerKW; p != 50 {
		t.Errorf("vehicle2 expected 50 kW, got %v", p)
	}
	if total := got["A"].PowerKW + got["B"].PowerKW; total > 100 {
		t.Errorf("budget exceeded: %v", total)
	}
}

func TestAllocationBudgetExhaustion(t *testing.T) {
	got := twoStationSetup(t, 30)
	if p := got["A"].PowerKW; p != 20 {
		t.Errorf("vehicle1 expected 20 kW, got %v", p)
	}
	// v2 is capped to the remaining budget even though its own limits allow 50.
	if p := got["B"].PowerKW; p != 10 {
		t.Errorf("vehicle2 expected 10 kW, got %v", p)
	}
}

func TestAllocationVehicleAtTarget(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	c := newTestController(t, Config{TotalBudgetKW: 100, ExpectedVehicles: 1, ExpectedStations: 1}, pub)
	handle(t, c,
		model.VehicleMetadata{VehicleID: "v1", StationID: "A", SoC: 80, BatteryKWh: 50, MaxPower: 22},
	)
	c.BeginEpoch(model.Epoch{Number: 1, Start: base, End: base.Add(time.Hour)})
	handle(t, c,
		model.StationCapacity{StationID: "A", MaxPower: 11},
		model.VehicleTarget{VehicleID: "v1", TargetSoC: 80, TargetTime: base.Add(2 * time.Hour), ArrivalTime: base},
	)
	if len(pub.Assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(pub.Assignments))
	}
	a := pub.Assignments[0]
	if a.PowerKW != 0 {
		t.Errorf("expected 0 kW for at-target vehicle, got %v", a.PowerKW)
	}
	if a.VehicleID != model.NoVehicle {
		t.Errorf("expected sentinel vehicle reference, got %q", a.VehicleID)
	}
}

func TestAllocationStationWithoutVehicleGetsZero(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	c := newTestController(t, Config{TotalBudgetKW: 100, ExpectedVehicles: 1, ExpectedStations: 2}, pub)
	handle(t, c,
		model.VehicleMetadata{VehicleID: "v1", StationID: "A", SoC: 40, BatteryKWh: 60, MaxPower: 22},
	)
	c.BeginEpoch(model.Epoch{Number: 1, Start: base, End: base.Add(time.Hour)})
	handle(t, c,
		model.StationCapacity{StationID: "A", MaxPower: 22},
		model.StationCapacity{StationID: "idle", MaxPower: 50},
		model.VehicleTarget{VehicleID: "v1", TargetSoC: 80, TargetTime: base.Add(2 * time.Hour), ArrivalTime: base},
	)
	if len(pub.Assignments) != 2 {
		t.Fatalf("every announced station must receive an assignment, got %d", len(pub.Assignments))
	}
	var idle model.PowerAssignment
	for _, a := range pub.Assignments {
		if a.StationID == "idle" {
			idle = a
		}
	}
	if idle.StationID != "idle" || idle.VehicleID != model.NoVehicle || idle.PowerKW != 0 {
		t.Errorf("idle station expected sentinel zero assignment, got %+v", idle)
	}
}

func TestAllocationOrderingTieBreak(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	// Budget of 30 forces sequential exhaustion so the emitted order is
	// observable through the assigned powers.
	c := newTestController(t, Config{TotalBudgetKW: 30, ExpectedVehicles: 2, ExpectedStations: 2}, pub)
	deadline := base.Add(3 * time.Hour)
	handle(t, c,
		model.VehicleMetadata{VehicleID: "small", StationID: "A", SoC: 80, BatteryKWh: 100, MaxPower: 50},
		model.VehicleMetadata{VehicleID: "big", StationID: "B", SoC: 20, BatteryKWh: 100, MaxPower: 50},
	)
	c.BeginEpoch(model.Epoch{Number: 1, Start: base, End: base.Add(time.Hour)})
	handle(t, c,
		model.StationCapacity{StationID: "A", MaxPower: 80},
		model.StationCapacity{StationID: "B", MaxPower: 80},
		// Equal deadlines; "big" needs 70 kWh, "small" needs 10 kWh.
		model.VehicleTarget{VehicleID: "small", TargetSoC: 90, TargetTime: deadline, ArrivalTime: base},
		model.VehicleTarget{VehicleID: "big", TargetSoC: 90, TargetTime: deadline, ArrivalTime: base},
	)
	if len(pub.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(pub.Assignments))
	}
	first := pub.Assignments[0]
	if first.VehicleID != "big" {
		t.Fatalf("larger required energy must be served first on equal deadlines, got %s", first.VehicleID)
	}
	if first.PowerKW != 30 {
		t.Errorf("first candidate should take the whole budget, got %v", first.PowerKW)
	}
	if second := pub.Assignments[1]; second.PowerKW != 0 {
		t.Errorf("budget exhausted, second candidate should get 0, got %v", second.PowerKW)
	}
}

func TestAllocationPerCandidateBound(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	c := newTestController(t, Config{TotalBudgetKW: 500, ExpectedVehicles: 1, ExpectedStations: 1}, pub)
	handle(t, c,
		model.VehicleMetadata{VehicleID: "v1", StationID: "A", SoC: 90, BatteryKWh: 100, MaxPower: 50},
	)
	c.BeginEpoch(model.Epoch{Number: 1, Start: base, End: base.Add(time.Hour)})
	handle(t, c,
		model.StationCapacity{StationID: "A", MaxPower: 80},
		// 4 kWh over a 1h epoch: the energy term is the binding limit.
		model.VehicleTarget{VehicleID: "v1", TargetSoC: 94, TargetTime: base.Add(2 * time.Hour), ArrivalTime: base},
	)
	a := pub.Assignments[0]
	bound := math.Min(80, math.Min(50, 4))
	if a.PowerKW != bound {
		t.Errorf("expected power %v, got %v", bound, a.PowerKW)
	}
}

func TestAllocationVehicleNotConnected(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	c := newTestController(t, Config{TotalBudgetKW: 100, ExpectedVehicles: 1, ExpectedStations: 1}, pub)
	handle(t, c,
		model.VehicleMetadata{VehicleID: "v1", StationID: "A", SoC: 40, BatteryKWh: 60, MaxPower: 22},
	)
	c.BeginEpoch(model.Epoch{Number: 1, Start: base, End: base.Add(time.Hour)})
	handle(t, c,
		model.StationCapacity{StationID: "A", MaxPower: 22},
		// The vehicle arrives mid-epoch, so it is not connected for the
		// entire window and must not be allocated.
		model.VehicleTarget{VehicleID: "v1", TargetSoC: 80, TargetTime: base.Add(3 * time.Hour), ArrivalTime: base.Add(30 * time.Minute)},
	)
	a := pub.Assignments[0]
	if a.VehicleID != model.NoVehicle || a.PowerKW != 0 {
		t.Errorf("expected sentinel zero assignment, got %+v", a)
	}
}
