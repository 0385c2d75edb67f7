package controller

import (
	"math"
	"testing"
	"time"

	"github.com/gridsim/chargealloc/core/model"
	"github.com/gridsim/chargealloc/infra/mqtt"
)

func TestFeasibilityShortfallWarning(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	c := newTestController(t, Config{TotalBudgetKW: 100, ExpectedVehicles: 1, ExpectedStations: 1}, pub)
	handle(t, c,
		model.VehicleMetadata{VehicleID: "v1", Owner: "owner1", StationID: "A", SoC: 10, BatteryKWh: 100, MaxPower: 10},
	)
	c.BeginEpoch(model.Epoch{Number: 1, Start: base, End: base.Add(time.Hour)})
	handle(t, c,
		model.StationCapacity{StationID: "A", MaxPower: 10},
		// 50 kWh required, but the horizon is two 1h epochs at 10 kW:
		// 20 kWh available, 40% of the requirement.
		model.VehicleTarget{VehicleID: "v1", TargetSoC: 60, TargetTime: base.Add(2 * time.Hour), ArrivalTime: base},
	)
	if len(pub.Warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(pub.Warnings))
	}
	w := pub.Warnings[0]
	if math.Abs(w.AvailablePct-40) > 1e-9 {
		t.Errorf("expected 40%% available, got %v", w.AvailablePct)
	}
	if len(w.Affected) != 1 || w.Affected[0] != "owner1" {
		t.Errorf("wrong affected list: %v", w.Affected)
	}
	// The shortfall is advisory: allocation still proceeds.
	if len(pub.Assignments) != 1 || pub.Assignments[0].PowerKW != 10 {
		t.Errorf("allocation should proceed despite the warning: %+v", pub.Assignments)
	}
}

func TestFeasibilityNoWarningWhenCovered(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	c := newTestController(t, Config{TotalBudgetKW: 100, ExpectedVehicles: 1, ExpectedStations: 1}, pub)
	handle(t, c,
		model.VehicleMetadata{VehicleID: "v1", Owner: "owner1", StationID: "A", SoC: 50, BatteryKWh: 100, MaxPower: 22},
	)
	c.BeginEpoch(model.Epoch{Number: 1, Start: base, End: base.Add(time.Hour)})
	handle(t, c,
		model.StationCapacity{StationID: "A", MaxPower: 22},
		model.VehicleTarget{VehicleID: "v1", TargetSoC: 60, TargetTime: base.Add(2 * time.Hour), ArrivalTime: base},
	)
	if len(pub.Warnings) != 0 {
		t.Fatalf("unexpected warning: %+v", pub.Warnings)
	}
}

func TestFeasibilityBudgetCapsProjection(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	// Two 60 kW sessions against a 100 kW budget: the per-epoch projection
	// must cap at 100, leaving a shortfall against 150 kWh required.
	c := newTestController(t, Config{TotalBudgetKW: 100, ExpectedVehicles: 2, ExpectedStations: 2}, pub)
	handle(t, c,
		model.VehicleMetadata{VehicleID: "v1", Owner: "o1", StationID: "A", SoC: 10, BatteryKWh: 100, MaxPower: 60},
		model.VehicleMetadata{VehicleID: "v2", Owner: "o2", StationID: "B", SoC: 20, BatteryKWh: 100, MaxPower: 60},
	)
	c.BeginEpoch(model.Epoch{Number: 1, Start: base, End: base.Add(time.Hour)})
	handle(t, c,
		model.StationCapacity{StationID: "A", MaxPower: 60},
		model.StationCapacity{StationID: "B", MaxPower: 60},
		model.VehicleTarget{VehicleID: "v1", TargetSoC: 90, TargetTime: base.Add(time.Hour), ArrivalTime: base},
		model.VehicleTarget{VehicleID: "v2", TargetSoC: 90, TargetTime: base.Add(time.Hour), ArrivalTime: base},
	)
	if len(pub.Warnings) != 1 {
		t.Fatalf("expected a warning, got %d", len(pub.Warnings))
	}
	// available = 100 kW * 1h = 100 kWh, required = 80 + 70 = 150 kWh.
	want := 100 * 100.0 / 150.0
	if got := pub.Warnings[0].AvailablePct; math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %.4f%%, got %v", want, got)
	}
}

func TestFeasibilityExcludesPartiallyConnected(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	c := newTestController(t, Config{TotalBudgetKW: 100, ExpectedVehicles: 2, ExpectedStations: 2}, pub)
	handle(t, c,
		model.VehicleMetadata{VehicleID: "v1", Owner: "o1", StationID: "A", SoC: 10, BatteryKWh: 100, MaxPower: 10},
		model.VehicleMetadata{VehicleID: "late", Owner: "o2", StationID: "B", SoC: 10, BatteryKWh: 100, MaxPower: 10},
	)
	c.BeginEpoch(model.Epoch{Number: 1, Start: base, End: base.Add(time.Hour)})
	handle(t, c,
		model.StationCapacity{StationID: "A", MaxPower: 10},
		model.StationCapacity{StationID: "B", MaxPower: 10},
		model.VehicleTarget{VehicleID: "v1", TargetSoC: 60, TargetTime: base.Add(2 * time.Hour), ArrivalTime: base},
		// Arrives mid-epoch: not connected for the whole current window, so
		// it joins neither the required sum nor the affected list.
		model.VehicleTarget{VehicleID: "late", TargetSoC: 60, TargetTime: base.Add(2 * time.Hour), ArrivalTime: base.Add(30 * time.Minute)},
	)
	if len(pub.Warnings) != 1 {
		t.Fatalf("expected a warning, got %d", len(pub.Warnings))
	}
	w := pub.Warnings[0]
	if len(w.Affected) != 1 || w.Affected[0] != "o1" {
		t.Errorf("expected only o1 affected, got %v", w.Affected)
	}
}
