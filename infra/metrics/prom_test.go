package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/gridsim/chargealloc/core/metrics"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, sink.RecordAssignments([]coremetrics.AssignmentEvent{
		{Epoch: 1, StationID: "A", VehicleID: "v1", PowerKW: 22, Time: now},
		{Epoch: 1, StationID: "B", VehicleID: "none", PowerKW: 0, Time: now},
	}))
	require.NoError(t, sink.RecordFeasibility(coremetrics.FeasibilityEvent{
		Epoch: 1, RequiredKWh: 50, AvailableKWh: 20, AvailablePct: 40, Short: true, Time: now,
	}))
	require.NoError(t, sink.RecordEpoch(coremetrics.EpochEvent{Epoch: 1, Stations: 2, TotalPowerKW: 22, Time: now}))

	ps := sink.(*PromSink)
	require.Equal(t, float64(1), testutil.ToFloat64(ps.assignments.WithLabelValues("A")))
	require.Equal(t, float64(22), testutil.ToFloat64(ps.power.WithLabelValues("A")))
	require.Equal(t, float64(22), testutil.ToFloat64(ps.epochPower))
	require.Equal(t, float64(1), testutil.ToFloat64(ps.warnings))
	require.Equal(t, float64(40), testutil.ToFloat64(ps.feasibility))
}

func TestPromSinkDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	// Registering a second sink on the same registry reuses the collectors.
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)
	require.NotNil(t, sink)
}

func TestMultiSinkFansOut(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	multi := NewMultiSink(coremetrics.NopSink{}, prom)
	require.NoError(t, multi.RecordEpoch(coremetrics.EpochEvent{Epoch: 2, TotalPowerKW: 7}))
	require.Equal(t, float64(7), testutil.ToFloat64(prom.(*PromSink).epochPower))
}
