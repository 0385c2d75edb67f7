package metrics

import (
	"context"
	"math"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/gridsim/chargealloc/core/logger"
	coremetrics "github.com/gridsim/chargealloc/core/metrics"
	infralogger "github.com/gridsim/chargealloc/infra/logger"
)

// InfluxSink writes allocation events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      infralogger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// when the health check fails, so a missing database never blocks a run.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordAssignments writes the per-station assignments as points.
func (s *InfluxSink) RecordAssignments(events []coremetrics.AssignmentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range events {
		p := write.NewPointWithMeasurement("allocation_assignment").
			AddTag("station_id", ev.StationID).
			AddTag("vehicle_id", ev.VehicleID).
			AddTag("epoch", strconv.FormatInt(ev.Epoch, 10)).
			AddField("power_kw", round3(ev.PowerKW)).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordFeasibility writes the projection outcome.
func (s *InfluxSink) RecordFeasibility(ev coremetrics.FeasibilityEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("feasibility_projection").
		AddTag("epoch", strconv.FormatInt(ev.Epoch, 10)).
		AddTag("short", strconv.FormatBool(ev.Short)).
		AddField("required_kwh", round3(ev.RequiredKWh)).
		AddField("available_kwh", round3(ev.AvailableKWh)).
		AddField("available_pct", round3(ev.AvailablePct)).
		AddField("affected", ev.Affected).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordEpoch writes the epoch summary.
func (s *InfluxSink) RecordEpoch(ev coremetrics.EpochEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("allocation_epoch").
		AddTag("epoch", strconv.FormatInt(ev.Epoch, 10)).
		AddField("stations", ev.Stations).
		AddField("total_power_kw", round3(ev.TotalPowerKW)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
