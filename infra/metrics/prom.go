package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/gridsim/chargealloc/core/metrics"
)

// PromSink records allocation events in Prometheus metrics.
type PromSink struct {
	assignments *prometheus.CounterVec
	power       *prometheus.GaugeVec
	epochPower  prometheus.Gauge
	warnings    prometheus.Counter
	feasibility prometheus.Gauge
}

// NewPromSink registers allocation metrics on the default Prometheus
// registerer. The metrics server is started separately.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_assignments_total",
		Help: "Total number of per-station power assignments",
	}, []string{"station_id"})
	power := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "allocation_station_power_kw",
		Help: "Power assigned to a station in the latest epoch",
	}, []string{"station_id"})
	epochPower := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "allocation_epoch_power_kw",
		Help: "Total power allocated in the latest epoch",
	})
	warnings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feasibility_warnings_total",
		Help: "Number of epochs with a projected energy shortfall",
	})
	feasibility := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feasibility_available_pct",
		Help: "Projected available energy as a percentage of required energy",
	})

	collectors := []prometheus.Collector{assignments, power, epochPower, warnings, feasibility}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch i {
				case 0:
					assignments = are.ExistingCollector.(*prometheus.CounterVec)
				case 1:
					power = are.ExistingCollector.(*prometheus.GaugeVec)
				case 2:
					epochPower = are.ExistingCollector.(prometheus.Gauge)
				case 3:
					warnings = are.ExistingCollector.(prometheus.Counter)
				case 4:
					feasibility = are.ExistingCollector.(prometheus.Gauge)
				}
				continue
			}
			return nil, err
		}
	}

	return &PromSink{
		assignments: assignments,
		power:       power,
		epochPower:  epochPower,
		warnings:    warnings,
		feasibility: feasibility,
	}, nil
}

// RecordAssignments increments the assignment counter and refreshes the
// per-station power gauges.
func (s *PromSink) RecordAssignments(events []coremetrics.AssignmentEvent) error {
	for _, ev := range events {
		s.assignments.WithLabelValues(ev.StationID).Inc()
		s.power.WithLabelValues(ev.StationID).Set(ev.PowerKW)
	}
	return nil
}

// RecordFeasibility refreshes the availability gauge and counts shortfalls.
func (s *PromSink) RecordFeasibility(ev coremetrics.FeasibilityEvent) error {
	s.feasibility.Set(ev.AvailablePct)
	if ev.Short {
		s.warnings.Inc()
	}
	return nil
}

// RecordEpoch refreshes the epoch total.
func (s *PromSink) RecordEpoch(ev coremetrics.EpochEvent) error {
	s.epochPower.Set(ev.TotalPowerKW)
	return nil
}
