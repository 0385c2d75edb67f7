// Package app wires the configuration, transport, metrics sinks and the
// allocation controller into a runnable service.
package app

import (
	"context"
	"fmt"

	"github.com/gridsim/chargealloc/config"
	"github.com/gridsim/chargealloc/core/controller"
	coremetrics "github.com/gridsim/chargealloc/core/metrics"
	"github.com/gridsim/chargealloc/infra/logger"
	"github.com/gridsim/chargealloc/infra/metrics"
	"github.com/gridsim/chargealloc/infra/mqtt"
)

// Service runs the allocation controller against an MQTT broker.
type Service struct {
	Controller *controller.Controller
	transport  *mqtt.Transport
	log        logger.Logger
	promAddr   string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.SetGlobalLevel(cfg.Logging.Level)
	logg := logger.New("service")

	transport, err := mqtt.NewTransport(cfg.MQTT, logger.New("mqtt"))
	if err != nil {
		return nil, fmt.Errorf("mqtt transport: %w", err)
	}

	sink := buildSink(cfg.Metrics)
	ctrl, err := controller.New(cfg.Controller, transport, sink, logger.New("controller"))
	if err != nil {
		transport.Close()
		return nil, fmt.Errorf("controller: %w", err)
	}

	svc := &Service{Controller: ctrl, transport: transport, log: logg}
	if cfg.Metrics.PrometheusEnabled {
		svc.promAddr = cfg.Metrics.PrometheusAddr
		if svc.promAddr == "" {
			svc.promAddr = ":9090"
		}
	}
	return svc, nil
}

func buildSink(cfg coremetrics.Config) coremetrics.MetricsSink {
	var sinks []coremetrics.MetricsSink
	if cfg.PrometheusEnabled {
		if sink, err := metrics.NewPromSink(cfg); err == nil {
			sinks = append(sinks, sink)
		} else {
			logger.New("metrics").Errorf("prom sink: %v", err)
		}
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}
	case 1:
		return sinks[0]
	default:
		return metrics.NewMultiSink(sinks...)
	}
}

// Run consumes epoch announcements and participant reports until the context
// is canceled. Reports are handled one at a time on this goroutine; pending
// epoch announcements are drained before reports so counters are never
// attributed to a stale epoch.
func (s *Service) Run(ctx context.Context) error {
	if s.promAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	epochs := s.transport.Epochs()
	reports := s.transport.Reports()
	for {
		select {
		case e := <-epochs:
			s.Controller.BeginEpoch(e)
			continue
		default:
		}
		select {
		case <-ctx.Done():
			return nil
		case e := <-epochs:
			s.Controller.BeginEpoch(e)
		case r := <-reports:
			// Rejected reports are already logged by the controller.
			_ = s.Controller.HandleReport(r)
		}
	}
}

// Close releases the transport.
func (s *Service) Close() error {
	s.transport.Close()
	return nil
}
