package sim

import (
	"context"

	"github.com/gridsim/chargealloc/core/logger"
	"github.com/gridsim/chargealloc/core/model"
)

// Station simulates a charging station: it re-announces its capacity at
// every epoch start, waits for its power assignment and republishes it as a
// power output toward its connected vehicle.
type Station struct {
	cfg StationConfig
	f   *Fabric
	log logger.Logger

	epochs      <-chan model.Epoch
	assignments <-chan model.PowerAssignment
}

// NewStation creates a simulated station.
func NewStation(cfg StationConfig, f *Fabric, log logger.Logger) *Station {
	return &Station{
		cfg:         cfg,
		f:           f,
		log:         log,
		epochs:      f.Epochs.Subscribe(),
		assignments: f.Assignments.Subscribe(),
	}
}

func (s *Station) source() string { return "station:" + s.cfg.ID }

// Run processes epochs until the context is canceled or the fabric closes.
func (s *Station) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-s.epochs:
			if !ok {
				return
			}
			s.runEpoch(ctx, e)
		}
	}
}

func (s *Station) runEpoch(ctx context.Context, e model.Epoch) {
	s.f.Reports.Publish(model.StationCapacity{StationID: s.cfg.ID, MaxPower: s.cfg.MaxPower})

	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-s.assignments:
			if !ok {
				return
			}
			if a.StationID != s.cfg.ID {
				continue
			}
			s.log.Debugf("station %s assigned %.2f kW to %s", s.cfg.ID, a.PowerKW, a.VehicleID)
			s.f.Outputs.Publish(PowerOutput{StationID: a.StationID, VehicleID: a.VehicleID, PowerKW: a.PowerKW})
			s.f.Ready.Publish(ReadySignal{Source: s.source(), Epoch: e.Number})
			return
		}
	}
}
