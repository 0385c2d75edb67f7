package sim

import (
	"context"
	"time"

	"github.com/gridsim/chargealloc/core/logger"
	"github.com/gridsim/chargealloc/core/model"
)

// User simulates a vehicle owner: it announces metadata once, reports its
// charging target every epoch, applies the power output of its station and
// closes the epoch with a state update.
type User struct {
	cfg   VehicleConfig
	f     *Fabric
	log   logger.Logger
	start time.Time

	soc          float64
	metadataSent bool

	epochs  <-chan model.Epoch
	outputs <-chan PowerOutput
}

// NewUser creates a simulated user. start anchors the arrival time and the
// charging deadline.
func NewUser(cfg VehicleConfig, f *Fabric, start time.Time, log logger.Logger) *User {
	return &User{
		cfg:     cfg,
		f:       f,
		log:     log,
		start:   start,
		soc:     cfg.SoC,
		epochs:  f.Epochs.Subscribe(),
		outputs: f.Outputs.Subscribe(),
	}
}

// ID returns the simulated vehicle id.
func (u *User) ID() string { return u.cfg.ID }

// SoC returns the user's current state of charge.
func (u *User) SoC() float64 { return u.soc }

func (u *User) source() string { return "user:" + u.cfg.ID }

// Run processes epochs until the context is canceled or the fabric closes.
func (u *User) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-u.epochs:
			if !ok {
				return
			}
			u.runEpoch(ctx, e)
		}
	}
}

func (u *User) runEpoch(ctx context.Context, e model.Epoch) {
	if !u.metadataSent {
		u.f.Reports.Publish(model.VehicleMetadata{
			VehicleID:  u.cfg.ID,
			Name:       u.cfg.Name,
			Owner:      u.cfg.Owner,
			StationID:  u.cfg.StationID,
			SoC:        u.soc,
			BatteryKWh: u.cfg.BatteryKWh,
			MaxPower:   u.cfg.MaxPower,
			CarModel:   u.cfg.CarModel,
		})
		u.metadataSent = true
	}

	u.f.Reports.Publish(model.VehicleTarget{
		VehicleID:   u.cfg.ID,
		TargetSoC:   u.cfg.TargetSoC,
		TargetTime:  u.start.Add(time.Duration(u.cfg.TargetAfterHours * float64(time.Hour))),
		ArrivalTime: u.start,
	})

	// Wait for this epoch's power output from our station.
	for {
		select {
		case <-ctx.Done():
			return
		case out, ok := <-u.outputs:
			if !ok {
				return
			}
			if out.StationID != u.cfg.StationID {
				continue
			}
			u.applyPower(out, e)
			u.f.Reports.Publish(model.VehicleStateUpdate{VehicleID: u.cfg.ID, SoC: u.soc})
			u.f.Ready.Publish(ReadySignal{Source: u.source(), Epoch: e.Number})
			return
		}
	}
}

func (u *User) applyPower(out PowerOutput, e model.Epoch) {
	if out.VehicleID != u.cfg.ID || out.PowerKW <= 0 {
		return
	}
	gained := out.PowerKW * e.Hours() / u.cfg.BatteryKWh * 100
	u.soc += gained
	if u.soc > 100 {
		u.soc = 100
	}
	u.log.Debugf("user %s charged %.2f kW for %.2fh, soc now %.2f%%", u.cfg.ID, out.PowerKW, e.Hours(), u.soc)
}
