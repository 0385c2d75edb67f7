package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/gridsim/chargealloc/core/controller"
	"github.com/gridsim/chargealloc/core/logger"
	"github.com/gridsim/chargealloc/core/model"
)

// Runtime plays the simulation-manager role the controller treats as an
// external collaborator: it opens epochs with their start and end times and
// waits for every participant's ready signal before advancing.
type Runtime struct {
	cfg   Config
	f     *Fabric
	log   logger.Logger
	start time.Time

	// expected ready sources per epoch: every station, every user and the
	// controller.
	expected int

	ready <-chan ReadySignal
}

// NewRuntime creates the epoch runtime. start is the simulated wall-clock
// origin of epoch 1.
func NewRuntime(cfg Config, f *Fabric, start time.Time, log logger.Logger) *Runtime {
	return &Runtime{
		cfg:      cfg,
		f:        f,
		log:      log,
		start:    start,
		expected: len(cfg.Stations) + len(cfg.Vehicles) + 1,
		ready:    f.Ready.Subscribe(),
	}
}

// Run drives the configured number of epochs. It returns an error when the
// context expires before all participants reported ready.
func (r *Runtime) Run(ctx context.Context) error {
	length := time.Duration(r.cfg.EpochLengthMinutes) * time.Minute
	for n := int64(1); n <= int64(r.cfg.Epochs); n++ {
		e := model.Epoch{
			Number: n,
			Start:  r.start.Add(time.Duration(n-1) * length),
			End:    r.start.Add(time.Duration(n) * length),
		}
		r.log.Infof("opening epoch %d", n)
		r.f.Epochs.Publish(e)

		seen := make(map[string]bool, r.expected)
		for len(seen) < r.expected {
			select {
			case <-ctx.Done():
				return fmt.Errorf("epoch %d: %d/%d participants ready: %w", n, len(seen), r.expected, ctx.Err())
			case sig, ok := <-r.ready:
				if !ok {
					return fmt.Errorf("fabric closed during epoch %d", n)
				}
				if sig.Epoch != n {
					continue
				}
				seen[sig.Source] = true
			}
		}
	}
	return nil
}

// AttachController runs the controller against the fabric in a single
// goroutine, preserving its one-report-at-a-time contract. Pending epoch
// announcements are always drained before reports so counters are never
// attributed to a stale epoch.
func AttachController(ctx context.Context, c *controller.Controller, f *Fabric) {
	epochs := f.Epochs.Subscribe()
	reports := f.Reports.Subscribe()
	go func() {
		for {
			select {
			case e, ok := <-epochs:
				if !ok {
					return
				}
				c.BeginEpoch(e)
				continue
			default:
			}
			select {
			case <-ctx.Done():
				return
			case e, ok := <-epochs:
				if !ok {
					return
				}
				c.BeginEpoch(e)
			case rep, ok := <-reports:
				if !ok {
					return
				}
				// Rejected reports are already logged by the controller.
				_ = c.HandleReport(rep)
			}
		}
	}()
}
