package controller

import (
	"fmt"
	"time"

	"github.com/gridsim/chargealloc/core/bus"
	"github.com/gridsim/chargealloc/core/logger"
	"github.com/gridsim/chargealloc/core/metrics"
	"github.com/gridsim/chargealloc/core/model"
)

// Config defines the run-level allocation parameters. The expected
// participant counts come from the initial simulation roster and stay fixed
// for the whole run.
type Config struct {
	TotalBudgetKW    float64 `json:"total_budget_kw"`
	ExpectedVehicles int     `json:"expected_vehicles"`
	ExpectedStations int     `json:"expected_stations"`
}

// Validate checks the controller parameters.
func (c Config) Validate() error {
	if c.TotalBudgetKW <= 0 {
		return fmt.Errorf("total_budget_kw must be positive")
	}
	if c.ExpectedVehicles <= 0 {
		return fmt.Errorf("expected_vehicles must be positive")
	}
	if c.ExpectedStations <= 0 {
		return fmt.Errorf("expected_stations must be positive")
	}
	return nil
}

// Controller allocates the shared power budget among charging sessions, one
// allocation pass per epoch. All methods must be called from a single
// goroutine; the surrounding service delivers reports one at a time.
type Controller struct {
	cfg  Config
	pub  bus.Publisher
	sink metrics.MetricsSink
	log  logger.Logger

	// vehicles is append-only for the run; order preserves metadata arrival
	// order and serves as the iteration index over the map.
	vehicles      map[string]*model.Vehicle
	order         []string
	metadataCount int

	ep *epochState
}

// New creates a Controller. The sink may be nil.
func New(cfg Config, pub bus.Publisher, sink metrics.MetricsSink, log logger.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pub == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Controller{
		cfg:      cfg,
		pub:      pub,
		sink:     sink,
		log:      log,
		vehicles: make(map[string]*model.Vehicle),
	}, nil
}

// BeginEpoch starts a new epoch: the per-epoch state is re-created and the
// station set dropped. The metadata roster persists across epochs.
func (c *Controller) BeginEpoch(e model.Epoch) {
	c.ep = newEpochState(e)
	c.log.Infof("epoch %d started: %s -> %s", e.Number, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
	c.advance()
}

// EpochDone reports whether the current epoch satisfied its terminal
// condition (allocation fired and all completion reports received).
func (c *Controller) EpochDone() bool {
	return c.ep != nil && c.ep.completed
}

// Vehicle returns a copy of the vehicle record for the given id.
func (c *Controller) Vehicle(id string) (model.Vehicle, bool) {
	v, ok := c.vehicles[id]
	if !ok {
		return model.Vehicle{}, false
	}
	return *v, true
}

// HandleReport dispatches an inbound participant report. Rejected reports
// are logged and dropped; the returned error carries the taxonomy sentinel
// and never indicates a fatal condition.
func (c *Controller) HandleReport(r model.Report) error {
	switch rep := r.(type) {
	case model.VehicleMetadata:
		return c.onMetadata(rep)
	case model.StationCapacity:
		return c.onStationCapacity(rep)
	case model.VehicleTarget:
		return c.onTarget(rep)
	case model.VehicleStateUpdate:
		return c.onStateUpdate(rep)
	default:
		err := fmt.Errorf("unhandled report kind %T", r)
		c.log.Errorf("%v", err)
		return err
	}
}

func (c *Controller) onMetadata(r model.VehicleMetadata) error {
	if _, ok := c.vehicles[r.VehicleID]; ok {
		err := duplicateInputf("metadata for vehicle %s already registered", r.VehicleID)
		c.log.Warnf("%v", err)
		return err
	}
	v := &model.Vehicle{
		ID:         r.VehicleID,
		Name:       r.Name,
		Owner:      r.Owner,
		StationID:  r.StationID,
		CarModel:   r.CarModel,
		SoC:        r.SoC,
		BatteryKWh: r.BatteryKWh,
		MaxPower:   r.MaxPower,
	}
	if err := v.Validate(); err != nil {
		c.log.Errorf("dropping metadata for vehicle %s: %v", r.VehicleID, err)
		return err
	}
	c.vehicles[v.ID] = v
	c.order = append(c.order, v.ID)
	c.metadataCount++
	c.log.Debugw("vehicle registered", map[string]any{
		"vehicle": v.ID, "owner": v.Owner, "station": v.StationID, "received": c.metadataCount,
	})
	c.advance()
	return nil
}

func (c *Controller) onStationCapacity(r model.StationCapacity) error {
	c.ensureEpoch()
	st := model.Station{ID: r.StationID, MaxPower: r.MaxPower}
	if err := st.Validate(); err != nil {
		c.log.Errorf("dropping capacity report: %v", err)
		return err
	}
	if !c.ep.addStation(st) {
		err := duplicateInputf("station %s already announced capacity this epoch", st.ID)
		c.log.Warnf("%v", err)
		return err
	}
	c.log.Debugf("station %s announced %.1f kW (%d/%d)", st.ID, st.MaxPower, len(c.ep.stations), c.cfg.ExpectedStations)
	c.advance()
	return nil
}

func (c *Controller) onTarget(r model.VehicleTarget) error {
	c.ensureEpoch()
	v, ok := c.vehicles[r.VehicleID]
	if !ok {
		err := unknownReferencef("target report for vehicle %s without metadata", r.VehicleID)
		c.log.Errorf("%v", err)
		return err
	}
	v.TargetSoC = r.TargetSoC
	v.TargetTime = r.TargetTime
	v.ArrivalTime = r.ArrivalTime
	v.RecomputeRequiredEnergy()
	c.ep.targetCount++
	c.log.Debugw("target received", map[string]any{
		"vehicle": v.ID, "target_soc": v.TargetSoC, "required_kwh": v.RequiredKWh,
	})
	c.advance()
	return nil
}

func (c *Controller) onStateUpdate(r model.VehicleStateUpdate) error {
	c.ensureEpoch()
	v, ok := c.vehicles[r.VehicleID]
	if !ok {
		err := unknownReferencef("state update for vehicle %s without metadata", r.VehicleID)
		c.log.Errorf("%v", err)
		return err
	}
	v.SoC = r.SoC
	c.ep.stateCount++
	c.advance()
	return nil
}

// ensureEpoch lazily creates an epoch state when reports arrive before any
// epoch announcement. Such an epoch carries no timing, which makes a later
// allocation attempt fail with the premature-allocation error instead of
// corrupting record keeping.
func (c *Controller) ensureEpoch() {
	if c.ep == nil {
		c.ep = newEpochState(model.Epoch{})
	}
}

// advance re-checks all phase predicates in their fixed order. It is invoked
// after every inbound report and at every epoch start, so the allocation pass
// fires as soon as its preconditions hold regardless of arrival order.
func (c *Controller) advance() {
	if c.ep == nil {
		return
	}
	ep := c.ep
	metadataDone := c.metadataCount >= c.cfg.ExpectedVehicles
	stationsDone := len(ep.stations) >= c.cfg.ExpectedStations
	targetsDone := ep.targetCount >= c.cfg.ExpectedVehicles

	if !ep.allocationFired && metadataDone && stationsDone && targetsDone {
		c.runAllocation()
	}

	if ep.allocationFired && !ep.completed && ep.stateCount >= c.cfg.ExpectedVehicles {
		ep.completed = true
		c.log.Infof("epoch %d complete", ep.epoch.Number)
		if err := c.pub.PublishReady(ep.epoch.Number); err != nil {
			c.log.Errorf("publish ready: %v", err)
		}
	}

	c.log.Debugf("epoch %d phase: %s", ep.epoch.Number, ep.phase(metadataDone, c.cfg.ExpectedStations, c.cfg.ExpectedVehicles))
}

// runAllocation performs the once-per-epoch feasibility projection and
// allocation pass, then publishes the per-station results followed by the
// warning, if any.
func (c *Controller) runAllocation() {
	ep := c.ep
	if !ep.epoch.Valid() {
		if !ep.prematureReported {
			ep.prematureReported = true
			c.log.Errorf("%v", ErrPrematureAllocation)
			if err := c.pub.PublishError(ep.epoch.Number, ErrPrematureAllocation.Error()); err != nil {
				c.log.Errorf("publish error notification: %v", err)
			}
		}
		return
	}
	ep.allocationFired = true

	check := c.projectFeasibility()
	if check.Short() {
		ep.warning = &model.FeasibilityWarning{
			AvailablePct: check.AvailablePct(),
			Affected:     check.Affected,
		}
		c.log.Warnf("projected energy shortfall: %.1f%% of %.1f kWh available, %d sessions affected",
			ep.warning.AvailablePct, check.RequiredKWh, len(check.Affected))
	}

	assignments := c.allocate()
	now := time.Now()
	events := make([]metrics.AssignmentEvent, 0, len(assignments))
	var total float64
	for _, a := range assignments {
		if err := a.Validate(); err != nil {
			c.log.Errorf("invalid assignment: %v", err)
			if perr := c.pub.PublishError(ep.epoch.Number, fmt.Sprintf("assignment construction failed: %v", err)); perr != nil {
				c.log.Errorf("publish error notification: %v", perr)
			}
			continue
		}
		if err := c.pub.PublishAssignment(ep.epoch.Number, a); err != nil {
			c.log.Errorf("publish assignment for station %s: %v", a.StationID, err)
			continue
		}
		total += a.PowerKW
		events = append(events, metrics.AssignmentEvent{
			Epoch:     ep.epoch.Number,
			StationID: a.StationID,
			VehicleID: a.VehicleID,
			PowerKW:   a.PowerKW,
			Time:      now,
		})
	}

	if ep.warning != nil {
		if err := ep.warning.Validate(); err != nil {
			c.log.Errorf("invalid warning: %v", err)
			if perr := c.pub.PublishError(ep.epoch.Number, fmt.Sprintf("warning construction failed: %v", err)); perr != nil {
				c.log.Errorf("publish error notification: %v", perr)
			}
		} else if err := c.pub.PublishWarning(ep.epoch.Number, *ep.warning); err != nil {
			c.log.Errorf("publish warning: %v", err)
		}
	}

	if err := c.sink.RecordAssignments(events); err != nil {
		c.log.Errorf("record assignments: %v", err)
	}
	if err := c.sink.RecordFeasibility(metrics.FeasibilityEvent{
		Epoch:        ep.epoch.Number,
		RequiredKWh:  check.RequiredKWh,
		AvailableKWh: check.AvailableKWh,
		AvailablePct: check.AvailablePct(),
		Affected:     len(check.Affected),
		Short:        check.Short(),
		Time:         now,
	}); err != nil {
		c.log.Errorf("record feasibility: %v", err)
	}
	if err := c.sink.RecordEpoch(metrics.EpochEvent{
		Epoch:        ep.epoch.Number,
		Stations:     len(assignments),
		TotalPowerKW: total,
		Time:         now,
	}); err != nil {
		c.log.Errorf("record epoch: %v", err)
	}
	c.log.Infof("epoch %d allocated %.1f kW across %d stations", ep.epoch.Number, total, len(assignments))
}

// nopLogger is the fallback when no logger is supplied.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
