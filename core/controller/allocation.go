package controller

import (
	"sort"
	"time"

	"github.com/gridsim/chargealloc/core/model"
)

// candidate is the transient per-station allocation entry. A sentinel
// candidate (vehicleID == model.NoVehicle) guarantees that every announced
// station receives an explicit result even when no eligible vehicle is
// connected to it.
type candidate struct {
	vehicleID   string
	stationID   string
	stationMax  float64
	vehicleMax  float64
	soc         float64
	targetSoC   float64
	requiredKWh float64
	targetTime  time.Time
}

func (c candidate) sentinel() bool { return c.vehicleID == model.NoVehicle }

// buildCandidates emits one candidate per announced station: the first
// vehicle (in metadata order) connected to it for the whole epoch and still
// below target, or a sentinel. Non-sentinel candidates are ordered nearest
// deadline first, larger outstanding need first among equal deadlines;
// sentinels follow in announcement order.
func (c *Controller) buildCandidates() []candidate {
	ep := c.ep
	var list, sentinels []candidate
	for _, stID := range ep.order {
		st := ep.stations[stID]
		cand := candidate{vehicleID: model.NoVehicle, stationID: st.ID, stationMax: st.MaxPower}
		for _, id := range c.order {
			v := c.vehicles[id]
			if v.StationID != st.ID {
				continue
			}
			if !v.ConnectedFor(ep.epoch.Start, ep.epoch.End) || !v.NeedsCharge() {
				continue
			}
			cand = candidate{
				vehicleID:   v.ID,
				stationID:   st.ID,
				stationMax:  st.MaxPower,
				vehicleMax:  v.MaxPower,
				soc:         v.SoC,
				targetSoC:   v.TargetSoC,
				requiredKWh: v.RequiredKWh,
				targetTime:  v.TargetTime,
			}
			break
		}
		if cand.sentinel() {
			sentinels = append(sentinels, cand)
		} else {
			list = append(list, cand)
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].targetTime.Equal(list[j].targetTime) {
			return list[i].targetTime.Before(list[j].targetTime)
		}
		return list[i].requiredKWh > list[j].requiredKWh
	})
	return append(list, sentinels...)
}

// allocate walks the ordered candidate list and assigns power sequentially
// against the shared budget. An earlier-deadline candidate can exhaust the
// budget before a later one is considered.
func (c *Controller) allocate() []model.PowerAssignment {
	ep := c.ep
	hours := ep.epoch.Hours()
	assignments := make([]model.PowerAssignment, 0, len(ep.order))

	var used float64
	for _, cand := range c.buildCandidates() {
		var power float64
		if !cand.sentinel() && cand.targetSoC > cand.soc {
			power = min(cand.stationMax, cand.vehicleMax, c.cfg.TotalBudgetKW-used, cand.requiredKWh/hours)
			if power < 0 {
				power = 0
			}
			used += power
		}
		assignments = append(assignments, model.PowerAssignment{
			StationID: cand.stationID,
			VehicleID: cand.vehicleID,
			PowerKW:   power,
		})
	}
	return assignments
}
