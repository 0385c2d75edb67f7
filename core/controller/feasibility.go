package controller

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/gridsim/chargealloc/core/model"
)

// projectFeasibility estimates whether the grid can deliver the outstanding
// charging requirements over the remaining horizon. It walks forward in
// consecutive epochs of the current epoch's length until the latest target
// time among all known vehicles, summing the deliverable power of vehicles
// connected for each entire hypothetical epoch, capped at the global budget.
//
// Future epochs are assumed to have the current epoch's length.
func (c *Controller) projectFeasibility() model.FeasibilityCheck {
	ep := c.ep
	length := ep.epoch.End.Sub(ep.epoch.Start)

	var latest time.Time
	for _, id := range c.order {
		if t := c.vehicles[id].TargetTime; t.After(latest) {
			latest = t
		}
	}

	var perEpochKW []float64
	for start := ep.epoch.Start; start.Before(latest); start = start.Add(length) {
		end := start.Add(length)
		var kw float64
		for _, id := range c.order {
			v := c.vehicles[id]
			if !v.ConnectedFor(start, end) {
				continue
			}
			st, ok := ep.stations[v.StationID]
			if !ok {
				// No capacity announced for the station this epoch, so it
				// cannot deliver.
				continue
			}
			kw += min(v.MaxPower, st.MaxPower)
		}
		if kw > c.cfg.TotalBudgetKW {
			kw = c.cfg.TotalBudgetKW
		}
		perEpochKW = append(perEpochKW, kw)
	}

	var required []float64
	var affected []string
	for _, id := range c.order {
		v := c.vehicles[id]
		if v.ConnectedFor(ep.epoch.Start, ep.epoch.End) && v.NeedsCharge() {
			required = append(required, v.RequiredKWh)
			affected = append(affected, v.Owner)
		}
	}

	return model.FeasibilityCheck{
		RequiredKWh:  floats.Sum(required),
		AvailableKWh: floats.Sum(perEpochKW) * length.Hours(),
		Affected:     affected,
	}
}
