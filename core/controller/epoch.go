package controller

import "github.com/gridsim/chargealloc/core/model"

// epochState holds all per-epoch bookkeeping. It is re-created, not reset in
// place, at every epoch boundary so no field can leak from a previous epoch.
type epochState struct {
	epoch model.Epoch

	// stations is rebuilt from capacity announcements every epoch; order
	// preserves announcement order for deterministic iteration.
	stations map[string]model.Station
	order    []string

	targetCount int
	stateCount  int

	allocationFired   bool
	prematureReported bool
	completed         bool

	warning *model.FeasibilityWarning
}

func newEpochState(e model.Epoch) *epochState {
	return &epochState{
		epoch:    e,
		stations: make(map[string]model.Station),
	}
}

// addStation records a capacity announcement. It returns false when the
// station already announced within this epoch.
func (s *epochState) addStation(st model.Station) bool {
	if _, ok := s.stations[st.ID]; ok {
		return false
	}
	s.stations[st.ID] = st
	s.order = append(s.order, st.ID)
	return true
}

// phase names the current position in the epoch lifecycle, for logging only.
func (s *epochState) phase(metadataDone bool, expectedStations, expectedVehicles int) string {
	switch {
	case !metadataDone:
		return "awaiting_metadata"
	case len(s.stations) < expectedStations:
		return "awaiting_stations"
	case s.targetCount < expectedVehicles:
		return "awaiting_targets"
	case !s.allocationFired:
		return "allocating"
	case s.stateCount < expectedVehicles:
		return "awaiting_completion"
	default:
		return "done"
	}
}
