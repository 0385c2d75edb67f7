package model

import "fmt"

// Station holds a charging station's announced capacity. Stations are
// epoch-scoped: the set is dropped at every epoch start and rebuilt from the
// capacity announcements of that epoch.
type Station struct {
	ID       string
	MaxPower float64 // kW
}

// Validate checks that the station announcement is usable.
func (s Station) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("station id is required")
	}
	if s.MaxPower < 0 {
		return fmt.Errorf("station max power must not be negative")
	}
	return nil
}
