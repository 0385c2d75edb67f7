package model

import "time"

// Epoch is one fixed-duration simulation time step as announced by the
// surrounding runtime.
type Epoch struct {
	Number int64
	Start  time.Time
	End    time.Time
}

// Hours returns the epoch length in hours.
func (e Epoch) Hours() float64 {
	return e.End.Sub(e.Start).Hours()
}

// Valid reports whether the epoch carries usable timing information.
func (e Epoch) Valid() bool {
	return !e.Start.IsZero() && e.End.After(e.Start)
}
