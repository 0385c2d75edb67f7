package controller

import (
	"errors"
	"fmt"
)

// The controller error taxonomy. None of these terminate the controller: a
// duplicate or dangling report is logged and dropped, a premature allocation
// attempt or an invalid outbound message is reported outward and skipped.
var (
	// ErrDuplicateInput marks a repeated metadata report or a repeated
	// same-epoch station capacity announcement.
	ErrDuplicateInput = errors.New("duplicate input")

	// ErrUnknownReference marks a report for a vehicle id with no prior
	// metadata.
	ErrUnknownReference = errors.New("unknown reference")

	// ErrPrematureAllocation marks an allocation attempt made before any
	// epoch timing information is available.
	ErrPrematureAllocation = errors.New("allocation attempted without epoch timing")
)

func duplicateInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDuplicateInput, fmt.Sprintf(format, args...))
}

func unknownReferencef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnknownReference, fmt.Sprintf(format, args...))
}
