// Package sim provides the external collaborators of the allocation
// controller for in-process runs: simulated vehicle owners and stations, the
// epoch runtime, and the message fabric connecting them.
package sim

import (
	"github.com/gridsim/chargealloc/core/bus"
	"github.com/gridsim/chargealloc/core/model"
	"github.com/gridsim/chargealloc/internal/eventbus"
)

// ReadySignal is a participant's per-epoch completion signal.
type ReadySignal struct {
	Source string
	Epoch  int64
}

// PowerOutput is a station's power announcement to its connected vehicle,
// republished from the controller's assignment.
type PowerOutput struct {
	StationID string
	VehicleID string
	PowerKW   float64
}

// Fabric is the in-process message fabric: one typed bus per message kind.
type Fabric struct {
	Reports     *eventbus.TypedBus[model.Report]
	Epochs      *eventbus.TypedBus[model.Epoch]
	Assignments *eventbus.TypedBus[model.PowerAssignment]
	Outputs     *eventbus.TypedBus[PowerOutput]
	Warnings    *eventbus.TypedBus[model.FeasibilityWarning]
	Errors      *eventbus.TypedBus[model.ErrorNotification]
	Ready       *eventbus.TypedBus[ReadySignal]
}

// NewFabric creates a fabric whose buses buffer up to buffer events per
// subscriber. The buffer must cover one epoch's worth of traffic.
func NewFabric(buffer int) *Fabric {
	return &Fabric{
		Reports:     eventbus.NewTyped[model.Report](buffer),
		Epochs:      eventbus.NewTyped[model.Epoch](buffer),
		Assignments: eventbus.NewTyped[model.PowerAssignment](buffer),
		Outputs:     eventbus.NewTyped[PowerOutput](buffer),
		Warnings:    eventbus.NewTyped[model.FeasibilityWarning](buffer),
		Errors:      eventbus.NewTyped[model.ErrorNotification](buffer),
		Ready:       eventbus.NewTyped[ReadySignal](buffer),
	}
}

// Close shuts down all buses.
func (f *Fabric) Close() {
	f.Reports.Close()
	f.Epochs.Close()
	f.Assignments.Close()
	f.Outputs.Close()
	f.Warnings.Close()
	f.Errors.Close()
	f.Ready.Close()
}

// fabricPublisher adapts the fabric to the controller's Publisher boundary.
type fabricPublisher struct {
	f      *Fabric
	source string
}

// NewPublisher returns a bus.Publisher that publishes onto the fabric.
func NewPublisher(f *Fabric, source string) bus.Publisher {
	return fabricPublisher{f: f, source: source}
}

func (p fabricPublisher) PublishAssignment(_ int64, a model.PowerAssignment) error {
	p.f.Assignments.Publish(a)
	return nil
}

func (p fabricPublisher) PublishWarning(_ int64, w model.FeasibilityWarning) error {
	p.f.Warnings.Publish(w)
	return nil
}

func (p fabricPublisher) PublishError(epoch int64, reason string) error {
	p.f.Errors.Publish(model.ErrorNotification{Epoch: epoch, Reason: reason})
	return nil
}

func (p fabricPublisher) PublishReady(epoch int64) error {
	p.f.Ready.Publish(ReadySignal{Source: p.source, Epoch: epoch})
	return nil
}
