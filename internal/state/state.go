package state

import (
	"sync/atomic"

	"github.com/thatsimonsguy/irrigation-controller/internal/events"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

// ControllerState is the shared state between the monitors, the irrigation
// controller and the power policy. Monitors hold it only to raise events.
type ControllerState struct {
	Events      *events.Mailbox
	Irrigations *events.Counter

	lowPower atomic.Bool
	phase    atomic.Value // model.ControllerPhase
}

type Snapshot struct {
	IrrigationCount int64                 `json:"irrigation_count"`
	PendingPipes    []model.PipeID        `json:"pending_pipes"`
	Phase           model.ControllerPhase `json:"controller_phase"`
	LowPower        bool                  `json:"low_power"`
}

func New() *ControllerState {
	st := &ControllerState{
		Events:      events.NewMailbox(),
		Irrigations: &events.Counter{},
	}
	st.phase.Store(model.PhaseIdle)
	return st
}

// RaiseIrrigation sets the pipe's pending bit and counts one event.
func (s *ControllerState) RaiseIrrigation(pipe model.PipeID) int64 {
	s.Events.Raise(pipe)
	return s.Irrigations.Increment()
}

func (s *ControllerState) SetPhase(p model.ControllerPhase) {
	s.phase.Store(p)
}

func (s *ControllerState) Phase() model.ControllerPhase {
	return s.phase.Load().(model.ControllerPhase)
}

func (s *ControllerState) SetLowPower(active bool) {
	s.lowPower.Store(active)
}

func (s *ControllerState) LowPower() bool {
	return s.lowPower.Load()
}

func (s *ControllerState) Snapshot() Snapshot {
	return Snapshot{
		IrrigationCount: s.Irrigations.Load(),
		PendingPipes:    s.Events.Peek().Pipes(),
		Phase:           s.Phase(),
		LowPower:        s.LowPower(),
	}
}
