package failsafecontroller

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/scheduler"
)

type Valves interface {
	OpenValves() ([]model.PipeID, error)
	CloseAll() error
}

type PhaseReader interface {
	Phase() model.ControllerPhase
}

type Notifier interface {
	Send(title, message string) error
}

type FailsafeAction struct {
	CloseAll bool
	Stuck    []model.PipeID
	Suspect  []model.PipeID
}

// Failsafe watches for valves left open while no dispatch is running. A valve
// must read open on two consecutive idle checks before it is forced closed.
type Failsafe struct {
	valves   Valves
	phase    PhaseReader
	notifier Notifier
	suspect  map[model.PipeID]bool
}

func New(valves Valves, phase PhaseReader, notifier Notifier) *Failsafe {
	return &Failsafe{valves: valves, phase: phase, notifier: notifier, suspect: map[model.PipeID]bool{}}
}

func RunFailsafeController(sched *scheduler.Scheduler, f *Failsafe) {
	log.Info().Msg("Starting failsafe controller")
	sched.Every("failsafe", model.FailsafePeriodUnits, func(context.Context) {
		f.Check()
	})
}

// Check runs one evaluation cycle and returns what it did.
func (f *Failsafe) Check() FailsafeAction {
	if f.phase.Phase() != model.PhaseIdle {
		f.suspect = map[model.PipeID]bool{}
		return FailsafeAction{}
	}

	open, err := f.valves.OpenValves()
	if err != nil {
		log.Error().Err(err).Msg("Failsafe could not read valve levels")
		return FailsafeAction{}
	}

	// a dispatch may have started while the pins were read
	if f.phase.Phase() != model.PhaseIdle {
		return FailsafeAction{}
	}

	action := evaluateFailsafeActions(open, f.suspect)
	f.suspect = map[model.PipeID]bool{}
	for _, p := range action.Suspect {
		f.suspect[p] = true
	}

	executeFailsafeActions(f.valves, f.notifier, action)
	return action
}

func evaluateFailsafeActions(open []model.PipeID, suspect map[model.PipeID]bool) FailsafeAction {
	var action FailsafeAction
	for _, p := range open {
		if suspect[p] {
			action.Stuck = append(action.Stuck, p)
			continue
		}
		log.Debug().Str("pipe", p.String()).Msg("Valve reads open while idle")
		action.Suspect = append(action.Suspect, p)
	}
	action.CloseAll = len(action.Stuck) > 0
	return action
}

func executeFailsafeActions(valves Valves, notifier Notifier, action FailsafeAction) {
	if !action.CloseAll {
		return
	}

	log.Warn().
		Interface("stuck_pipes", action.Stuck).
		Msg("Valve open with no dispatch running - forcing all valves closed")

	err := valves.CloseAll()
	if err != nil {
		log.Error().Err(err).Msg("Failsafe could not close every valve")
	}

	if notifier == nil {
		return
	}
	msg := fmt.Sprintf("Valves %v were open with no irrigation running and have been closed", action.Stuck)
	if err != nil {
		msg = fmt.Sprintf("Valves %v are open with no irrigation running and could not be closed: %v", action.Stuck, err)
	}
	if nerr := notifier.Send("Stuck valve", msg); nerr != nil {
		log.Warn().Err(nerr).Msg("Failed to send stuck valve notification")
	}
}
