package irrigationcontroller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/events"
	"github.com/thatsimonsguy/irrigation-controller/internal/metrics"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/scheduler"
	"github.com/thatsimonsguy/irrigation-controller/internal/state"
)

type Actuator interface {
	Irrigate(ctx context.Context, pipe model.PipeID) error
}

type Recorder interface {
	RecordDispatch(rec model.DispatchRecord) error
}

type Notifier interface {
	Send(title, message string) error
}

// Sections runs a unit of task work; the scheduler's Do satisfies it.
type Sections interface {
	Do(fn func())
}

// ActuationError reports a pipe whose valve could not be driven.
type ActuationError struct {
	Pipe model.PipeID
	Err  error
}

func (e *ActuationError) Error() string {
	return fmt.Sprintf("irrigate pipe %s: %v", e.Pipe, e.Err)
}

func (e *ActuationError) Unwrap() error {
	return e.Err
}

var now = time.Now

type Controller struct {
	state    *state.ControllerState
	actuator Actuator
	recorder Recorder
	notifier Notifier
}

// New builds a controller. recorder and notifier may be nil.
func New(st *state.ControllerState, actuator Actuator, recorder Recorder, notifier Notifier) *Controller {
	return &Controller{state: st, actuator: actuator, recorder: recorder, notifier: notifier}
}

func (c *Controller) State() model.ControllerPhase {
	return c.state.Phase()
}

// Dispatch services every pipe in set once, in ascending pipe order. A failing
// pipe does not stop the rest; all failures are returned joined.
func (c *Controller) Dispatch(ctx context.Context, set events.PipeSet) error {
	c.state.SetPhase(model.PhaseDispatching)
	defer c.state.SetPhase(model.PhaseIdle)

	dispatchID := uuid.NewString()
	started := now()
	log.Info().Str("dispatch_id", dispatchID).Str("pipes", set.String()).Msg("Dispatching irrigation")

	var errs []error
	for _, pipe := range set.Pipes() {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		log.Info().Str("dispatch_id", dispatchID).Msgf("Pipe no. %s", pipe)
		pipeStart := now()
		err := c.actuator.Irrigate(ctx, pipe)
		metrics.Actuated(pipe, err)

		rec := model.DispatchRecord{
			DispatchID: dispatchID,
			Pipe:       pipe,
			StartedAt:  pipeStart,
			FinishedAt: now(),
			OK:         err == nil,
		}
		if err != nil {
			rec.Error = err.Error()
			errs = append(errs, &ActuationError{Pipe: pipe, Err: err})
			log.Error().Err(err).Str("dispatch_id", dispatchID).Str("pipe", pipe.String()).Msg("Irrigation failed")
		}
		c.record(rec)
	}

	metrics.Dispatched(now().Sub(started))

	err := errors.Join(errs...)
	if err != nil && ctx.Err() == nil {
		c.notify(dispatchID, errs)
	}
	return err
}

func (c *Controller) record(rec model.DispatchRecord) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordDispatch(rec); err != nil {
		log.Warn().Err(err).Str("dispatch_id", rec.DispatchID).Msg("Failed to record dispatch")
	}
}

func (c *Controller) notify(dispatchID string, errs []error) {
	if c.notifier == nil {
		return
	}
	var pipes []string
	for _, err := range errs {
		var aerr *ActuationError
		if errors.As(err, &aerr) {
			pipes = append(pipes, aerr.Pipe.String())
		}
	}
	msg := fmt.Sprintf("Valve actuation failed for %s (dispatch %s)", strings.Join(pipes, ", "), dispatchID)
	if err := c.notifier.Send("Actuation failure", msg); err != nil {
		log.Warn().Err(err).Msg("Failed to send actuation failure notification")
	}
}

// Run waits for pending pipes and dispatches them until ctx is cancelled.
// Waiting happens outside any task section.
func (c *Controller) Run(ctx context.Context, sections Sections) error {
	for {
		set, err := c.state.Events.Wait(ctx)
		if err != nil {
			return err
		}
		sections.Do(func() {
			if err := c.Dispatch(ctx, set); err != nil {
				log.Warn().Err(err).Str("pipes", set.String()).Msg("Dispatch completed with errors")
			}
		})
	}
}

func RunIrrigationController(sched *scheduler.Scheduler, c *Controller) {
	log.Info().Msg("Starting irrigation controller")
	sched.Spawn("irrigation-controller", func(ctx context.Context) {
		if err := c.Run(ctx, sched); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Irrigation controller stopped unexpectedly")
		}
	})
}
