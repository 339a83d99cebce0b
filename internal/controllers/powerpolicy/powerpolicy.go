// Package powerpolicy throttles the controller after a burst of irrigation
// events by pausing every task for a fixed interval.
package powerpolicy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/metrics"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/state"
)

type Pauser interface {
	Suspend(ctx context.Context, d time.Duration) error
}

type Recorder interface {
	RecordLowPower(rec model.LowPowerRecord) error
}

type Notifier interface {
	Send(title, message string) error
}

var now = time.Now

type Policy struct {
	state     *state.ControllerState
	pauser    Pauser
	interval  time.Duration
	threshold int64
	recorder  Recorder
	notifier  Notifier
}

// New builds the policy. recorder and notifier may be nil.
func New(st *state.ControllerState, pauser Pauser, interval time.Duration, recorder Recorder, notifier Notifier) *Policy {
	return &Policy{
		state:     st,
		pauser:    pauser,
		interval:  interval,
		threshold: model.LowPowerEventThreshold,
		recorder:  recorder,
		notifier:  notifier,
	}
}

func ShouldEnterLowPower(count, threshold int64) bool {
	return count >= threshold
}

// OnIdle enters the low-power interval once the irrigation counter reaches
// the threshold. Only the observed count is drained afterwards; events raised
// in the meantime carry over.
func (p *Policy) OnIdle(ctx context.Context) {
	count := p.state.Irrigations.Load()
	if !ShouldEnterLowPower(count, p.threshold) {
		return
	}

	entered := now()
	p.state.SetLowPower(true)
	metrics.LowPower(true, count)
	log.Info().
		Int64("irrigation_count", count).
		Dur("duration", p.interval).
		Msg("Entering low power mode")
	p.notify(count)

	err := p.pauser.Suspend(ctx, p.interval)

	remaining := p.state.Irrigations.Drain(count)
	p.state.SetLowPower(false)
	metrics.LowPower(false, remaining)

	exited := now()
	if err != nil {
		log.Warn().Err(err).Msg("Low power interval interrupted")
	}
	log.Info().
		Int64("events_drained", count).
		Int64("carried_over", remaining).
		Dur("elapsed", exited.Sub(entered)).
		Msg("Exiting low power mode")

	if p.recorder != nil {
		rec := model.LowPowerRecord{EnteredAt: entered, ExitedAt: exited, EventsDrained: count}
		if err := p.recorder.RecordLowPower(rec); err != nil {
			log.Warn().Err(err).Msg("Failed to record low power interval")
		}
	}
}

func (p *Policy) notify(count int64) {
	if p.notifier == nil {
		return
	}
	msg := fmt.Sprintf("%d irrigation events since the last pause; pausing tasks for %s", count, p.interval)
	if err := p.notifier.Send("Low power", msg); err != nil {
		log.Warn().Err(err).Msg("Failed to send low power notification")
	}
}
