package valve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/pinctrl"
)

var ErrUnknownPipe = errors.New("no valve configured for pipe")

var (
	setOutput = pinctrl.SetOutput
	readLevel = pinctrl.ReadLevel
	sleep     = func(ctx context.Context, d time.Duration) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
)

type Options struct {
	WaterFor        time.Duration
	SafeMode        bool
	SetRetries      int
	RetryDelay      time.Duration
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
}

// Driver opens a pipe's valve relay for the watering duration and closes it again.
type Driver struct {
	valves   map[model.PipeID]model.Valve
	breakers map[model.PipeID]*gobreaker.CircuitBreaker
	opts     Options
}

func NewDriver(valves []model.Valve, opts Options) *Driver {
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 3
	}
	if opts.BreakerOpenFor <= 0 {
		opts.BreakerOpenFor = time.Minute
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 250 * time.Millisecond
	}

	d := &Driver{
		valves:   make(map[model.PipeID]model.Valve, len(valves)),
		breakers: make(map[model.PipeID]*gobreaker.CircuitBreaker, len(valves)),
		opts:     opts,
	}
	for _, v := range valves {
		d.valves[v.Pipe] = v
		fails := opts.BreakerFailures
		d.breakers[v.Pipe] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "valve-" + v.Pipe.String(),
			Timeout: opts.BreakerOpenFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= fails
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Valve breaker state changed")
			},
		})
	}
	return d
}

// Valves returns the configured valves ordered by pipe.
func (d *Driver) Valves() []model.Valve {
	out := make([]model.Valve, 0, len(d.valves))
	for _, v := range d.valves {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pipe < out[j].Pipe })
	return out
}

// Irrigate opens the valve for the configured duration. The valve is always
// driven closed again, even when the watering window is cut short.
func (d *Driver) Irrigate(ctx context.Context, pipe model.PipeID) error {
	v, ok := d.valves[pipe]
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownPipe, pipe)
	}

	if d.opts.SafeMode {
		log.Info().Str("pipe", pipe.String()).Msg("Safe mode: skipping valve actuation")
		return nil
	}

	var waitErr error
	_, err := d.breakers[pipe].Execute(func() (interface{}, error) {
		if err := d.set(ctx, v, true); err != nil {
			return nil, fmt.Errorf("open valve: %w", err)
		}
		log.Info().Str("pipe", pipe.String()).Int("pin", v.Pin).Dur("duration", d.opts.WaterFor).Msg("Valve opened")

		waitErr = sleep(ctx, d.opts.WaterFor)

		if err := d.set(context.WithoutCancel(ctx), v, false); err != nil {
			return nil, fmt.Errorf("close valve: %w", err)
		}
		log.Info().Str("pipe", pipe.String()).Int("pin", v.Pin).Msg("Valve closed")
		return nil, nil
	})
	if err != nil {
		return err
	}
	return waitErr
}

func (d *Driver) set(ctx context.Context, v model.Valve, open bool) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.opts.RetryDelay
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(max(d.opts.SetRetries, 0))), ctx)

	return backoff.Retry(func() error {
		return setOutput(v.Pin, v.ActiveHigh, open)
	}, policy)
}

// CloseAll drives every valve closed. Errors are collected so one stuck relay
// does not leave the others open.
func (d *Driver) CloseAll() error {
	if d.opts.SafeMode {
		return nil
	}
	var errs []error
	for _, v := range d.Valves() {
		if err := setOutput(v.Pin, v.ActiveHigh, false); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", v.Pipe, err))
		}
	}
	return errors.Join(errs...)
}

// OpenValves lists the pipes whose valve currently reads open.
func (d *Driver) OpenValves() ([]model.PipeID, error) {
	var open []model.PipeID
	for _, v := range d.Valves() {
		level, err := readLevel(v.Pin)
		if err != nil {
			return nil, fmt.Errorf("failed to read pin level for %s (GPIO %d): %w", v.Pipe, v.Pin, err)
		}
		if level == v.ActiveHigh {
			open = append(open, v.Pipe)
		}
	}
	return open, nil
}

// ValidateClosed refuses to start when any valve reads open.
func (d *Driver) ValidateClosed() error {
	open, err := d.OpenValves()
	if err != nil {
		return err
	}
	if len(open) > 0 {
		return fmt.Errorf("valves open at startup: %v", open)
	}
	return nil
}
