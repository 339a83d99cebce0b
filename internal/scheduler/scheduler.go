// Package scheduler runs the controller's tasks as goroutines and calls idle
// hooks whenever no task section is running.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// IdleHook is invoked opportunistically when nothing else is runnable.
// No cadence is guaranteed.
type IdleHook interface {
	OnIdle(ctx context.Context)
}

type IdleHookFunc func(ctx context.Context)

func (f IdleHookFunc) OnIdle(ctx context.Context) { f(ctx) }

type task struct {
	name string
	run  func(ctx context.Context)
}

type Scheduler struct {
	unit time.Duration

	gate  sync.RWMutex
	busy  atomic.Int32
	idle  chan struct{}
	hooks []IdleHook
	tasks []task

	wg sync.WaitGroup
}

func New(unit time.Duration) *Scheduler {
	if unit <= 0 {
		unit = time.Second
	}
	return &Scheduler{
		unit: unit,
		idle: make(chan struct{}, 1),
	}
}

// Units converts a number of scheduler time units into a duration.
func (s *Scheduler) Units(n int) time.Duration {
	return time.Duration(n) * s.unit
}

func (s *Scheduler) OnIdle(h IdleHook) {
	s.hooks = append(s.hooks, h)
}

// Spawn registers a long-lived task. The task is responsible for wrapping its
// working sections in Do.
func (s *Scheduler) Spawn(name string, run func(ctx context.Context)) {
	s.tasks = append(s.tasks, task{name: name, run: run})
}

// Every registers a task whose body runs once per period.
func (s *Scheduler) Every(name string, periodUnits int, body func(ctx context.Context)) {
	period := s.Units(periodUnits)
	s.Spawn(name, func(ctx context.Context) {
		for {
			s.Do(func() { body(ctx) })
			if err := Sleep(ctx, period); err != nil {
				return
			}
		}
	})
}

// Do runs fn as a task section. Sections never overlap a Suspend.
func (s *Scheduler) Do(fn func()) {
	s.gate.RLock()
	s.busy.Add(1)
	defer func() {
		if s.busy.Add(-1) == 0 {
			s.signalIdle()
		}
		s.gate.RUnlock()
	}()
	fn()
}

// Suspend blocks every task section for d. It waits for running sections to
// finish first.
func (s *Scheduler) Suspend(ctx context.Context, d time.Duration) error {
	s.gate.Lock()
	defer s.gate.Unlock()
	return Sleep(ctx, d)
}

func (s *Scheduler) Busy() int {
	return int(s.busy.Load())
}

// Run starts every registered task and the idle loop, and blocks until ctx is
// cancelled and all tasks have returned.
func (s *Scheduler) Run(ctx context.Context) error {
	for _, t := range s.tasks {
		t := t
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.Info().Str("task", t.name).Msg("Starting task")
			t.run(ctx)
			log.Debug().Str("task", t.name).Msg("Task stopped")
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.idleLoop(ctx)
	}()

	s.signalIdle()
	<-ctx.Done()
	s.wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) idleLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.idle:
		}
		if s.busy.Load() != 0 {
			continue
		}
		for _, h := range s.hooks {
			h.OnIdle(ctx)
		}
	}
}

func (s *Scheduler) signalIdle() {
	select {
	case s.idle <- struct{}{}:
	default:
	}
}

// Sleep waits for d or until ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
