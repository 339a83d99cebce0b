package powerpolicy

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/scheduler"
	"github.com/thatsimonsguy/irrigation-controller/internal/state"
)

type fakePauser struct {
	calls    []time.Duration
	lowPower []bool
	during   func()
	st       *state.ControllerState
}

func (p *fakePauser) Suspend(_ context.Context, d time.Duration) error {
	p.calls = append(p.calls, d)
	if p.st != nil {
		p.lowPower = append(p.lowPower, p.st.LowPower())
	}
	if p.during != nil {
		p.during()
	}
	return nil
}

type fakeRecorder struct {
	recs []model.LowPowerRecord
}

func (r *fakeRecorder) RecordLowPower(rec model.LowPowerRecord) error {
	r.recs = append(r.recs, rec)
	return nil
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(title, message string) error {
	args := m.Called(title, message)
	return args.Error(0)
}

func raise(st *state.ControllerState, n int) {
	for i := 0; i < n; i++ {
		st.RaiseIrrigation(model.SoilPipe)
	}
}

func TestShouldEnterLowPower(t *testing.T) {
	assert.False(t, ShouldEnterLowPower(0, 5))
	assert.False(t, ShouldEnterLowPower(4, 5))
	assert.True(t, ShouldEnterLowPower(5, 5))
	assert.True(t, ShouldEnterLowPower(9, 5))
}

func TestOnIdle_BelowThresholdIsNoop(t *testing.T) {
	st := state.New()
	raise(st, 4)
	pauser := &fakePauser{}
	p := New(st, pauser, 30*time.Second, nil, nil)

	p.OnIdle(context.Background())

	assert.Empty(t, pauser.calls)
	assert.Equal(t, int64(4), st.Irrigations.Load())
	assert.False(t, st.LowPower())
}

func TestOnIdle_AtThresholdSuspendsAndResets(t *testing.T) {
	st := state.New()
	raise(st, 5)
	pauser := &fakePauser{st: st}
	rec := &fakeRecorder{}
	notifier := &MockNotifier{}
	notifier.On("Send", "Low power", mock.MatchedBy(func(msg string) bool {
		return strings.HasPrefix(msg, "5 irrigation events")
	})).Return(errors.New("ntfy down")).Once()
	p := New(st, pauser, 30*time.Second, rec, notifier)

	p.OnIdle(context.Background())

	assert.Equal(t, []time.Duration{30 * time.Second}, pauser.calls)
	assert.Equal(t, []bool{true}, pauser.lowPower)
	assert.Equal(t, int64(0), st.Irrigations.Load())
	assert.False(t, st.LowPower())
	notifier.AssertExpectations(t)
	require.Len(t, rec.recs, 1)
	assert.Equal(t, int64(5), rec.recs[0].EventsDrained)

	// counter was reset, so the next idle call does nothing
	p.OnIdle(context.Background())
	assert.Len(t, pauser.calls, 1)
}

func TestOnIdle_IncrementDuringIntervalCarriesOver(t *testing.T) {
	st := state.New()
	raise(st, 6)
	pauser := &fakePauser{during: func() { raise(st, 2) }}
	p := New(st, pauser, time.Second, nil, nil)

	p.OnIdle(context.Background())

	assert.Equal(t, int64(2), st.Irrigations.Load())
}

// Four events leave the system running; the fifth pauses every task for the
// low-power interval, after which the counter starts over.
func TestLowPower_FifthEventPausesScheduler(t *testing.T) {
	st := state.New()
	sched := scheduler.New(2 * time.Millisecond)
	p := New(st, sched, sched.Units(model.LowPowerDurationUnits), nil, nil)
	sched.OnIdle(p)

	var ticks atomic.Int32
	sched.Every("tick", 1, func(context.Context) { ticks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	raise(st, 4)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, st.LowPower())
	assert.Equal(t, int64(4), st.Irrigations.Load())

	raise(st, 1)
	require.Eventually(t, st.LowPower, time.Second, 100*time.Microsecond)

	time.Sleep(5 * time.Millisecond)
	frozen := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if st.LowPower() {
		assert.Equal(t, frozen, ticks.Load(), "no task section runs during low power")
	}

	assert.Eventually(t, func() bool { return st.Irrigations.Load() == 0 && !st.LowPower() }, time.Second, time.Millisecond)

	resumed := ticks.Load()
	assert.Eventually(t, func() bool { return ticks.Load() > resumed }, time.Second, time.Millisecond)
}
