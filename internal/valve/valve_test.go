package valve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

type pinCall struct {
	pin    int
	active bool
}

func mockPins(t *testing.T, fail func(pin int, active bool) error) *[]pinCall {
	t.Helper()
	origSet, origSleep := setOutput, sleep
	t.Cleanup(func() { setOutput, sleep = origSet, origSleep })

	calls := &[]pinCall{}
	setOutput = func(pin int, activeHigh, active bool) error {
		*calls = append(*calls, pinCall{pin, active})
		if fail != nil {
			return fail(pin, active)
		}
		return nil
	}
	sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return calls
}

var testValves = []model.Valve{
	{Pipe: model.WeatherPipe, Pin: 27, ActiveHigh: true},
	{Pipe: model.SoilPipe, Pin: 17, ActiveHigh: false},
}

func TestIrrigate_OpensThenCloses(t *testing.T) {
	calls := mockPins(t, nil)
	d := NewDriver(testValves, Options{WaterFor: time.Second})

	require.NoError(t, d.Irrigate(context.Background(), model.SoilPipe))
	assert.Equal(t, []pinCall{{17, true}, {17, false}}, *calls)
}

func TestIrrigate_UnknownPipe(t *testing.T) {
	mockPins(t, nil)
	d := NewDriver(testValves, Options{})

	err := d.Irrigate(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUnknownPipe)
}

func TestIrrigate_SafeModeSkipsPins(t *testing.T) {
	calls := mockPins(t, nil)
	d := NewDriver(testValves, Options{SafeMode: true})

	require.NoError(t, d.Irrigate(context.Background(), model.WeatherPipe))
	assert.Empty(t, *calls)
	require.NoError(t, d.CloseAll())
	assert.Empty(t, *calls)
}

func TestIrrigate_RetriesPinSet(t *testing.T) {
	attempts := 0
	calls := mockPins(t, func(pin int, active bool) error {
		if active {
			attempts++
			if attempts < 3 {
				return errors.New("relay busy")
			}
		}
		return nil
	})
	d := NewDriver(testValves, Options{SetRetries: 3, RetryDelay: time.Microsecond})

	require.NoError(t, d.Irrigate(context.Background(), model.SoilPipe))
	assert.Equal(t, 3, attempts)
	assert.Len(t, *calls, 4)
}

func TestIrrigate_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := mockPins(t, func(int, bool) error { return errors.New("relay dead") })
	d := NewDriver(testValves, Options{BreakerFailures: 2, BreakerOpenFor: time.Hour, RetryDelay: time.Microsecond})

	for i := 0; i < 2; i++ {
		assert.Error(t, d.Irrigate(context.Background(), model.SoilPipe))
	}
	before := len(*calls)

	err := d.Irrigate(context.Background(), model.SoilPipe)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, before, len(*calls), "open breaker must not touch the relay")

	// other valves keep their own breaker
	err = d.Irrigate(context.Background(), model.WeatherPipe)
	assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestIrrigate_CancelledStillCloses(t *testing.T) {
	calls := mockPins(t, nil)
	d := NewDriver(testValves, Options{WaterFor: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Irrigate(ctx, model.WeatherPipe)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotEmpty(t, *calls)
	assert.Equal(t, pinCall{27, false}, (*calls)[len(*calls)-1])
}

func TestCloseAll(t *testing.T) {
	calls := mockPins(t, func(pin int, active bool) error {
		if pin == 17 {
			return errors.New("stuck")
		}
		return nil
	})
	d := NewDriver(testValves, Options{})

	err := d.CloseAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A10")
	assert.Equal(t, []pinCall{{17, false}, {27, false}}, *calls)
}

func TestValidateClosed(t *testing.T) {
	orig := readLevel
	defer func() { readLevel = orig }()

	levels := map[int]bool{17: true, 27: false} // 17 is active-low, so high means closed
	readLevel = func(pin int) (bool, error) { return levels[pin], nil }

	d := NewDriver(testValves, Options{})
	require.NoError(t, d.ValidateClosed())

	levels[27] = true
	assert.Error(t, d.ValidateClosed())

	open, err := d.OpenValves()
	require.NoError(t, err)
	assert.Equal(t, []model.PipeID{model.WeatherPipe}, open)

	readLevel = func(int) (bool, error) { return false, errors.New("pinctrl missing") }
	_, err = d.OpenValves()
	assert.Error(t, err)
}
