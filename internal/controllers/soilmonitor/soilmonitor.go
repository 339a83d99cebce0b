package soilmonitor

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/metrics"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/scheduler"
	"github.com/thatsimonsguy/irrigation-controller/internal/sensor"
)

type Reader interface {
	ReadSoilMoisture() (float64, error)
}

type Raiser interface {
	RaiseIrrigation(pipe model.PipeID) int64
}

type Monitor struct {
	reader Reader
	raiser Raiser
}

func New(reader Reader, raiser Raiser) *Monitor {
	return &Monitor{reader: reader, raiser: raiser}
}

func NeedsIrrigation(moisture, threshold float64) bool {
	return moisture < threshold
}

// Cycle takes one moisture sample and raises the soil pipe when it is too dry.
// It reports whether an event was raised.
func (m *Monitor) Cycle() bool {
	moisture, err := m.reader.ReadSoilMoisture()
	if err != nil {
		var rerr *sensor.ReadError
		if errors.As(err, &rerr) {
			log.Warn().Err(err).Msg("Soil moisture unavailable, skipping cycle")
		} else {
			log.Error().Err(err).Msg("Soil moisture read failed, skipping cycle")
		}
		metrics.SensorReadFailed("soil_moisture")
		return false
	}

	log.Debug().Float64("moisture", moisture).Msg("Soil moisture sampled")

	if !NeedsIrrigation(moisture, model.DefaultThresholds.Moisture) {
		return false
	}

	count := m.raiser.RaiseIrrigation(model.SoilPipe)
	log.Info().
		Float64("moisture", moisture).
		Float64("threshold", model.DefaultThresholds.Moisture).
		Str("pipe", model.SoilPipe.String()).
		Int64("irrigation_count", count).
		Msg("Soil too dry, irrigation requested")
	metrics.EventRaised("soil", model.SoilPipe, count)
	return true
}

func RunSoilMonitor(sched *scheduler.Scheduler, m *Monitor) {
	log.Info().Msg("Starting soil moisture monitor")
	sched.Every("soil-monitor", model.SoilPeriodUnits, func(context.Context) {
		m.Cycle()
	})
}
