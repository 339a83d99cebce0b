package weathermonitor

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/metrics"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/scheduler"
)

type Reader interface {
	ReadWeather() (model.WeatherReading, error)
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

// Evaluate reports whether any weather condition calls for irrigation and
// which ones did. Precipitation below the threshold counts as a breach.
func Evaluate(r model.WeatherReading, th model.Thresholds) (bool, []string) {
	var breached []string
	if r.Temperature > th.Temperature {
		breached = append(breached, "temperature")
	}
	if r.Humidity < th.Humidity {
		breached = append(breached, "humidity")
	}
	if r.Precipitation < th.Precipitation {
		breached = append(breached, "precipitation")
	}
	return len(breached) > 0, breached
}

// Cycle reads the weather sensors once and raises the weather pipe when any
// condition is breached.
func (m *Monitor) Cycle() bool {
	reading, err := m.reader.ReadWeather()
	if err != nil {
		log.Warn().Err(err).Msg("Weather unavailable, skipping cycle")
		metrics.SensorReadFailed("weather")
		return false
	}

	raise, breached := Evaluate(reading, model.DefaultThresholds)
	log.Debug().
		Float64("temperature", reading.Temperature).
		Float64("humidity", reading.Humidity).
		Float64("precipitation", reading.Precipitation).
		Strs("breached", breached).
		Msg("Weather sampled")

	if !raise {
		return false
	}

	count := m.raiser.RaiseIrrigation(model.WeatherPipe)
	log.Info().
		Strs("breached", breached).
		Str("pipe", model.WeatherPipe.String()).
		Int64("irrigation_count", count).
		Msg("Weather conditions require irrigation")
	metrics.EventRaised("weather", model.WeatherPipe, count)
	return true
}

func RunWeatherMonitor(sched *scheduler.Scheduler, m *Monitor) {
	log.Info().Msg("Starting weather monitor")
	sched.Every("weather-monitor", model.WeatherPeriodUnits, func(context.Context) {
		m.Cycle()
	})
}
