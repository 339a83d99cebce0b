// Package metrics publishes controller activity to Prometheus and mirrors it
// to DogStatsD when Datadog is enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/thatsimonsguy/irrigation-controller/internal/datadog"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

var (
	EventsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_events_raised_total",
		Help: "Irrigation events raised by monitors",
	}, []string{"monitor", "pipe"})

	SensorReadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_sensor_read_failures_total",
		Help: "Monitor cycles skipped because a sensor could not be read",
	}, []string{"sensor"})

	Actuations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_actuations_total",
		Help: "Valve actuations by pipe and result",
	}, []string{"pipe", "result"})

	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "irrigation_dispatch_duration_seconds",
		Help:    "Time spent servicing one pending pipe set",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})

	IrrigationCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "irrigation_counter",
		Help: "Current value of the shared irrigation event counter",
	})

	LowPowerEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "irrigation_low_power_entries_total",
		Help: "Times the controller entered the low-power interval",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_http_requests_total",
		Help: "API requests by method, route and status",
	}, []string{"method", "path", "status"})

	LowPowerActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "irrigation_low_power_active",
		Help: "1 while the low-power interval is in effect",
	})
)

func EventRaised(monitor string, pipe model.PipeID, count int64) {
	EventsRaised.WithLabelValues(monitor, pipe.String()).Inc()
	IrrigationCount.Set(float64(count))
	datadog.Count("events.raised", 1, "monitor:"+monitor, "pipe:"+pipe.String())
	datadog.Gauge("counter", float64(count))
}

func SensorReadFailed(sensor string) {
	SensorReadFailures.WithLabelValues(sensor).Inc()
	datadog.Count("sensor.read_failures", 1, "sensor:"+sensor)
}

func Actuated(pipe model.PipeID, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	Actuations.WithLabelValues(pipe.String(), result).Inc()
	datadog.Count("actuations", 1, "pipe:"+pipe.String(), "result:"+result)
}

func Dispatched(d time.Duration) {
	DispatchDuration.Observe(d.Seconds())
	datadog.Gauge("dispatch.duration_seconds", d.Seconds())
}

func LowPower(active bool, count int64) {
	if active {
		LowPowerEntries.Inc()
		LowPowerActive.Set(1)
		datadog.Count("low_power.entries", 1)
		datadog.Gauge("low_power.active", 1)
	} else {
		LowPowerActive.Set(0)
		datadog.Gauge("low_power.active", 0)
	}
	IrrigationCount.Set(float64(count))
	datadog.Gauge("counter", float64(count))
}
