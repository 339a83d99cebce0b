package model

import (
	"strconv"
	"time"
)

// PipeID identifies an irrigation valve/zone. Configured pipes are 1-255; 0
// is never wired to a valve.
type PipeID uint8

const (
	SoilPipe    PipeID = 10 // raised by the soil moisture monitor
	WeatherPipe PipeID = 15 // raised by the weather monitor
)

func (p PipeID) String() string {
	return "A" + strconv.Itoa(int(p))
}

// WeatherReading is one coherent read of the weather sensors.
type WeatherReading struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	Precipitation float64 `json:"precipitation"`
}

type Thresholds struct {
	Moisture      float64
	Temperature   float64
	Humidity      float64
	Precipitation float64
}

var DefaultThresholds = Thresholds{
	Moisture:      30.0,
	Temperature:   25.0,
	Humidity:      70.0,
	Precipitation: 5.0,
}

const (
	LowPowerEventThreshold = 5
	LowPowerDurationUnits  = 30

	SoilPeriodUnits     = 1
	WeatherPeriodUnits  = 2
	LoggingPeriodUnits  = 5
	LowPowerPeriodUnits = 10
	FailsafePeriodUnits = 5
)

type ControllerPhase string

const (
	PhaseIdle        ControllerPhase = "idle"
	PhaseDispatching ControllerPhase = "dispatching"
)

// Valve is the relay wiring for a single pipe.
type Valve struct {
	Pipe       PipeID
	Pin        int
	ActiveHigh bool
}

type DispatchRecord struct {
	DispatchID string    `json:"dispatch_id"`
	Pipe       PipeID    `json:"pipe"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
}

type LowPowerRecord struct {
	EnteredAt     time.Time `json:"entered_at"`
	ExitedAt      time.Time `json:"exited_at"`
	EventsDrained int64     `json:"events_drained"`
}
