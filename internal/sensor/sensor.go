package sensor

import (
	"errors"
	"fmt"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

var ErrUnavailable = errors.New("sensor unavailable")

type Reader interface {
	ReadSoilMoisture() (float64, error)
	ReadWeather() (model.WeatherReading, error)
}

// ReadError reports a sensor that could not supply a sample this cycle.
type ReadError struct {
	Sensor string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s sensor: %v", e.Sensor, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
