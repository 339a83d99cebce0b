package sensor

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

const (
	KeySoilMoisture  = "soil_moisture"
	KeyTemperature   = "temperature"
	KeyHumidity      = "humidity"
	KeyPrecipitation = "precipitation"
)

// FileReader reads sensor values from a text file of key=value lines that a
// sensor driver keeps up to date, e.g.
//
//	soil_moisture=23.5
//	temperature=27
//	humidity=64.2
//	precipitation=0.4
type FileReader struct {
	Path       string
	Retries    int
	RetryDelay time.Duration
}

func NewFileReader(path string, retries int) *FileReader {
	return &FileReader{Path: path, Retries: retries, RetryDelay: 200 * time.Millisecond}
}

var readFile = os.ReadFile

func (f *FileReader) ReadSoilMoisture() (float64, error) {
	values, err := f.readWithRetries("soil_moisture", KeySoilMoisture)
	if err != nil {
		return 0, err
	}
	return values[KeySoilMoisture], nil
}

// ReadWeather takes all three values from a single read of the file.
func (f *FileReader) ReadWeather() (model.WeatherReading, error) {
	values, err := f.readWithRetries("weather", KeyTemperature, KeyHumidity, KeyPrecipitation)
	if err != nil {
		return model.WeatherReading{}, err
	}
	return model.WeatherReading{
		Temperature:   values[KeyTemperature],
		Humidity:      values[KeyHumidity],
		Precipitation: values[KeyPrecipitation],
	}, nil
}

func (f *FileReader) readWithRetries(sensorName string, keys ...string) (map[string]float64, error) {
	var values map[string]float64

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.RetryDelay
	bo.MaxElapsedTime = 0

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		data, err := readFile(f.Path)
		if err != nil {
			log.Debug().Err(err).Str("sensor", sensorName).Int("attempt", attempt).Msg("Sensor file read failed")
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		parsed, err := parseValues(data, keys...)
		if err != nil {
			log.Debug().Err(err).Str("sensor", sensorName).Int("attempt", attempt).Msg("Sensor file malformed")
			return err
		}
		values = parsed
		return nil
	}, backoff.WithMaxRetries(bo, uint64(max(f.Retries, 0))))

	if err != nil {
		return nil, &ReadError{Sensor: sensorName, Err: err}
	}
	return values, nil
}

func parseValues(data []byte, keys ...string) (map[string]float64, error) {
	all := make(map[string]float64)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed line %q", line)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", strings.TrimSpace(k), err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %s is not a finite value", ErrUnavailable, strings.TrimSpace(k))
		}
		all[strings.TrimSpace(k)] = f
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		v, ok := all[k]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrUnavailable, k)
		}
		out[k] = v
	}
	return out, nil
}
