package sensor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSensorFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensors.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestFileReader_ReadSoilMoisture(t *testing.T) {
	path := writeSensorFile(t, "# bench rig\nsoil_moisture = 23.5\ntemperature=27\n")
	r := NewFileReader(path, 0)

	m, err := r.ReadSoilMoisture()
	require.NoError(t, err)
	assert.Equal(t, 23.5, m)
}

func TestFileReader_ReadWeather(t *testing.T) {
	path := writeSensorFile(t, "temperature=30\nhumidity=80\nprecipitation=10\n")
	r := NewFileReader(path, 0)

	w, err := r.ReadWeather()
	require.NoError(t, err)
	assert.Equal(t, 30.0, w.Temperature)
	assert.Equal(t, 80.0, w.Humidity)
	assert.Equal(t, 10.0, w.Precipitation)
}

func TestFileReader_MissingFile(t *testing.T) {
	r := NewFileReader(filepath.Join(t.TempDir(), "nope.txt"), 0)

	_, err := r.ReadSoilMoisture()
	require.Error(t, err)

	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, "soil_moisture", readErr.Sensor)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFileReader_MissingKey(t *testing.T) {
	path := writeSensorFile(t, "temperature=30\nhumidity=80\n")
	r := NewFileReader(path, 0)

	_, err := r.ReadWeather()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFileReader_MalformedValue(t *testing.T) {
	path := writeSensorFile(t, "soil_moisture=wet\n")
	r := NewFileReader(path, 0)

	_, err := r.ReadSoilMoisture()
	var readErr *ReadError
	assert.True(t, errors.As(err, &readErr))
}

func TestFileReader_NonFiniteValue(t *testing.T) {
	for _, raw := range []string{"NaN", "Inf", "-inf"} {
		path := writeSensorFile(t, "soil_moisture="+raw+"\ntemperature=20\nhumidity=80\nprecipitation="+raw+"\n")
		r := NewFileReader(path, 0)

		_, err := r.ReadSoilMoisture()
		var readErr *ReadError
		require.True(t, errors.As(err, &readErr), raw)
		assert.ErrorIs(t, err, ErrUnavailable)

		_, err = r.ReadWeather()
		assert.ErrorIs(t, err, ErrUnavailable, raw)
	}
}

func TestFileReader_RetriesUntilReadable(t *testing.T) {
	orig := readFile
	defer func() { readFile = orig }()

	calls := 0
	readFile = func(string) ([]byte, error) {
		calls++
		if calls < 3 {
			return nil, os.ErrNotExist
		}
		return []byte("soil_moisture=41\n"), nil
	}

	r := NewFileReader("ignored", 3)
	r.RetryDelay = 0

	m, err := r.ReadSoilMoisture()
	require.NoError(t, err)
	assert.Equal(t, 41.0, m)
	assert.Equal(t, 3, calls)
}

func TestFileReader_GivesUpAfterRetries(t *testing.T) {
	orig := readFile
	defer func() { readFile = orig }()

	calls := 0
	readFile = func(string) ([]byte, error) {
		calls++
		return nil, os.ErrNotExist
	}

	r := NewFileReader("ignored", 2)
	r.RetryDelay = 0

	_, err := r.ReadSoilMoisture()
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, calls, "one initial attempt plus two retries")
}

func TestSimulated_Ranges(t *testing.T) {
	s := NewSimulated(42)
	for i := 0; i < 500; i++ {
		m, err := s.ReadSoilMoisture()
		require.NoError(t, err)
		assert.True(t, m >= 0 && m < 100)

		w, err := s.ReadWeather()
		require.NoError(t, err)
		assert.True(t, w.Temperature >= 0 && w.Temperature < 50)
		assert.True(t, w.Humidity >= 0 && w.Humidity < 100)
		assert.True(t, w.Precipitation >= 0 && w.Precipitation < 20)
	}
}
