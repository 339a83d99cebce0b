package sensor

import (
	"math/rand"
	"sync"
	"time"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

// Simulated produces random readings in the ranges of the bench rig:
// moisture 0-99 %, temperature 0-49 C, humidity 0-99 %, precipitation 0-19 mm.
type Simulated struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulated(seed int64) *Simulated {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulated{rng: rand.New(rand.NewSource(seed))}
}

func (s *Simulated) ReadSoilMoisture() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.rng.Intn(100)), nil
}

func (s *Simulated) ReadWeather() (model.WeatherReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.WeatherReading{
		Temperature:   float64(s.rng.Intn(50)),
		Humidity:      float64(s.rng.Intn(100)),
		Precipitation: float64(s.rng.Intn(20)),
	}, nil
}
