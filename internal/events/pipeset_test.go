package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

func TestPipeSet_AddHasLen(t *testing.T) {
	var s PipeSet
	assert.True(t, s.Empty())

	s.Add(model.WeatherPipe)
	s.Add(model.SoilPipe)
	s.Add(model.SoilPipe) // merging the same pipe is a no-op

	assert.False(t, s.Empty())
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(model.SoilPipe))
	assert.True(t, s.Has(model.WeatherPipe))
	assert.False(t, s.Has(11))
}

func TestPipeSet_PipesAscending(t *testing.T) {
	s := NewPipeSet(200, model.WeatherPipe, 0, 64, model.SoilPipe, 255)
	assert.Equal(t, []model.PipeID{0, 10, 15, 64, 200, 255}, s.Pipes())
}

func TestPipeSet_Union(t *testing.T) {
	a := NewPipeSet(model.SoilPipe)
	b := NewPipeSet(model.WeatherPipe, 130)

	u := a.Union(b)
	assert.Equal(t, []model.PipeID{10, 15, 130}, u.Pipes())
	assert.Equal(t, 1, a.Len(), "union must not mutate the receiver")
}

func TestPipeSet_String(t *testing.T) {
	assert.Equal(t, "{}", PipeSet{}.String())
	assert.Equal(t, "{A10,A15}", NewPipeSet(model.WeatherPipe, model.SoilPipe).String())
}
