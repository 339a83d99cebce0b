package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter_IncrementIsAtomic(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Increment()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), c.Load())
}

func TestCounter_DrainKeepsLateIncrements(t *testing.T) {
	var c Counter
	for i := 0; i < 5; i++ {
		c.Increment()
	}
	observed := c.Load()

	c.Increment() // arrives while the observer is busy

	assert.Equal(t, int64(1), c.Drain(observed))
	assert.Equal(t, int64(1), c.Load())
}

func TestCounter_DrainNeverGoesNegative(t *testing.T) {
	var c Counter
	c.Increment()
	assert.Equal(t, int64(0), c.Drain(3))
	assert.Equal(t, int64(0), c.Load())
}
