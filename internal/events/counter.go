package events

import "sync/atomic"

// Counter counts raised irrigation events. Monitors only increment it;
// the power policy is the only caller of Drain.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Increment() int64 {
	return c.n.Add(1)
}

func (c *Counter) Load() int64 {
	return c.n.Load()
}

// Drain removes the events the caller previously observed with Load. Increments
// that landed after that observation stay counted.
func (c *Counter) Drain(observed int64) int64 {
	for {
		cur := c.n.Load()
		next := cur - observed
		if next < 0 {
			next = 0
		}
		if c.n.CompareAndSwap(cur, next) {
			return next
		}
	}
}
