package events

import (
	"context"
	"sync"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

// Mailbox accumulates pending irrigation requests for a single consumer.
// Raises are merged by set union; Take reads and clears the whole set in one step.
type Mailbox struct {
	mu      sync.Mutex
	pending PipeSet
	ready   chan struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

func (m *Mailbox) Raise(p model.PipeID) {
	m.mu.Lock()
	m.pending.Add(p)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default: // a wake-up is already queued
	}
}

func (m *Mailbox) Take() PipeSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.pending
	m.pending = PipeSet{}
	return s
}

func (m *Mailbox) Peek() PipeSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Wait blocks until at least one pipe is pending, then takes the whole set.
// It only returns early when ctx is cancelled.
func (m *Mailbox) Wait(ctx context.Context) (PipeSet, error) {
	for {
		if s := m.Take(); !s.Empty() {
			return s, nil
		}
		select {
		case <-m.ready:
		case <-ctx.Done():
			return PipeSet{}, ctx.Err()
		}
	}
}
