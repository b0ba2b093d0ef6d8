package queue

import (
	"context"
	"sync"
)

// Tracker counts tasks that are queued or running across one or more
// queues. A task that enqueues follow-up work increments the counter before
// its own completion decrements it, so the count only reaches zero once the
// whole chain has drained.
type Tracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	idle := make(chan struct{})
	close(idle)
	return &Tracker{idle: idle}
}

func (t *Tracker) add() {
	t.mu.Lock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
	t.mu.Unlock()
}

func (t *Tracker) done() {
	t.mu.Lock()
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
	t.mu.Unlock()
}

// Pending returns the number of queued or running tasks.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Wait blocks until no task is queued or running, or ctx is done.
// Timers that have not fired yet are not counted.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
