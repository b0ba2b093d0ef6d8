package broadcast

import (
	"context"
	"sync"
)

// Message wraps data of type T. Seq is assigned by the broadcaster and
// increases by one per Broadcast call, so a subscriber can detect gaps.
type Message[T any] struct {
	Seq  uint64
	Data T
}

// Subscriber receives messages from a Broadcaster. Safe for concurrent use.
type Subscriber[T any] interface {
	// Receive returns the channel messages are delivered on. It is closed
	// when the subscriber is closed or evicted.
	Receive() <-chan Message[T]

	// Close releases the subscription. Idempotent.
	Close() error
}

// Broadcaster sends each message to every subscriber without blocking the
// sender.
type Broadcaster[T any] interface {
	// Subscribe registers a subscriber that lives until ctx is done or the
	// subscriber is closed.
	Subscribe(ctx context.Context) Subscriber[T]

	// Broadcast delivers data to all active subscribers.
	Broadcast(ctx context.Context, data T) error

	// Close shuts the broadcaster down and closes every subscriber.
	Close() error
}

type subscriber[T any] struct {
	ch     chan Message[T]
	closed bool
	mu     sync.RWMutex
}

func newSubscriber[T any](bufferSize int) *subscriber[T] {
	return &subscriber[T]{ch: make(chan Message[T], bufferSize)}
}

func (s *subscriber[T]) Receive() <-chan Message[T] {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

// send reports false when the subscriber is closed or its buffer is full.
func (s *subscriber[T]) send(msg Message[T]) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}
