package dispatch

import (
	"context"

	"github.com/notifykit/notifyd/pkg/broadcast"
)

// Observer receives events for one registered listener or assistant.
// Handle runs on a dispatcher goroutine and must honour ctx.
type Observer interface {
	Handle(ctx context.Context, e Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event) error

func (f ObserverFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

// Callbacks is an Observer built from optional per-event functions. Events
// without a callback are ignored.
type Callbacks struct {
	OnPosted        func(ctx context.Context, e PostedEvent) error
	OnRemoved       func(ctx context.Context, e RemovedEvent) error
	OnRankingUpdate func(ctx context.Context, e RankingUpdateEvent) error
	OnHintsChanged  func(ctx context.Context, e HintsChangedEvent) error
	OnEnqueued      func(ctx context.Context, e EnqueuedEvent) error
	OnSnoozed       func(ctx context.Context, e SnoozedEvent) error
	OnSeen          func(ctx context.Context, e SeenEvent) error
}

func (c Callbacks) Handle(ctx context.Context, e Event) error {
	switch e := e.(type) {
	case PostedEvent:
		return call(ctx, c.OnPosted, e)
	case RemovedEvent:
		return call(ctx, c.OnRemoved, e)
	case RankingUpdateEvent:
		return call(ctx, c.OnRankingUpdate, e)
	case HintsChangedEvent:
		return call(ctx, c.OnHintsChanged, e)
	case EnqueuedEvent:
		return call(ctx, c.OnEnqueued, e)
	case SnoozedEvent:
		return call(ctx, c.OnSnoozed, e)
	case SeenEvent:
		return call(ctx, c.OnSeen, e)
	}
	return nil
}

func call[E Event](ctx context.Context, fn func(context.Context, E) error, e E) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, e)
}

// StreamObserver republishes events to a broadcaster so streaming
// transports can follow them.
type StreamObserver struct {
	b *broadcast.MemoryBroadcaster[Event]
}

// NewStreamObserver creates a stream whose subscribers buffer up to
// bufferSize events.
func NewStreamObserver(bufferSize int) *StreamObserver {
	return &StreamObserver{b: broadcast.NewMemoryBroadcaster[Event](bufferSize)}
}

func (s *StreamObserver) Handle(ctx context.Context, e Event) error {
	return s.b.Broadcast(ctx, e)
}

// Subscribe follows the stream until ctx is done.
func (s *StreamObserver) Subscribe(ctx context.Context) broadcast.Subscriber[Event] {
	return s.b.Subscribe(ctx)
}

// Subscribers returns the number of active subscribers.
func (s *StreamObserver) Subscribers() int { return s.b.Subscribers() }

// Close closes every subscriber.
func (s *StreamObserver) Close() error { return s.b.Close() }
