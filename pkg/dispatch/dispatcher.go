package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/notifykit/notifyd/pkg/async"
	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/queue"
)

// DefaultTimeout bounds a single Handle call.
const DefaultTimeout = 5 * time.Second

// Dispatcher delivers batches on its own queue. Batches are delivered one
// at a time; within a batch every observer is served concurrently and
// receives its events in order.
type Dispatcher struct {
	queue     *queue.Serial
	timeout   time.Duration
	logger    *slog.Logger
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds each Handle call.
func WithTimeout(d time.Duration) Option {
	return func(p *Dispatcher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Dispatcher) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher draining q.
func NewDispatcher(q *queue.Serial, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:   q,
		timeout: DefaultTimeout,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish queues batch for delivery.
func (d *Dispatcher) Publish(batch []Delivery) error {
	if len(batch) == 0 {
		return nil
	}
	return d.queue.Enqueue("dispatch", func(ctx context.Context) {
		_ = d.Deliver(ctx, batch)
	})
}

// Delivered returns the number of events handled without error.
func (d *Dispatcher) Delivered() uint64 { return d.delivered.Load() }

// Failed returns the number of events whose Handle call failed.
func (d *Dispatcher) Failed() uint64 { return d.failed.Load() }

type observerBatch struct {
	id       string
	observer Observer
	events   []Event
}

// Deliver hands batch to its observers and waits for all of them.
func (d *Dispatcher) Deliver(ctx context.Context, batch []Delivery) error {
	var groups []*observerBatch
	byID := make(map[string]*observerBatch)
	for _, del := range batch {
		g, ok := byID[del.ObserverID]
		if !ok {
			g = &observerBatch{id: del.ObserverID, observer: del.Observer}
			byID[del.ObserverID] = g
			groups = append(groups, g)
		}
		g.events = append(g.events, del.Event)
	}

	futures := make([]*async.Future[int], 0, len(groups))
	for _, g := range groups {
		futures = append(futures, async.Async(ctx, g, d.deliverTo))
	}
	_, err := async.WaitAll(futures...)
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "observer delivery failed",
			slog.Int("observers", len(groups)),
			logger.Count(len(batch)),
			logger.Error(err),
		)
	}
	return err
}

func (d *Dispatcher) deliverTo(ctx context.Context, g *observerBatch) (int, error) {
	var errs []error
	for _, e := range g.events {
		hctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := g.observer.Handle(hctx, e)
		cancel()
		if err != nil {
			d.failed.Add(1)
			errs = append(errs, fmt.Errorf("observer %s: %s: %w", g.id, e.Kind(), err))
			continue
		}
		d.delivered.Add(1)
	}
	return len(g.events), errors.Join(errs...)
}
