package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/notifykit/notifyd/pkg/logger"
)

// Task is a unit of work executed on the queue goroutine.
type Task func(ctx context.Context)

// CancelFunc stops a delayed task. It reports whether the task was still
// pending.
type CancelFunc func() bool

type item struct {
	name string
	fn   Task
	done chan struct{}
}

// Serial is a multi-producer FIFO drained by exactly one goroutine. Tasks
// never run concurrently with each other and run in submission order.
type Serial struct {
	name    string
	id      uuid.UUID
	logger  *slog.Logger
	tracker *Tracker

	mu        sync.Mutex
	items     []item
	closed    bool
	started   bool
	timers    map[uint64]*time.Timer
	nextTimer uint64

	signal  chan struct{}
	stopped chan struct{}
	ctx     context.Context
	pending atomic.Int64
}

// NewSerial creates a queue. Tasks may be enqueued before Start; they run
// once the queue is started.
func NewSerial(name string, opts ...Option) *Serial {
	q := &Serial{
		name:    name,
		id:      uuid.New(),
		logger:  logger.Discard(),
		timers:  make(map[uint64]*time.Timer),
		signal:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.tracker == nil {
		q.tracker = NewTracker()
	}
	return q
}

// Name returns the queue name.
func (q *Serial) Name() string { return q.name }

// Enqueue appends a task. It never blocks.
func (q *Serial) Enqueue(name string, fn Task) error {
	if fn == nil {
		return ErrNilTask
	}
	return q.push(item{name: name, fn: fn})
}

func (q *Serial) push(it item) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.pending.Add(1)
	q.tracker.add()
	q.items = append(q.items, it)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// EnqueueAfter enqueues fn once d has elapsed. The timer goroutine only
// enqueues; fn itself runs on the queue goroutine like any other task.
func (q *Serial) EnqueueAfter(d time.Duration, name string, fn Task) CancelFunc {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return func() bool { return false }
	}
	id := q.nextTimer
	q.nextTimer++
	q.timers[id] = time.AfterFunc(d, func() {
		q.mu.Lock()
		_, live := q.timers[id]
		delete(q.timers, id)
		q.mu.Unlock()
		if !live {
			return
		}
		if err := q.Enqueue(name, fn); err != nil {
			q.logger.LogAttrs(q.ctx, slog.LevelDebug, "delayed task dropped",
				logger.Component(q.name),
				logger.Task(name),
				logger.Error(err),
			)
		}
	})
	q.mu.Unlock()

	return func() bool {
		q.mu.Lock()
		t, ok := q.timers[id]
		delete(q.timers, id)
		q.mu.Unlock()
		return ok && t.Stop()
	}
}

// Flush blocks until every task enqueued before the call has run.
func (q *Serial) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := q.push(item{name: "flush", done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of tasks queued or running on this queue.
func (q *Serial) Pending() int {
	return int(q.pending.Load())
}

// Start launches the consumer goroutine. Values carried by ctx are visible
// to tasks; its cancellation is not, use Stop to shut down.
func (q *Serial) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return ErrAlreadyStarted
	}
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.started = true
	q.ctx = context.WithoutCancel(ctx)
	q.mu.Unlock()

	go q.loop()

	q.logger.LogAttrs(ctx, slog.LevelDebug, "queue started",
		logger.Component(q.name),
		slog.String("queue_id", q.id.String()),
	)
	return nil
}

// Stop rejects new work, cancels pending timers and waits until the tasks
// already queued have run.
func (q *Serial) Stop() error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return ErrNotStarted
	}
	if q.closed {
		q.mu.Unlock()
		<-q.stopped
		return nil
	}
	q.closed = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	<-q.stopped

	q.logger.LogAttrs(q.ctx, slog.LevelDebug, "queue stopped",
		logger.Component(q.name),
		slog.String("queue_id", q.id.String()),
	)
	return nil
}

// Run starts the queue and returns a function suitable for errgroup.
func (q *Serial) Run(ctx context.Context) func() error {
	return func() error {
		if err := q.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return q.Stop()
	}
}

func (q *Serial) loop() {
	defer close(q.stopped)
	for {
		it, ok := q.next()
		if !ok {
			return
		}
		q.execute(it)
	}
}

func (q *Serial) next() (item, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it := q.items[0]
			q.items[0] = item{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return it, true
		}
		if q.closed {
			q.mu.Unlock()
			return item{}, false
		}
		q.mu.Unlock()
		<-q.signal
	}
}

func (q *Serial) execute(it item) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.LogAttrs(q.ctx, slog.LevelError, "task panicked",
				logger.Component(q.name),
				logger.Task(it.name),
				slog.Any("panic", r),
			)
		}
		q.pending.Add(-1)
		q.tracker.done()
		if it.done != nil {
			close(it.done)
		}
	}()

	if it.fn != nil {
		it.fn(logger.WithTask(q.ctx, it.name))
	}
}
