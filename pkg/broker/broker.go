package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/notifykit/notifyd/pkg/alerting"
	"github.com/notifykit/notifyd/pkg/cache"
	"github.com/notifykit/notifyd/pkg/dispatch"
	"github.com/notifykit/notifyd/pkg/grouping"
	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/notifications"
	"github.com/notifykit/notifyd/pkg/policy"
	"github.com/notifykit/notifyd/pkg/queue"
	"github.com/notifykit/notifyd/pkg/ranking"
	"github.com/notifykit/notifyd/pkg/ratelimiter"
	"github.com/notifykit/notifyd/pkg/snooze"
)

// Deps are the external collaborators of the broker.
type Deps struct {
	Preferences policy.Preferences
	Zen         policy.Zen
	Packages    policy.Packages
	// Profiles is optional; without it observers only see their own user.
	Profiles policy.Profiles
	// Authorizer defaults to policy.AllowAll.
	Authorizer policy.Authorizer
	// Effectors default to log-backed devices.
	Effectors alerting.Effectors
	// Extractors default to ranking.DefaultExtractors.
	Extractors ranking.Extractors
}

// Broker accepts post and cancel requests, applies policy, ranks and groups
// notifications, drives the alert effectors and fans state out to
// observers.
//
// Every mutation runs on the pipeline queue. Deferrable ranking work runs on
// a second queue and observer delivery on a third. All shared state is
// guarded by one mutex; oracle reads happen before it is taken and effector
// I/O after it is released.
type Broker struct {
	cfg        Config
	deps       Deps
	logger     *slog.Logger
	now        func() time.Time
	extractors ranking.Extractors

	tracker    *queue.Tracker
	pipeline   *queue.Serial
	ranker     *queue.Serial
	outbox     *queue.Serial
	dispatcher *dispatch.Dispatcher
	registry   *dispatch.Registry
	rateStore  *ratelimiter.MemoryStore
	limiter    *ratelimiter.Bucket
	history    *cache.LRUCache[string, Removal]

	mu             sync.Mutex
	store          *notifications.Store
	snoozed        *snooze.Store
	grouping       *grouping.Engine
	alerts         *alerting.Engine
	deferred       []*deferred
	timeouts       map[string]queue.CancelFunc
	lastRanking    ranking.Snapshot
	rankingPending bool
	reextract      bool
	delayed        int
	hints          notifications.ListenerHints
	plan           alerting.Plan
	stats          counters
	warnedChannels map[string]struct{}
	rateWarned     map[string]time.Time
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the logger shared by the broker and its components.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the time source used for record timestamps, rate
// limiting and alert throttling.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) {
		if now != nil {
			b.now = now
		}
	}
}

// New builds a broker. It does not process work until Start is called.
func New(cfg Config, deps Deps, opts ...Option) (*Broker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if deps.Preferences == nil || deps.Zen == nil || deps.Packages == nil {
		return nil, fmt.Errorf("%w: preferences, zen and packages oracles are required", ErrMissingDependency)
	}
	if deps.Authorizer == nil {
		deps.Authorizer = policy.AllowAll
	}

	b := &Broker{
		cfg:            cfg,
		deps:           deps,
		logger:         logger.Discard(),
		now:            time.Now,
		store:          notifications.NewStore(),
		timeouts:       make(map[string]queue.CancelFunc),
		stats:          newCounters(),
		warnedChannels: make(map[string]struct{}),
		rateWarned:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(logger.Component("broker"))

	b.extractors = deps.Extractors
	if len(b.extractors) == 0 {
		b.extractors = ranking.DefaultExtractors(deps.Preferences, deps.Zen, deps.Packages)
	}

	b.tracker = queue.NewTracker()
	b.pipeline = queue.NewSerial("pipeline", queue.WithLogger(b.logger), queue.WithTracker(b.tracker))
	b.ranker = queue.NewSerial("ranking", queue.WithLogger(b.logger), queue.WithTracker(b.tracker))
	b.outbox = queue.NewSerial("dispatch", queue.WithLogger(b.logger), queue.WithTracker(b.tracker))
	b.dispatcher = dispatch.NewDispatcher(b.outbox,
		dispatch.WithTimeout(cfg.DispatchTimeout),
		dispatch.WithLogger(b.logger),
	)
	if deps.Profiles != nil {
		b.registry = dispatch.NewRegistry(dispatch.WithProfiles(deps.Profiles))
	} else {
		b.registry = dispatch.NewRegistry()
	}

	b.rateStore = ratelimiter.NewMemoryStore(ratelimiter.WithClock(b.now))
	limiter, err := ratelimiter.NewBucket(b.rateStore, ratelimiter.PerSecond(cfg.MaxEnqueueRate))
	if err != nil {
		b.rateStore.Close()
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	b.limiter = limiter
	b.history = cache.NewLRUCache[string, Removal](cfg.HistorySize)

	b.snoozed = snooze.New(b.pipeline, b.wake, snooze.WithLogger(b.logger), snooze.WithClock(b.now))
	b.grouping = grouping.New(autogrouper{b: b},
		grouping.WithThreshold(cfg.AutogroupThreshold),
		grouping.WithLogger(b.logger),
	)
	b.alerts = alerting.New(alerting.Config{
		CurrentUser:        cfg.CurrentUser,
		AlertInterval:      cfg.AlertInterval,
		LightsWhenScreenOn: cfg.LightsWhenScreenOn,
		FallbackVibration:  cfg.FallbackVibration,
	}, b.store.Find,
		alerting.WithEffectors(deps.Effectors),
		alerting.WithLogger(b.logger),
		alerting.WithClock(b.now),
	)
	return b, nil
}

// Start launches the pipeline, ranking and dispatch workers.
func (b *Broker) Start(ctx context.Context) error {
	for _, q := range []*queue.Serial{b.outbox, b.ranker, b.pipeline} {
		if err := q.Start(ctx); err != nil {
			return fmt.Errorf("start %s queue: %w", q.Name(), err)
		}
	}
	b.logger.LogAttrs(ctx, slog.LevelInfo, "broker started")
	return nil
}

// Stop drains the queues in pipeline, ranking, dispatch order and releases
// the rate limiter.
func (b *Broker) Stop() error {
	var errs []error
	for _, q := range []*queue.Serial{b.pipeline, b.ranker, b.outbox} {
		if err := q.Stop(); err != nil && !errors.Is(err, queue.ErrNotStarted) {
			errs = append(errs, fmt.Errorf("stop %s queue: %w", q.Name(), err))
		}
	}
	b.rateStore.Close()

	b.mu.Lock()
	b.delayed = 0
	b.mu.Unlock()
	return errors.Join(errs...)
}

// Run starts the broker and stops it once ctx is done. It is meant for an
// errgroup.
func (b *Broker) Run(ctx context.Context) func() error {
	return func() error {
		if err := b.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return b.Stop()
	}
}

// Ping reports ErrStopped once the broker no longer accepts work. It is
// the daemon's readiness check.
func (b *Broker) Ping(ctx context.Context) error {
	return b.submit(ctx, "ping", func(context.Context) {})
}

// Sync blocks until every queued task has run, including posts delayed for
// the assistant and the ranking and dispatch work they cause. Snooze and
// timeout timers that have not fired are not waited for.
func (b *Broker) Sync(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if err := b.tracker.Wait(ctx); err != nil {
			return err
		}
		b.mu.Lock()
		delayed := b.delayed
		b.mu.Unlock()
		if delayed == 0 && b.tracker.Pending() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// unlock releases the mutex and then runs the effector commands collected
// while it was held.
func (b *Broker) unlock(ctx context.Context) {
	plan := b.plan
	b.plan = alerting.Plan{}
	b.mu.Unlock()
	if !plan.Empty() {
		b.alerts.Execute(ctx, plan)
	}
}

func (b *Broker) addPlan(p alerting.Plan) {
	if !p.Empty() {
		b.plan = b.plan.Merge(p)
	}
}

// publish hands deliveries to the dispatch worker. Called with the lock
// held so batches keep the order of the mutations that produced them.
func (b *Broker) publish(ctx context.Context, batch []dispatch.Delivery) {
	if err := b.dispatcher.Publish(batch); err != nil {
		b.logger.LogAttrs(ctx, slog.LevelWarn, "dispatch rejected", logger.Count(len(batch)), logger.Error(err))
	}
}

// submit queues fn on the pipeline.
func (b *Broker) submit(ctx context.Context, name string, fn queue.Task) error {
	if err := b.pipeline.Enqueue(name, fn); err != nil {
		b.logger.LogAttrs(ctx, slog.LevelWarn, "pipeline rejected task", logger.Task(name), logger.Error(err))
		return fmt.Errorf("%w: %w", ErrStopped, err)
	}
	return nil
}

func (b *Broker) invariant(ctx context.Context, msg string, attrs ...slog.Attr) {
	b.stats.invariantViolations++
	attrs = append(attrs, logger.Event("invariant_violation"))
	b.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}
