package broker

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/notifykit/notifyd/pkg/dispatch"
	"github.com/notifykit/notifyd/pkg/grouping"
	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/notifications"
	"github.com/notifykit/notifyd/pkg/policy"
	"github.com/notifykit/notifyd/pkg/ranking"
)

// rateWarnInterval throttles the rate-limit warning per package.
const rateWarnInterval = 5 * time.Second

var validate = validator.New(validator.WithRequiredStructEnabled())

// EnqueueRequest is an app's request to post or update a notification.
type EnqueueRequest struct {
	Package    string `json:"package" validate:"required,excludes=0x7C"`
	OpPackage  string `json:"op_package,omitempty" validate:"excludes=0x7C"`
	CallingUID int    `json:"calling_uid" validate:"gte=0"`
	CallingPID int    `json:"calling_pid" validate:"gte=0"`
	UserID     int    `json:"user_id" validate:"gte=0"`
	Tag        string `json:"tag,omitempty"`
	ID         int    `json:"id"`

	Payload *notifications.Payload `json:"payload" validate:"required"`

	// ForegroundService marks the notification as belonging to a running
	// foreground service. Apps cannot cancel such notifications.
	ForegroundService bool `json:"foreground_service,omitempty"`
}

func (r EnqueueRequest) caller() policy.Caller {
	return policy.Caller{
		Package:    r.Package,
		OpPackage:  r.OpPackage,
		CallingUID: r.CallingUID,
		CallingPID: r.CallingPID,
		UserID:     r.UserID,
	}
}

// Key returns the notification key the request posts under.
func (r EnqueueRequest) Key() string {
	return notifications.Key(r.UserID, r.Package, r.ID, r.Tag)
}

// Enqueue validates and admits a post request. Requests dropped by policy
// return nil; only malformed or unauthorized requests fail.
func (b *Broker) Enqueue(ctx context.Context, req EnqueueRequest) error {
	if err := b.check(ctx, req, req.caller()); err != nil {
		return err
	}

	pkg, uid, p := req.Package, req.CallingUID, req.Payload
	key := req.Key()
	channel, ok := b.deps.Preferences.Channel(pkg, uid, p.ChannelID)
	if !ok {
		b.missingChannel(ctx, pkg, key, p.ChannelID)
		return nil
	}
	switch {
	case b.deps.Preferences.Importance(pkg, uid) == notifications.ImportanceNone,
		channel.Importance == notifications.ImportanceNone,
		b.deps.Preferences.IsGroupBlocked(pkg, uid, p.Group):
		b.drop(ctx, pkg, key, DropBlocked)
		return nil
	case b.deps.Packages.IsSuspended(pkg, req.UserID):
		b.drop(ctx, pkg, key, DropSuspended)
		return nil
	}

	r := notifications.NewRecord(notifications.Identity{
		Package:   pkg,
		OpPackage: req.OpPackage,
		Tag:       req.Tag,
		ID:        req.ID,
		UID:       uid,
		PID:       req.CallingPID,
		UserID:    req.UserID,
	}, p, channel, b.now())
	if req.ForegroundService {
		r.MarkForegroundService()
	}
	return b.admit(ctx, r)
}

// check validates v and authorizes the caller.
func (b *Broker) check(ctx context.Context, v any, c policy.Caller) error {
	if err := validate.StructCtx(ctx, v); err != nil {
		b.callerError(ctx, c, err)
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := b.deps.Authorizer.Authorize(ctx, c); err != nil {
		b.callerError(ctx, c, err)
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return nil
}

func (b *Broker) callerError(ctx context.Context, c policy.Caller, err error) {
	b.mu.Lock()
	b.stats.callerErrors++
	b.mu.Unlock()
	b.logger.LogAttrs(ctx, slog.LevelDebug, "request rejected",
		logger.Package(c.Package),
		slog.Int("uid", c.CallingUID),
		logger.Error(err),
	)
}

// admit applies the snooze, quota and rate checks and queues the record.
func (b *Broker) admit(ctx context.Context, r *notifications.Record) error {
	key, pkg := r.Key(), r.Package()

	b.mu.Lock()
	if b.snoozed.IsSnoozed(key) {
		if err := r.MarkSnoozed(); err != nil {
			b.invariant(ctx, "snoozed update rejected", logger.NotificationKey(key), logger.Error(err))
		}
		b.snoozed.Update(r)
		b.dropLocked(ctx, pkg, key, DropSnoozed)
		b.unlock(ctx)
		return nil
	}
	if !policy.IsSystem(pkg, r.UID()) {
		if n := b.store.Count(r.UserID(), pkg, key); n >= b.cfg.MaxPackageNotifications {
			b.dropLocked(ctx, pkg, key, DropOverQuota, logger.Count(n))
			b.unlock(ctx)
			return nil
		}
		if !b.allowRateLocked(ctx, r) {
			b.dropLocked(ctx, pkg, key, DropRateLimited)
			b.unlock(ctx)
			return nil
		}
	}
	b.stats.enqueued++
	b.unlock(ctx)

	return b.submit(ctx, "enqueue", func(ctx context.Context) { b.commit(ctx, r) })
}

func rateKey(userID int, pkg string) string {
	return strconv.Itoa(userID) + "|" + pkg
}

func (b *Broker) allowRateLocked(ctx context.Context, r *notifications.Record) bool {
	res, err := b.limiter.Allow(ctx, rateKey(r.UserID(), r.Package()))
	if err != nil {
		b.logger.LogAttrs(ctx, slog.LevelWarn, "rate check failed", logger.Package(r.Package()), logger.Error(err))
		return true
	}
	return res.Allowed()
}

// missingChannel drops a post for an unknown channel, warning once per
// package and channel.
func (b *Broker) missingChannel(ctx context.Context, pkg, key, channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.drop(pkg, DropMissingChannel)

	level := slog.LevelDebug
	id := pkg + "|" + channel
	if _, warned := b.warnedChannels[id]; !warned {
		b.warnedChannels[id] = struct{}{}
		level = slog.LevelWarn
	}
	b.logger.LogAttrs(ctx, level, "notification dropped",
		logger.Package(pkg),
		logger.NotificationKey(key),
		logger.Reason(string(DropMissingChannel)),
		slog.String("channel", channel),
	)
}

func (b *Broker) drop(ctx context.Context, pkg, key string, reason DropReason, attrs ...slog.Attr) {
	b.mu.Lock()
	b.dropLocked(ctx, pkg, key, reason, attrs...)
	b.mu.Unlock()
}

// dropLocked counts a drop. Rate limiting warns at most once every
// rateWarnInterval per package.
func (b *Broker) dropLocked(ctx context.Context, pkg, key string, reason DropReason, attrs ...slog.Attr) {
	b.stats.drop(pkg, reason)

	level := slog.LevelDebug
	if reason == DropRateLimited {
		now := b.now()
		if last, ok := b.rateWarned[pkg]; !ok || now.Sub(last) >= rateWarnInterval {
			b.rateWarned[pkg] = now
			level = slog.LevelWarn
		}
	}
	attrs = append(attrs, logger.Package(pkg), logger.NotificationKey(key), logger.Reason(string(reason)))
	b.logger.LogAttrs(ctx, level, "notification dropped", attrs...)
}

// commit runs on the pipeline. It extracts signals, files the record as
// enqueued and either posts it or gives the assistant time to adjust it.
func (b *Broker) commit(ctx context.Context, r *notifications.Record) {
	signals := b.extractors.Extract(r.SignalInput())

	b.mu.Lock()
	defer b.unlock(ctx)

	if old := b.store.Find(r.Key()); old != nil {
		r.CopyRankingInformation(old)
	}
	r.ApplySignals(signals)
	if r.IsGroupChild() {
		if s := b.snoozed.RepostGroupSummary(r.UserID(), r.Package(), r.GroupKey()); s != nil {
			b.repostLocked(ctx, s)
		}
	}
	b.store.AddEnqueued(r)
	b.scheduleTimeoutLocked(ctx, r)

	batch := b.registry.AssistantBatch(r.UserID(), dispatch.EnqueuedEvent{Notification: r.View(false)})
	if len(batch) == 0 {
		b.postLocked(ctx, r)
		return
	}
	b.publish(ctx, batch)
	if b.cfg.AssistantDelay <= 0 {
		b.postLocked(ctx, r)
		return
	}
	b.delayed++
	b.pipeline.EnqueueAfter(b.cfg.AssistantDelay, "post", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		b.delayed--
		b.postLocked(ctx, r)
	})
}

// postLocked moves r from the enqueued list to the posted list. A record
// that was canceled or superseded while it waited is skipped.
func (b *Broker) postLocked(ctx context.Context, r *notifications.Record) {
	defer b.releaseLocked(ctx, r)
	if !b.store.RemoveEnqueued(r) {
		return
	}

	key := r.Key()
	old := b.store.Find(key)
	if old != nil {
		r.SetUpdate(old)
	}
	r.ApplyPendingAdjustments()
	if r.Importance() == notifications.ImportanceNone {
		b.discardLocked(ctx, r, notifications.ReasonChannelBanned)
		b.dropLocked(ctx, r.Package(), key, DropImportanceNone)
		return
	}

	b.store.InsertOrReplace(r)
	if old != nil {
		if err := old.MarkSuperseded(); err != nil {
			b.invariant(ctx, "superseded record in wrong state", logger.NotificationKey(key), logger.Error(err))
		}
		b.stats.updated++
	}
	if err := r.MarkPosted(b.now()); err != nil {
		b.invariant(ctx, "posted record in wrong state", logger.NotificationKey(key), logger.Error(err))
	}
	b.stats.posted++
	b.trackSummaryLocked(ctx, r, old)

	if r.IsAutogroupSummary() {
		b.grouping.OnSummaryPosted(r.UserID(), r.Package())
	} else {
		b.grouping.OnPosted(member(r))
	}

	posted := b.sortLocked()
	b.publish(ctx, b.registry.PostedBatch(r, old, posted))
	b.addPlan(b.alerts.Decide(r, b.groupSummaryLocked(r)))

	b.logger.LogAttrs(ctx, slog.LevelDebug, "notification posted",
		logger.NotificationKey(key),
		slog.Bool("update", old != nil),
		slog.Int("rank", r.Rank()),
	)
}

func member(r *notifications.Record) grouping.Member {
	return grouping.Member{
		Key:        r.Key(),
		UserID:     r.UserID(),
		Package:    r.Package(),
		AppGrouped: r.IsAppGrouped(),
	}
}

// trackSummaryLocked maintains the summary index after r replaced old.
// When a summary stops being one, or moves to another group, the children
// it left behind are canceled.
func (b *Broker) trackSummaryLocked(ctx context.Context, r, old *notifications.Record) {
	if r.IsGroupSummary() {
		if prev, replaced := b.store.SetSummary(r.GroupKey(), r.Key()); replaced {
			b.logger.LogAttrs(ctx, slog.LevelDebug, "group summary replaced",
				logger.NotificationKey(r.Key()),
				slog.String("previous", prev),
			)
		}
	}
	if old == nil || !old.IsGroupSummary() {
		return
	}
	if r.IsGroupSummary() && r.GroupKey() == old.GroupKey() {
		return
	}
	if !b.store.RemoveSummary(old.GroupKey(), old.Key()) {
		b.invariant(ctx, "removed summary does not match",
			logger.NotificationKey(old.Key()),
			slog.String("group", old.GroupKey()),
		)
	}
	b.cancelChildrenLocked(ctx, old, 0)
}

// groupSummaryLocked returns the posted summary of r's group.
func (b *Broker) groupSummaryLocked(r *notifications.Record) *notifications.Record {
	if !r.IsGroupChild() {
		return nil
	}
	if k, ok := b.store.Summary(r.GroupKey()); ok {
		return b.store.Find(k)
	}
	return nil
}

// sortLocked reorders the posted list and remembers the resulting ranking.
func (b *Broker) sortLocked() []*notifications.Record {
	b.store.Sort(ranking.Sort)
	posted := b.store.Posted()
	b.lastRanking = ranking.Take(posted)
	return posted
}

// discardLocked cancels a record that never reached the posted list.
func (b *Broker) discardLocked(ctx context.Context, r *notifications.Record, reason notifications.CancelReason) {
	if err := r.MarkCanceled(reason); err != nil {
		b.invariant(ctx, "discarded record in wrong state", logger.NotificationKey(r.Key()), logger.Error(err))
	}
	b.releaseLocked(ctx, r)
}

func (b *Broker) scheduleTimeoutLocked(ctx context.Context, r *notifications.Record) {
	key := r.Key()
	if cancel, ok := b.timeouts[key]; ok {
		cancel()
		delete(b.timeouts, key)
	}
	d := r.Payload().TimeoutAfter
	if d <= 0 {
		return
	}
	b.timeouts[key] = b.pipeline.EnqueueAfter(d, "timeout", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		delete(b.timeouts, key)
		live := b.store.Find(key)
		if live == nil || live.Payload().TimeoutAfter <= 0 {
			return
		}
		b.cancelNowLocked(ctx, key, cancelRule{
			reason:      notifications.ReasonTimeout,
			mustNotHave: notifications.FlagForegroundService,
		})
	})
}

func (b *Broker) clearTimeoutLocked(key string) {
	if cancel, ok := b.timeouts[key]; ok {
		cancel()
		delete(b.timeouts, key)
	}
}

// deferred is an operation waiting for enqueued records to be posted or
// dropped.
type deferred struct {
	name    string
	waiting map[*notifications.Record]struct{}
	run     func(ctx context.Context)
}

func (b *Broker) deferLocked(ctx context.Context, name string, waitFor []*notifications.Record, run func(ctx context.Context)) {
	d := &deferred{name: name, waiting: make(map[*notifications.Record]struct{}, len(waitFor)), run: run}
	for _, r := range waitFor {
		d.waiting[r] = struct{}{}
	}
	b.deferred = append(b.deferred, d)
	b.logger.LogAttrs(ctx, slog.LevelDebug, "operation deferred", logger.Task(name), logger.Count(len(waitFor)))
}

// releaseLocked runs every deferred operation that was only waiting for r.
func (b *Broker) releaseLocked(ctx context.Context, r *notifications.Record) {
	var ready []*deferred
	b.deferred = slices.DeleteFunc(b.deferred, func(d *deferred) bool {
		delete(d.waiting, r)
		if len(d.waiting) == 0 {
			ready = append(ready, d)
			return true
		}
		return false
	})
	for _, d := range ready {
		d.run(ctx)
	}
}
