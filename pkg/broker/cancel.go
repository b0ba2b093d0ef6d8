package broker

import (
	"context"
	"log/slog"

	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/notifications"
	"github.com/notifykit/notifyd/pkg/policy"
)

// CancelRequest identifies one notification an app wants to remove.
type CancelRequest struct {
	Package    string `json:"package" validate:"required,excludes=0x7C"`
	CallingUID int    `json:"calling_uid" validate:"gte=0"`
	CallingPID int    `json:"calling_pid" validate:"gte=0"`
	UserID     int    `json:"user_id" validate:"gte=0"`
	Tag        string `json:"tag,omitempty"`
	ID         int    `json:"id"`
}

func (r CancelRequest) caller() policy.Caller {
	return policy.Caller{
		Package:    r.Package,
		OpPackage:  r.Package,
		CallingUID: r.CallingUID,
		CallingPID: r.CallingPID,
		UserID:     r.UserID,
	}
}

// CancelAllRequest asks to remove every notification of a package.
type CancelAllRequest struct {
	Package    string `json:"package" validate:"required,excludes=0x7C"`
	CallingUID int    `json:"calling_uid" validate:"gte=0"`
	CallingPID int    `json:"calling_pid" validate:"gte=0"`
	UserID     int    `json:"user_id" validate:"gte=0"`
}

func (r CancelAllRequest) caller() policy.Caller {
	return policy.Caller{
		Package:    r.Package,
		OpPackage:  r.Package,
		CallingUID: r.CallingUID,
		CallingPID: r.CallingPID,
		UserID:     r.UserID,
	}
}

type cancelRule struct {
	reason      notifications.CancelReason
	mustHave    notifications.Flags
	mustNotHave notifications.Flags
}

func (s cancelRule) allows(r *notifications.Record) bool {
	f := r.Flags()
	return f&s.mustHave == s.mustHave && f&s.mustNotHave == 0
}

// appFlags returns the flags an app may not cancel. System callers can
// remove foreground service notifications.
func appFlags(c policy.Caller) notifications.Flags {
	if policy.IsSystem(c.Package, c.CallingUID) {
		return 0
	}
	return notifications.FlagForegroundService
}

// Cancel removes one notification posted by the calling app. A cancel
// queued after an enqueue for the same key always takes effect after it.
func (b *Broker) Cancel(ctx context.Context, req CancelRequest) error {
	c := req.caller()
	if err := b.check(ctx, req, c); err != nil {
		return err
	}
	key := notifications.Key(req.UserID, req.Package, req.ID, req.Tag)
	rule := cancelRule{reason: notifications.ReasonAppCancel, mustNotHave: appFlags(c)}
	return b.submit(ctx, "cancel", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		b.cancelKeyLocked(ctx, key, rule)
	})
}

// CancelAll removes every notification of the calling app, enqueued and
// snoozed ones included.
func (b *Broker) CancelAll(ctx context.Context, req CancelAllRequest) error {
	c := req.caller()
	if err := b.check(ctx, req, c); err != nil {
		return err
	}
	rule := cancelRule{reason: notifications.ReasonAppCancelAll, mustNotHave: appFlags(c)}
	return b.submit(ctx, "cancel-all", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		b.cancelWhereLocked(ctx, func(r *notifications.Record) bool {
			return r.UserID() == req.UserID && r.Package() == req.Package
		}, rule)
		b.cancelSnoozedLocked(ctx, rule.reason, b.snoozed.CancelAll(req.UserID, req.Package)...)
	})
}

// ClearAll is the user's "clear all": it removes every clearable
// notification of userID.
func (b *Broker) ClearAll(ctx context.Context, userID int) error {
	rule := cancelRule{
		reason:      notifications.ReasonCancelAll,
		mustNotHave: notifications.FlagOngoing | notifications.FlagNoClear,
	}
	return b.submit(ctx, "clear-all", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		b.cancelWhereLocked(ctx, func(r *notifications.Record) bool {
			return r.UserID() == userID
		}, rule)
	})
}

// CancelFromListener removes the given notifications on behalf of a
// listener, or every notification it can see when keys is empty.
// Notifications the listener cannot see are left alone.
func (b *Broker) CancelFromListener(ctx context.Context, listenerID string, keys ...string) error {
	reg, ok := b.registry.Get(listenerID)
	if !ok {
		return ErrUnknownListener
	}
	return b.submit(ctx, "listener-cancel", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		if len(keys) == 0 {
			b.cancelWhereLocked(ctx, func(r *notifications.Record) bool {
				return b.registry.SeesRecord(reg, r)
			}, cancelRule{
				reason:      notifications.ReasonListenerCancelAll,
				mustNotHave: notifications.FlagOngoing | notifications.FlagNoClear,
			})
			return
		}
		rule := cancelRule{
			reason:      notifications.ReasonListenerCancel,
			mustNotHave: notifications.FlagOngoing | notifications.FlagForegroundService,
		}
		for _, key := range keys {
			if r := b.store.Find(key); r != nil && b.registry.SeesRecord(reg, r) {
				b.cancelNowLocked(ctx, key, rule)
			}
		}
	})
}

// OnNotificationClick records a click and removes auto-cancel
// notifications.
func (b *Broker) OnNotificationClick(ctx context.Context, key string) error {
	return b.submit(ctx, "click", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		r := b.store.Find(key)
		if r == nil {
			return
		}
		r.SetSeen()
		b.cancelNowLocked(ctx, key, cancelRule{
			reason:      notifications.ReasonClick,
			mustHave:    notifications.FlagAutoCancel,
			mustNotHave: notifications.FlagForegroundService,
		})
	})
}

// OnNotificationClear handles a user swiping a notification away.
func (b *Broker) OnNotificationClear(ctx context.Context, key string, surface notifications.DismissalSurface, sentiment notifications.UserSentiment) error {
	return b.submit(ctx, "clear", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		if r := b.store.Find(key); r != nil {
			r.RecordDismissal(surface, sentiment)
		}
		b.cancelNowLocked(ctx, key, cancelRule{
			reason:      notifications.ReasonCancel,
			mustNotHave: notifications.FlagOngoing | notifications.FlagForegroundService,
		})
	})
}

// OnPackageRemoved drops everything the broker knows about a package.
func (b *Broker) OnPackageRemoved(ctx context.Context, userID int, pkg string) error {
	return b.submit(ctx, "package-removed", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		rule := cancelRule{reason: notifications.ReasonPackageChanged}
		b.cancelWhereLocked(ctx, func(r *notifications.Record) bool {
			return r.UserID() == userID && r.Package() == pkg
		}, rule)
		b.cancelSnoozedLocked(ctx, rule.reason, b.snoozed.CancelAll(userID, pkg)...)
		b.grouping.Forget(userID, pkg)
		b.alerts.ForgetPackage(pkg)
		if err := b.limiter.Reset(ctx, rateKey(userID, pkg)); err != nil {
			b.logger.LogAttrs(ctx, slog.LevelWarn, "rate reset failed", logger.Package(pkg), logger.Error(err))
		}
	})
}

// OnUserStopped removes every notification and observer of a user.
func (b *Broker) OnUserStopped(ctx context.Context, userID int) error {
	return b.submit(ctx, "user-stopped", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		rule := cancelRule{reason: notifications.ReasonUserStopped}
		b.cancelWhereLocked(ctx, func(r *notifications.Record) bool {
			return r.UserID() == userID
		}, rule)
		b.cancelSnoozedLocked(ctx, rule.reason, b.snoozed.CancelUser(userID)...)
		b.grouping.ForgetUser(userID)
		for _, reg := range b.registry.Snapshot() {
			if reg.UserID == userID {
				if _, err := b.registry.Unregister(reg.ID); err == nil {
					b.logger.LogAttrs(ctx, slog.LevelInfo, "observer dropped", logger.ListenerID(reg.ID), logger.UserID(userID))
				}
			}
		}
		b.refreshHintsLocked(ctx)
	})
}

// cancelKeyLocked cancels key once every enqueued record for it has been
// posted or dropped.
func (b *Broker) cancelKeyLocked(ctx context.Context, key string, rule cancelRule) {
	if pending := b.store.EnqueuedFor(key); len(pending) > 0 {
		b.deferLocked(ctx, "cancel", pending, func(ctx context.Context) {
			b.cancelNowLocked(ctx, key, rule)
		})
		return
	}
	b.cancelNowLocked(ctx, key, rule)
}

// cancelNowLocked cancels the posted record for key, or the snoozed one
// when nothing is posted.
func (b *Broker) cancelNowLocked(ctx context.Context, key string, rule cancelRule) {
	r := b.store.Find(key)
	if r == nil {
		if pk, ok := notifications.ParseKey(key); ok {
			if s := b.snoozed.Cancel(pk.UserID, pk.Package, pk.Tag, pk.ID); s != nil {
				b.cancelSnoozedLocked(ctx, rule.reason, s)
			}
		}
		return
	}
	if !rule.allows(r) {
		b.logger.LogAttrs(ctx, slog.LevelDebug, "cancel refused by flags",
			logger.NotificationKey(key),
			logger.Reason(rule.reason),
		)
		return
	}
	b.removeLocked(ctx, r, rule)
}

// cancelWhereLocked cancels every enqueued and posted record matching fn.
func (b *Broker) cancelWhereLocked(ctx context.Context, fn func(*notifications.Record) bool, rule cancelRule) {
	for _, r := range b.store.FindEnqueued(fn) {
		if !rule.allows(r) {
			continue
		}
		b.store.RemoveEnqueued(r)
		b.discardLocked(ctx, r, rule.reason)
		b.dropLocked(ctx, r.Package(), r.Key(), DropCanceled)
	}
	for _, r := range b.store.FindPosted(fn) {
		// Cascades may already have removed r.
		if b.store.Find(r.Key()) == r && rule.allows(r) {
			b.removeLocked(ctx, r, rule)
		}
	}
}

// removeLocked cancels a posted record. Removing an app's group summary
// also cancels its children; retracting an autogroup summary does not.
func (b *Broker) removeLocked(ctx context.Context, r *notifications.Record, rule cancelRule) {
	key := r.Key()
	if b.store.Find(key) != r {
		return
	}
	if err := r.MarkCanceled(rule.reason); err != nil {
		b.invariant(ctx, "canceled record in wrong state", logger.NotificationKey(key), logger.Error(err))
	}
	b.detachLocked(ctx, r, rule.reason)
	b.stats.canceled++
	b.archiveLocked(r, rule.reason)
	b.logger.LogAttrs(ctx, slog.LevelDebug, "notification canceled",
		logger.NotificationKey(key),
		logger.Reason(rule.reason),
	)

	if r.IsGroupSummary() && rule.reason != notifications.ReasonUnautobundled {
		b.cancelChildrenLocked(ctx, r, rule.mustNotHave)
	}
}

// detachLocked takes a posted record out of every collection and then
// tells alerting, grouping and listeners about it.
func (b *Broker) detachLocked(ctx context.Context, r *notifications.Record, reason notifications.CancelReason) {
	key := r.Key()
	b.store.Detach(r)
	if r.IsGroupSummary() {
		b.store.RemoveSummary(r.GroupKey(), key)
	}
	b.clearTimeoutLocked(key)
	b.addPlan(b.alerts.Clear(key))

	if r.IsAutogroupSummary() {
		b.grouping.OnSummaryRemoved(r.UserID(), r.Package())
	} else {
		b.grouping.OnRemoved(member(r))
	}

	posted := b.sortLocked()
	b.publish(ctx, b.registry.RemovedBatch(r, posted, reason))
}

// cancelChildrenLocked cancels the children of a removed summary. Foreground
// service children always survive.
func (b *Broker) cancelChildrenLocked(ctx context.Context, summary *notifications.Record, mustNotHave notifications.Flags) {
	groupKey := summary.GroupKey()
	child := func(r *notifications.Record) bool {
		return r != summary && r.IsGroupChild() && r.GroupKey() == groupKey
	}
	b.cancelWhereLocked(ctx, child, cancelRule{
		reason:      notifications.ReasonGroupSummaryCanceled,
		mustNotHave: mustNotHave | notifications.FlagForegroundService,
	})
}

func (b *Broker) cancelSnoozedLocked(ctx context.Context, reason notifications.CancelReason, records ...*notifications.Record) {
	for _, r := range records {
		if err := r.MarkCanceled(reason); err != nil {
			b.invariant(ctx, "snoozed record in wrong state", logger.NotificationKey(r.Key()), logger.Error(err))
		}
		b.stats.canceled++
		b.archiveLocked(r, reason)
	}
}

func (b *Broker) archiveLocked(r *notifications.Record, reason notifications.CancelReason) {
	b.history.Put(r.Key(), Removal{
		Notification: r.View(true),
		Reason:       reason,
		RemovedAt:    b.now(),
	})
}
