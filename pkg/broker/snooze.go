package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/notifykit/notifyd/pkg/dispatch"
	"github.com/notifykit/notifyd/pkg/grouping"
	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/notifications"
)

// Snooze hides a posted notification for d. Snoozing a summary snoozes its
// group; snoozing the last child of a group snoozes the summary too.
func (b *Broker) Snooze(ctx context.Context, key string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: snooze duration must be positive", ErrInvalidRequest)
	}
	return b.submitSnooze(ctx, key, func(r *notifications.Record) { b.snoozed.Snooze(r, d) }, "")
}

// SnoozeWithCriterion hides a posted notification until criterionID is
// triggered.
func (b *Broker) SnoozeWithCriterion(ctx context.Context, key, criterionID string) error {
	if criterionID == "" {
		return fmt.Errorf("%w: empty snooze criterion", ErrInvalidRequest)
	}
	return b.submitSnooze(ctx, key, func(r *notifications.Record) {
		b.snoozed.SnoozeWithCriterion(r, criterionID)
	}, criterionID)
}

func (b *Broker) submitSnooze(ctx context.Context, key string, park func(*notifications.Record), criterion string) error {
	if _, ok := notifications.ParseKey(key); !ok {
		return fmt.Errorf("%w: malformed key %q", ErrInvalidRequest, key)
	}
	return b.submit(ctx, "snooze", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		if pending := b.store.EnqueuedFor(key); len(pending) > 0 {
			b.deferLocked(ctx, "snooze", pending, func(ctx context.Context) {
				b.snoozeLocked(ctx, key, park, criterion)
			})
			return
		}
		b.snoozeLocked(ctx, key, park, criterion)
	})
}

func (b *Broker) snoozeLocked(ctx context.Context, key string, park func(*notifications.Record), criterion string) {
	r := b.store.Find(key)
	if r == nil {
		return
	}
	switch {
	case r.IsGroupSummary():
		for _, c := range b.store.FindByGroup(r.GroupKey()) {
			if c != r && c.IsGroupChild() {
				b.snoozeOneLocked(ctx, c, park, criterion)
			}
		}
	case r.IsGroupChild():
		if k, ok := b.store.Summary(r.GroupKey()); ok {
			if group := b.store.FindByGroup(r.GroupKey()); len(group) == 2 {
				b.snoozeOneLocked(ctx, r, park, criterion)
				if s := b.store.Find(k); s != nil {
					b.snoozeOneLocked(ctx, s, park, criterion)
				}
				return
			}
		}
	}
	b.snoozeOneLocked(ctx, r, park, criterion)
}

func (b *Broker) snoozeOneLocked(ctx context.Context, r *notifications.Record, park func(*notifications.Record), criterion string) {
	key := r.Key()
	if err := r.MarkSnoozed(); err != nil {
		b.invariant(ctx, "snoozed record in wrong state", logger.NotificationKey(key), logger.Error(err))
		return
	}
	b.detachLocked(ctx, r, notifications.ReasonSnoozed)
	// The bundle forgets r once it leaves the posted list. A repost joins
	// whatever bundle exists then.
	if r.OverrideGroup() == grouping.AutogroupName(r.Package()) {
		r.SetOverrideGroup("")
	}
	park(r)
	b.stats.snoozed++
	b.publish(ctx, b.registry.AssistantBatch(r.UserID(), dispatch.SnoozedEvent{
		Notification: r.View(true),
		Criterion:    criterion,
	}))
	b.logger.LogAttrs(ctx, slog.LevelDebug, "notification snoozed", logger.NotificationKey(key))
}

// Unsnooze reposts a snoozed notification right away.
func (b *Broker) Unsnooze(ctx context.Context, key string) error {
	return b.submit(ctx, "unsnooze", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		if r := b.snoozed.Repost(key); r != nil {
			b.repostLocked(ctx, r)
		}
	})
}

// TriggerCriterion reposts every notification snoozed until criterionID.
func (b *Broker) TriggerCriterion(ctx context.Context, criterionID string) error {
	return b.submit(ctx, "snooze-criterion", func(ctx context.Context) {
		b.mu.Lock()
		defer b.unlock(ctx)
		for _, r := range b.snoozed.RepostCriterion(criterionID) {
			b.repostLocked(ctx, r)
		}
	})
}

// wake is the snooze store's timer callback. It runs on the pipeline.
func (b *Broker) wake(ctx context.Context, key string) {
	b.mu.Lock()
	defer b.unlock(ctx)
	if r := b.snoozed.Repost(key); r != nil {
		b.repostLocked(ctx, r)
	}
}

// repostLocked sends a record that left the snooze store back through the
// pipeline. Reposts skip the quota and rate checks.
func (b *Broker) repostLocked(ctx context.Context, r *notifications.Record) {
	if err := r.MarkReposted(b.now()); err != nil {
		b.invariant(ctx, "reposted record in wrong state", logger.NotificationKey(r.Key()), logger.Error(err))
		return
	}
	b.stats.reposted++
	if err := b.pipeline.Enqueue("repost", func(ctx context.Context) { b.commit(ctx, r) }); err != nil {
		b.logger.LogAttrs(ctx, slog.LevelWarn, "repost rejected", logger.NotificationKey(r.Key()), logger.Error(err))
	}
}
