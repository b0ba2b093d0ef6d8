package broker

import (
	"context"
	"log/slog"
	"math"

	"github.com/notifykit/notifyd/pkg/grouping"
	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/notifications"
)

// AutogroupSummaryID is the notification id of synthesized summaries.
const AutogroupSummaryID = math.MaxInt32

// AutogroupSummaryKey returns the key of pkg's synthesized summary.
func AutogroupSummaryKey(userID int, pkg string) string {
	name := grouping.AutogroupName(pkg)
	return notifications.Key(userID, pkg, AutogroupSummaryID, name)
}

// autogrouper applies the grouping engine's decisions. The engine calls it
// with the broker lock held, so summary changes are queued rather than
// applied in place.
type autogrouper struct {
	b *Broker
}

func (a autogrouper) AddAutogroup(key string) {
	r := a.b.store.Find(key)
	if r == nil || r.IsAppGrouped() {
		return
	}
	r.SetOverrideGroup(grouping.AutogroupName(r.Package()))
	a.b.requestRankingLocked(context.Background())
}

func (a autogrouper) RemoveAutogroup(key string) {
	r := a.b.store.Find(key)
	if r == nil || r.OverrideGroup() != grouping.AutogroupName(r.Package()) {
		return
	}
	r.SetOverrideGroup("")
	a.b.requestRankingLocked(context.Background())
}

func (a autogrouper) AddAutogroupSummary(userID int, pkg, triggerKey string) {
	ctx := context.Background()
	_ = a.b.submit(ctx, "autogroup-add", func(ctx context.Context) {
		a.b.addAutogroupSummary(ctx, userID, pkg, triggerKey)
	})
}

func (a autogrouper) RemoveAutogroupSummary(userID int, pkg string) {
	ctx := context.Background()
	_ = a.b.submit(ctx, "autogroup-remove", func(ctx context.Context) {
		a.b.removeAutogroupSummary(ctx, userID, pkg)
	})
}

// addAutogroupSummary posts pkg's synthesized summary if the bundle is
// still needed and no summary exists yet. It borrows channel and styling
// from the notification that triggered the bundle.
func (b *Broker) addAutogroupSummary(ctx context.Context, userID int, pkg, triggerKey string) {
	intent := b.deps.Packages.LaunchIntent(pkg, userID)

	b.mu.Lock()
	if !b.grouping.Active(userID, pkg) {
		b.unlock(ctx)
		return
	}
	key := AutogroupSummaryKey(userID, pkg)
	if b.store.Find(key) != nil || len(b.store.EnqueuedFor(key)) > 0 {
		b.unlock(ctx)
		return
	}
	trigger := b.store.Find(triggerKey)
	if trigger == nil {
		for _, k := range b.grouping.Tracked(userID, pkg) {
			if trigger = b.store.Find(k); trigger != nil {
				break
			}
		}
	}
	if trigger == nil {
		b.unlock(ctx)
		return
	}

	name := grouping.AutogroupName(pkg)
	tp := trigger.Payload()
	summary := notifications.NewRecord(notifications.Identity{
		Package: pkg,
		Tag:     name,
		ID:      AutogroupSummaryID,
		UID:     trigger.UID(),
		UserID:  userID,
	}, &notifications.Payload{
		ChannelID:          trigger.ChannelID(),
		Group:              name,
		Flags:              notifications.FlagGroupSummary,
		GroupAlertBehavior: notifications.GroupAlertChildren,
		Icon:               tp.Icon,
		Color:              tp.Color,
		ContentIntent:      intent,
	}, trigger.Channel(), b.now())
	summary.SetFlags(notifications.FlagAutogroupSummary)
	b.stats.enqueued++
	b.unlock(ctx)

	b.logger.LogAttrs(ctx, slog.LevelDebug, "autogroup summary added",
		logger.Package(pkg),
		logger.UserID(userID),
		logger.NotificationKey(key),
	)
	b.commit(ctx, summary)
}

// removeAutogroupSummary retracts pkg's synthesized summary unless the
// bundle became active again in the meantime.
func (b *Broker) removeAutogroupSummary(ctx context.Context, userID int, pkg string) {
	b.mu.Lock()
	defer b.unlock(ctx)
	if b.grouping.Active(userID, pkg) {
		return
	}
	key := AutogroupSummaryKey(userID, pkg)
	rule := cancelRule{reason: notifications.ReasonUnautobundled}
	for _, r := range b.store.EnqueuedFor(key) {
		b.store.RemoveEnqueued(r)
		b.discardLocked(ctx, r, rule.reason)
	}
	if r := b.store.Find(key); r != nil && r.IsAutogroupSummary() {
		b.removeLocked(ctx, r, rule)
	}
}
