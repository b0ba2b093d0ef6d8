package broker

import (
	"context"
	"log/slog"

	"github.com/notifykit/notifyd/pkg/logger"
	"github.com/notifykit/notifyd/pkg/notifications"
)

// ReconsiderRanking re-extracts the signals of every posted notification,
// for example after preferences, suspension or do-not-disturb changed.
func (b *Broker) ReconsiderRanking(ctx context.Context) {
	b.mu.Lock()
	b.reextract = true
	b.requestRankingLocked(ctx)
	b.mu.Unlock()
}

// requestRankingLocked schedules a ranking pass. Requests made while one
// is pending are folded into it.
func (b *Broker) requestRankingLocked(ctx context.Context) {
	if b.rankingPending {
		return
	}
	b.rankingPending = true
	if err := b.ranker.Enqueue("ranking-update", b.rankingUpdate); err != nil {
		b.rankingPending = false
		b.logger.LogAttrs(ctx, slog.LevelWarn, "ranking update rejected", logger.Error(err))
	}
}

// rankingUpdate runs on the ranking queue. It refreshes signals when asked
// to, applies pending adjustments, re-sorts and tells listeners when the
// visible ranking changed. Notifications whose importance dropped to none
// are canceled through the pipeline.
func (b *Broker) rankingUpdate(ctx context.Context) {
	b.mu.Lock()
	b.rankingPending = false
	var (
		stale  []*notifications.Record
		inputs []notifications.SignalInput
	)
	if b.reextract {
		b.reextract = false
		stale = b.store.Posted()
		for _, r := range stale {
			inputs = append(inputs, r.SignalInput())
		}
	}
	b.mu.Unlock()

	signals := make([]notifications.Signals, len(inputs))
	for i, in := range inputs {
		signals[i] = b.extractors.Extract(in)
	}

	b.mu.Lock()
	defer b.unlock(ctx)

	var changedHidden []*notifications.Record
	for i, r := range stale {
		if b.store.Find(r.Key()) != r {
			continue
		}
		hidden := r.IsHidden()
		r.ApplySignals(signals[i])
		if r.IsHidden() != hidden {
			changedHidden = append(changedHidden, r)
		}
	}

	var banned []string
	for _, r := range b.store.Posted() {
		r.ApplyPendingAdjustments()
		if r.Importance() == notifications.ImportanceNone {
			banned = append(banned, r.Key())
		}
	}

	before := b.lastRanking
	posted := b.sortLocked()
	for _, r := range changedHidden {
		b.publish(ctx, b.registry.HiddenChangedBatch(r, posted))
	}
	if before.Changed(b.lastRanking) {
		b.stats.rankingUpdates++
		b.publish(ctx, b.registry.RankingBatch(posted))
	}

	for _, key := range banned {
		_ = b.submit(ctx, "channel-banned", func(ctx context.Context) {
			b.mu.Lock()
			defer b.unlock(ctx)
			if r := b.store.Find(key); r != nil && r.Importance() == notifications.ImportanceNone {
				b.removeLocked(ctx, r, cancelRule{reason: notifications.ReasonChannelBanned})
			}
		})
	}
}
