package broker

import "github.com/notifykit/notifyd/pkg/notifications"

// Posted returns every posted notification in rank order.
func (b *Broker) Posted() []notifications.View {
	b.mu.Lock()
	defer b.mu.Unlock()
	posted := b.store.Posted()
	out := make([]notifications.View, len(posted))
	for i, r := range posted {
		out[i] = r.View(false)
	}
	return out
}

// Ranking returns the unfiltered ranking of the posted list.
func (b *Broker) Ranking() notifications.RankingMap {
	b.mu.Lock()
	defer b.mu.Unlock()
	posted := b.store.Posted()
	out := make(notifications.RankingMap, len(posted))
	for i, r := range posted {
		out[i] = r.Ranking(i)
	}
	return out
}

// Find returns the posted notification with key.
func (b *Broker) Find(key string) (notifications.View, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r := b.store.Find(key); r != nil {
		return r.View(false), true
	}
	return notifications.View{}, false
}

// Snoozed returns the snoozed notifications of a package.
func (b *Broker) Snoozed(userID int, pkg string) []notifications.View {
	b.mu.Lock()
	defer b.mu.Unlock()
	records := b.snoozed.Snoozed(userID, pkg)
	out := make([]notifications.View, len(records))
	for i, r := range records {
		out[i] = r.View(true)
	}
	return out
}

// IsSnoozed reports whether key is snoozed.
func (b *Broker) IsSnoozed(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snoozed.IsSnoozed(key)
}

// History returns up to limit recently removed notifications, newest
// first. A limit of zero or less returns all of them.
func (b *Broker) History(limit int) []Removal {
	return b.history.Values(limit)
}

// Diagnostics snapshots the broker counters and state sizes.
func (b *Broker) Diagnostics() Diagnostics {
	var d Diagnostics
	b.mu.Lock()
	b.stats.fill(&d)
	d.PostedCount = b.store.PostedLen()
	d.EnqueuedCount = len(b.store.AllEnqueued())
	d.SnoozedCount = b.snoozed.Len()
	d.Summaries = b.store.Summaries()
	d.Hints = b.hints
	d.SoundOwner = b.alerts.SoundOwner()
	d.VibrationOwner = b.alerts.VibrationOwner()
	d.LightOwner = b.alerts.LightOwner()
	b.mu.Unlock()

	d.Delivered = b.dispatcher.Delivered()
	d.DeliveryFailures = b.dispatcher.Failed()
	return d
}
