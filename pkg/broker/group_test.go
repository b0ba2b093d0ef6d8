package broker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifyd/pkg/broker"
	"github.com/notifykit/notifyd/pkg/notifications"
)

func inGroup(group string) func(*broker.EnqueueRequest) {
	return func(r *broker.EnqueueRequest) { r.Payload.Group = group }
}

func summaryOf(group string) func(*broker.EnqueueRequest) {
	return func(r *broker.EnqueueRequest) {
		r.Payload.Group = group
		r.Payload.Flags |= notifications.FlagGroupSummary
	}
}

func historyReason(f *fixture, key string) (notifications.CancelReason, bool) {
	for _, h := range f.broker.History(0) {
		if h.Notification.Key == key {
			return h.Reason, true
		}
	}
	return 0, false
}

func TestBroker_Autogroup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for id := 1; id <= 5; id++ {
		f.post(id)
	}
	f.sync()

	summary := broker.AutogroupSummaryKey(0, "app1")
	require.Len(t, f.broker.Posted(), 6)
	v, ok := f.broker.Find(summary)
	require.True(t, ok)
	assert.True(t, v.Flags.Has(notifications.FlagAutogroupSummary))
	assert.True(t, v.Flags.Has(notifications.FlagGroupSummary))
	assert.Equal(t, "app1/.Main", v.Payload.ContentIntent)

	ranking := f.broker.Ranking()
	_, ok = ranking.Get(summary)
	assert.True(t, ok)
	for id := 1; id <= 5; id++ {
		r, ok := ranking.Get(key(id))
		require.True(t, ok)
		assert.Equal(t, "app1:autogroup", r.OverrideGroup)
	}

	// Dropping below the threshold retracts the group.
	f.cancel(5)
	f.cancel(4)
	f.sync()

	_, ok = f.broker.Find(summary)
	assert.False(t, ok)
	assert.Len(t, f.broker.Posted(), 3)
	for _, r := range f.broker.Ranking() {
		assert.Empty(t, r.OverrideGroup, r.Key)
	}
	reason, ok := historyReason(f, summary)
	require.True(t, ok)
	assert.Equal(t, notifications.ReasonUnautobundled, reason)
}

func TestBroker_AutogroupSkipsAppGroups(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for id := 1; id <= 5; id++ {
		f.post(id, inGroup("chat"))
	}
	f.sync()

	assert.Len(t, f.broker.Posted(), 5)
	_, ok := f.broker.Find(broker.AutogroupSummaryKey(0, "app1"))
	assert.False(t, ok)
}

func TestBroker_SummaryCancelCascades(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.post(10, summaryOf("chat"))
	f.post(1, inGroup("chat"))
	f.post(2, inGroup("chat"))
	f.post(3, func(r *broker.EnqueueRequest) {
		inGroup("chat")(r)
		r.ForegroundService = true
	})
	f.sync()
	require.Len(t, f.broker.Posted(), 4)

	f.cancel(10)
	f.sync()

	assert.Equal(t, []string{key(3)}, f.postedKeys())
	for _, id := range []int{1, 2} {
		reason, ok := historyReason(f, key(id))
		require.True(t, ok)
		assert.Equal(t, notifications.ReasonGroupSummaryCanceled, reason)
	}
}

func TestBroker_SnoozeKeepsGroupsConsistent(t *testing.T) {
	t.Parallel()

	t.Run("last child takes the summary along", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		f.post(10, summaryOf("chat"))
		f.post(1, inGroup("chat"))
		f.sync()

		require.NoError(t, f.broker.Snooze(ctx, key(1), time.Hour))
		f.sync()

		assert.Empty(t, f.broker.Posted())
		assert.True(t, f.broker.IsSnoozed(key(1)))
		assert.True(t, f.broker.IsSnoozed(key(10)))
		assert.Len(t, f.broker.Snoozed(0, "app1"), 2)
	})

	t.Run("summary takes its children along", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		f.post(10, summaryOf("chat"))
		f.post(1, inGroup("chat"))
		f.post(2, inGroup("chat"))
		f.post(3)
		f.sync()

		require.NoError(t, f.broker.Snooze(ctx, key(10), time.Hour))
		f.sync()

		assert.Equal(t, []string{key(3)}, f.postedKeys())
		assert.Equal(t, uint64(3), f.broker.Diagnostics().Snoozed)
	})

	t.Run("one of several children snoozes alone", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		f.post(10, summaryOf("chat"))
		f.post(1, inGroup("chat"))
		f.post(2, inGroup("chat"))
		f.sync()

		require.NoError(t, f.broker.Snooze(ctx, key(1), time.Hour))
		f.sync()

		assert.ElementsMatch(t, []string{key(10), key(2)}, f.postedKeys())
	})

	t.Run("reposted child brings the summary back", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		f.post(10, summaryOf("chat"))
		f.post(1, inGroup("chat"))
		f.sync()
		require.NoError(t, f.broker.Snooze(ctx, key(1), time.Hour))
		f.sync()

		f.post(2, inGroup("chat"))
		f.sync()

		assert.ElementsMatch(t, []string{key(10), key(2)}, f.postedKeys())
		assert.True(t, f.broker.IsSnoozed(key(1)))
		assert.False(t, f.broker.IsSnoozed(key(10)))
	})
}

func TestBroker_SnoozedAutogroupMember(t *testing.T) {
	t.Parallel()

	overrideOf := func(f *fixture, key string) string {
		f.t.Helper()
		r, ok := f.broker.Ranking().Get(key)
		require.True(f.t, ok)
		return r.OverrideGroup
	}

	t.Run("bundle retracted while snoozed", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		for id := 1; id <= 5; id++ {
			f.post(id)
		}
		f.sync()
		require.Equal(t, "app1:autogroup", overrideOf(f, key(1)))

		require.NoError(t, f.broker.Snooze(ctx, key(1), time.Hour))
		f.sync()
		f.cancel(5)
		f.cancel(4)
		f.sync()
		_, ok := f.broker.Find(broker.AutogroupSummaryKey(0, "app1"))
		require.False(t, ok)

		require.NoError(t, f.broker.Unsnooze(ctx, key(1)))
		f.sync()

		assert.ElementsMatch(t, []string{key(1), key(2), key(3)}, f.postedKeys())
		assert.Empty(t, overrideOf(f, key(1)))
	})

	t.Run("bundle still live on repost", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		for id := 1; id <= 5; id++ {
			f.post(id)
		}
		// Stay under the enqueue rate.
		f.clock.Advance(time.Second)
		f.post(6)
		f.sync()
		require.Len(t, f.broker.Posted(), 7)

		require.NoError(t, f.broker.Snooze(ctx, key(1), time.Hour))
		f.sync()
		_, ok := f.broker.Find(broker.AutogroupSummaryKey(0, "app1"))
		require.True(t, ok)

		require.NoError(t, f.broker.Unsnooze(ctx, key(1)))
		f.sync()

		assert.Equal(t, "app1:autogroup", overrideOf(f, key(1)))
	})
}

func TestBroker_SnoozeWakesUp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	k := f.post(1)
	f.sync()

	require.NoError(t, f.broker.Snooze(context.Background(), k, 30*time.Millisecond))
	f.sync()
	_, ok := f.broker.Find(k)
	require.False(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := f.broker.Find(k)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, f.broker.IsSnoozed(k))
	assert.Equal(t, uint64(1), f.broker.Diagnostics().Reposted)
}

func TestBroker_SnoozeCriterion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.post(1)
	f.post(2)
	f.sync()

	require.NoError(t, f.broker.SnoozeWithCriterion(ctx, key(1), "home"))
	require.NoError(t, f.broker.SnoozeWithCriterion(ctx, key(2), "work"))
	f.sync()
	require.Empty(t, f.broker.Posted())

	require.NoError(t, f.broker.TriggerCriterion(ctx, "home"))
	f.sync()
	assert.Equal(t, []string{key(1)}, f.postedKeys())
	assert.True(t, f.broker.IsSnoozed(key(2)))

	assert.ErrorIs(t, f.broker.SnoozeWithCriterion(ctx, key(2), ""), broker.ErrInvalidRequest)
	assert.ErrorIs(t, f.broker.Snooze(ctx, key(2), 0), broker.ErrInvalidRequest)
	assert.ErrorIs(t, f.broker.Snooze(ctx, "garbage", time.Minute), broker.ErrInvalidRequest)
}

func TestBroker_CancelReachesSnoozed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	k := f.post(1)
	f.sync()
	require.NoError(t, f.broker.Snooze(ctx, k, time.Hour))
	f.sync()

	f.cancel(1)
	f.sync()

	assert.False(t, f.broker.IsSnoozed(k))
	assert.Zero(t, f.places(k))
}
