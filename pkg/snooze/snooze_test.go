package snooze_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifyd/pkg/notifications"
	"github.com/notifykit/notifyd/pkg/queue"
	"github.com/notifykit/notifyd/pkg/snooze"
)

var t0 = time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

type timer struct {
	d        time.Duration
	fn       queue.Task
	canceled bool
}

type fakeScheduler struct {
	timers []*timer
}

func (f *fakeScheduler) EnqueueAfter(d time.Duration, _ string, fn queue.Task) queue.CancelFunc {
	t := &timer{d: d, fn: fn}
	f.timers = append(f.timers, t)
	return func() bool {
		was := !t.canceled
		t.canceled = true
		return was
	}
}

func newStore() (*snooze.Store, *fakeScheduler, *[]string) {
	sched := &fakeScheduler{}
	var woken []string
	s := snooze.New(sched, func(_ context.Context, key string) { woken = append(woken, key) },
		snooze.WithClock(func() time.Time { return t0 }))
	return s, sched, &woken
}

func record(user int, pkg string, id int, mutate ...func(*notifications.Payload)) *notifications.Record {
	p := &notifications.Payload{ChannelID: "c", Icon: "i"}
	for _, m := range mutate {
		m(p)
	}
	return notifications.NewRecord(notifications.Identity{Package: pkg, ID: id, UserID: user}, p, nil, t0)
}

func TestSnooze_DurationWakes(t *testing.T) {
	t.Parallel()
	s, sched, woken := newStore()

	r := record(0, "app1", 1)
	s.Snooze(r, time.Minute)
	require.Len(t, sched.timers, 1)
	assert.Equal(t, time.Minute, sched.timers[0].d)
	assert.True(t, s.IsSnoozed(r.Key()))
	until, ok := s.Until(r.Key())
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Minute), until)

	sched.timers[0].fn(context.Background())
	assert.Equal(t, []string{r.Key()}, *woken)

	assert.Same(t, r, s.Repost(r.Key()))
	assert.False(t, s.IsSnoozed(r.Key()))
	assert.True(t, sched.timers[0].canceled)
	assert.Nil(t, s.Repost(r.Key()))
}

func TestSnooze_ResnoozeCancelsOldTimer(t *testing.T) {
	t.Parallel()
	s, sched, _ := newStore()

	r := record(0, "app1", 1)
	s.Snooze(r, time.Minute)
	s.Snooze(r, time.Hour)
	require.Len(t, sched.timers, 2)
	assert.True(t, sched.timers[0].canceled)
	assert.False(t, sched.timers[1].canceled)
	assert.Equal(t, 1, s.Len())
}

func TestSnooze_Criterion(t *testing.T) {
	t.Parallel()
	s, sched, _ := newStore()

	a := record(0, "app1", 1)
	b := record(0, "app1", 2)
	c := record(0, "app1", 3)
	s.SnoozeWithCriterion(a, "home")
	s.SnoozeWithCriterion(b, "work")
	s.SnoozeWithCriterion(c, "home")
	assert.Empty(t, sched.timers)
	_, ok := s.Until(a.Key())
	assert.False(t, ok)

	assert.Equal(t, []*notifications.Record{a, c}, s.RepostCriterion("home"))
	assert.Equal(t, []*notifications.Record{b}, s.All())
}

func TestSnooze_CancelScopes(t *testing.T) {
	t.Parallel()
	s, _, _ := newStore()

	tagged := notifications.NewRecord(notifications.Identity{Package: "app1", ID: 1, Tag: "t"}, &notifications.Payload{}, nil, t0)
	s.Snooze(tagged, time.Minute)
	s.Snooze(record(0, "app1", 2), time.Minute)
	s.Snooze(record(0, "app2", 1), time.Minute)
	s.Snooze(record(10, "app1", 1), time.Minute)

	assert.Same(t, tagged, s.Cancel(0, "app1", "t", 1))
	assert.Nil(t, s.Cancel(0, "app1", "", 1))
	assert.Len(t, s.Snoozed(0, ""), 2)
	assert.Len(t, s.CancelAll(0, "app1"), 1)
	assert.Len(t, s.CancelUser(10), 1)
	assert.Equal(t, []string{notifications.Key(0, "app2", 1, "")}, s.Keys())
}

func TestSnooze_UpdateAndGroupSummary(t *testing.T) {
	t.Parallel()
	s, sched, _ := newStore()

	summary := record(0, "app1", 1, func(p *notifications.Payload) {
		p.Group = "g"
		p.Flags = notifications.FlagGroupSummary
	})
	child := record(0, "app1", 2, func(p *notifications.Payload) { p.Group = "g" })
	s.Snooze(summary, time.Minute)
	s.Snooze(child, time.Minute)

	updated := record(0, "app1", 2, func(p *notifications.Payload) {
		p.Group = "g"
		p.Title = "new"
	})
	assert.True(t, s.Update(updated))
	assert.Same(t, updated, s.Get(child.Key()))
	assert.False(t, sched.timers[1].canceled, "updates keep the wake-up")
	assert.False(t, s.Update(record(0, "app1", 9)))

	assert.Nil(t, s.RepostGroupSummary(0, "app1", "0|app1|g:other"))
	assert.Same(t, summary, s.RepostGroupSummary(0, "app1", summary.GroupKey()))
	assert.Nil(t, s.Get(summary.Key()))
	assert.Equal(t, []*notifications.Record{updated}, s.Snoozed(0, "app1"))
}
