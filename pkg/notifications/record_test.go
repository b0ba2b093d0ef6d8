package notifications_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifyd/pkg/notifications"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newRecord(id int, payload *notifications.Payload, ch *notifications.Channel) *notifications.Record {
	if payload == nil {
		payload = &notifications.Payload{ChannelID: "c", Icon: "i"}
	}
	return notifications.NewRecord(notifications.Identity{Package: "app1", ID: id, UID: 10010}, payload, ch, t0)
}

func TestNewRecord(t *testing.T) {
	t.Parallel()

	payload := &notifications.Payload{
		ChannelID: "c",
		Icon:      "i",
		Flags:     notifications.FlagForegroundService | notifications.FlagGroupSummary | notifications.FlagOngoing,
		Extras:    map[string]string{"a": "b"},
	}
	r := newRecord(1, payload, &notifications.Channel{ID: "c", Importance: notifications.ImportanceHigh})

	assert.Equal(t, "0|app1|1|", r.Key())
	assert.Equal(t, "app1", r.OpPackage())
	assert.Equal(t, notifications.StateEnqueued, r.State())
	assert.Equal(t, notifications.ImportanceHigh, r.Importance())
	assert.Equal(t, -1, r.Rank())
	assert.True(t, r.HasFlag(notifications.FlagOngoing))
	assert.False(t, r.HasFlag(notifications.FlagForegroundService), "foreground flag is set by the broker only")
	assert.False(t, r.HasFlag(notifications.FlagGroupSummary), "summary flag requires a group")
	assert.False(t, r.IsClearable())
	assert.Equal(t, r.Key(), r.GroupKey())

	payload.Extras["a"] = "changed"
	assert.Equal(t, "b", r.Payload().Extras["a"])
}

func TestRecord_Lifecycle(t *testing.T) {
	t.Parallel()

	r := newRecord(1, nil, nil)
	require.NoError(t, r.MarkPosted(t0.Add(time.Second)))
	assert.Equal(t, notifications.StatePosted, r.State())
	assert.Equal(t, t0.Add(time.Second), r.PostTime())

	require.NoError(t, r.MarkSnoozed())
	require.NoError(t, r.MarkReposted(t0))
	assert.Equal(t, notifications.StateEnqueued, r.State())

	err := r.MarkSuperseded()
	assert.ErrorIs(t, err, notifications.ErrIllegalTransition)

	require.NoError(t, r.MarkCanceled(notifications.ReasonAppCancel))
	assert.Equal(t, notifications.ReasonAppCancel, r.CancelReason())
	assert.ErrorIs(t, r.MarkPosted(t0), notifications.ErrIllegalTransition)
	assert.ErrorIs(t, r.MarkCanceled(notifications.ReasonCancel), notifications.ErrIllegalTransition)
}

func TestRecord_Groups(t *testing.T) {
	t.Parallel()

	summary := newRecord(1, &notifications.Payload{ChannelID: "c", Icon: "i", Group: "g", Flags: notifications.FlagGroupSummary}, nil)
	assert.True(t, summary.IsGroupSummary())
	assert.Equal(t, "0|app1|g:g", summary.GroupKey())

	child := newRecord(2, &notifications.Payload{ChannelID: "c", Icon: "i", Group: "g"}, nil)
	assert.True(t, child.IsGroupChild())
	assert.Equal(t, summary.GroupKey(), child.GroupKey())

	loose := newRecord(3, nil, nil)
	assert.False(t, loose.IsGrouped())
	loose.SetOverrideGroup("app1:autogroup")
	assert.True(t, loose.IsGroupChild())
	assert.False(t, loose.IsAppGrouped())
	assert.Equal(t, "0|app1|g:app1:autogroup", loose.GroupKey())
}

func TestRecord_EffectiveAlerting(t *testing.T) {
	t.Parallel()

	light := &notifications.Light{Color: 0xff0000, On: time.Second, Off: time.Second}

	legacy := newRecord(1, &notifications.Payload{
		ChannelID: "c", Icon: "i", Sound: "ding",
		Vibration: []time.Duration{0, time.Second},
		Light:     light, Flags: notifications.FlagShowLights,
	}, nil)
	assert.Equal(t, "ding", legacy.Sound())
	assert.Len(t, legacy.Vibration(), 2)
	assert.Equal(t, light, legacy.Light())

	ch := &notifications.Channel{ID: "c", Importance: notifications.ImportanceDefault, ShouldVibrate: true}
	channeled := newRecord(2, &notifications.Payload{ChannelID: "c", Icon: "i", Sound: "ding"}, ch)
	assert.Empty(t, channeled.Sound(), "channel settings take precedence")
	assert.Equal(t, notifications.DefaultVibration, channeled.Vibration())
	assert.Nil(t, channeled.Light())
}

func TestRecord_SignalsAndAdjustments(t *testing.T) {
	t.Parallel()

	r := newRecord(1, nil, &notifications.Channel{ID: "c", Importance: notifications.ImportanceHigh, BypassDnd: true})
	in := r.SignalInput()
	assert.Equal(t, notifications.ImportanceHigh, in.ChannelImportance)
	assert.True(t, in.BypassDnd)

	r.ApplySignals(notifications.Signals{Importance: notifications.ImportanceLow, Intercepted: true})
	assert.Equal(t, notifications.ImportanceLow, r.Importance())
	assert.True(t, r.IsIntercepted())

	high := notifications.ImportanceMax
	score := 0.9
	r.AddAdjustment(notifications.Adjustment{Key: r.Key(), Importance: &high})
	r.AddAdjustment(notifications.Adjustment{Key: r.Key(), RankingScore: &score})
	assert.Equal(t, notifications.ImportanceLow, r.Importance(), "pending adjustments do not apply until folded")

	require.True(t, r.ApplyPendingAdjustments())
	assert.False(t, r.ApplyPendingAdjustments())
	assert.Equal(t, notifications.ImportanceMax, r.Importance())
	assert.InDelta(t, 0.9, r.RankingScore(), 1e-9)
	assert.Len(t, r.Adjustments(), 2)

	r.ApplySignals(notifications.Signals{Importance: notifications.ImportanceNone})
	assert.Equal(t, notifications.ImportanceNone, r.Importance(), "a blocked channel wins over the assistant")
}

func TestRecord_SetUpdate(t *testing.T) {
	t.Parallel()

	old := newRecord(1, &notifications.Payload{ChannelID: "c", Icon: "i", Title: "a"}, nil)
	old.MarkForegroundService()
	old.SetAudiblyAlerted(t0)
	sentiment := notifications.SentimentPositive
	old.AddAdjustment(notifications.Adjustment{Key: old.Key(), UserSentiment: &sentiment})
	old.ApplyPendingAdjustments()

	next := notifications.NewRecord(old.Identity(), &notifications.Payload{ChannelID: "c", Icon: "i", Title: "b"}, nil, t0.Add(time.Minute))
	next.SetUpdate(old)

	assert.True(t, next.IsUpdate())
	assert.True(t, next.TextChanged())
	assert.True(t, next.HasFlag(notifications.FlagForegroundService))
	assert.Equal(t, old.CreationTime(), next.CreationTime())
	assert.Equal(t, old.RankingTime(), next.RankingTime())
	assert.Equal(t, t0, next.LastAudiblyAlerted())
	assert.Equal(t, notifications.SentimentPositive, next.UserSentiment())
}

func TestRecord_Visibility(t *testing.T) {
	t.Parallel()

	r := newRecord(1, nil, nil)
	r.SetVisible(true, t0)
	r.SetVisible(true, t0.Add(time.Second))
	assert.True(t, r.IsVisible())
	assert.Equal(t, 1, r.VisibleCount())
	r.SetVisible(false, t0)
	r.SetVisible(true, t0)
	assert.Equal(t, 2, r.VisibleCount())
}

func TestRecord_ViewAndRanking(t *testing.T) {
	t.Parallel()

	r := newRecord(7, &notifications.Payload{ChannelID: "c", Icon: "i", TickerText: "tick", Extras: map[string]string{"k": "v"}}, nil)
	full := r.View(false)
	assert.Equal(t, r.Key(), full.Key)
	assert.Equal(t, "tick", full.Payload.TickerText)

	light := r.View(true)
	assert.Empty(t, light.Payload.TickerText)
	assert.Nil(t, light.Payload.Extras)

	m := notifications.RankingMap{r.Ranking(0)}
	got, ok := m.Get(r.Key())
	require.True(t, ok)
	assert.Equal(t, 0, got.Rank)
	assert.Equal(t, []string{r.Key()}, m.Keys())
	_, ok = m.Get("missing")
	assert.False(t, ok)
}
