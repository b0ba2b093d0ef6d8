package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifyd/pkg/dispatch"
	"github.com/notifykit/notifyd/pkg/notifications"
)

var t0 = time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

type profiles map[int]int

func (p profiles) SameProfileGroup(a, b int) bool {
	ga, oka := p[a]
	gb, okb := p[b]
	return oka && okb && ga == gb
}

var nop = dispatch.ObserverFunc(func(context.Context, dispatch.Event) error { return nil })

func record(user, id int) *notifications.Record {
	return notifications.NewRecord(notifications.Identity{Package: "app1", ID: id, UserID: user},
		&notifications.Payload{ChannelID: "c", Icon: "i", Title: "t", Extras: map[string]string{"k": "v"}}, nil, t0)
}

func TestRegistry_RegisterAndUnregister(t *testing.T) {
	t.Parallel()
	r := dispatch.NewRegistry()

	_, err := r.Register(dispatch.Registration{})
	require.ErrorIs(t, err, dispatch.ErrNilObserver)

	a, err := r.Register(dispatch.Registration{Component: "shade", Enabled: true, Observer: nop})
	require.NoError(t, err)
	assert.NotEmpty(t, a)
	b, err := r.Register(dispatch.Registration{ID: "fixed", Enabled: true, Observer: nop})
	require.NoError(t, err)
	assert.Equal(t, "fixed", b)

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, a, snap[0].ID)

	reg, err := r.Unregister(a)
	require.NoError(t, err)
	assert.Equal(t, "shade", reg.Component)
	_, err = r.Unregister(a)
	require.ErrorIs(t, err, dispatch.ErrUnknownObserver)
	assert.ErrorIs(t, r.SetTrim(a, dispatch.TrimLight), dispatch.ErrUnknownObserver)
	require.NoError(t, r.SetEnabled(b, false))
	assert.Empty(t, r.Listeners())
}

func TestRegistry_OneAssistantPerUser(t *testing.T) {
	t.Parallel()
	r := dispatch.NewRegistry()

	id, err := r.Register(dispatch.Registration{UserID: 0, Assistant: true, Enabled: true, Observer: nop,
		Capabilities: []notifications.AdjustmentType{notifications.AdjustImportance}})
	require.NoError(t, err)
	_, err = r.Register(dispatch.Registration{UserID: 0, Assistant: true, Observer: nop})
	require.ErrorIs(t, err, dispatch.ErrAssistantRegistered)

	reg, ok := r.Assistant(0)
	require.True(t, ok)
	assert.Equal(t, id, reg.ID)
	assert.True(t, reg.Allows(notifications.AdjustImportance))
	assert.False(t, reg.Allows(notifications.AdjustGroup))
	_, ok = r.Assistant(10)
	assert.False(t, ok)
	assert.Empty(t, r.Listeners(), "assistants are not listeners")
	assert.True(t, dispatch.Registration{}.Allows(notifications.AdjustGroup))
}

func TestRegistry_HintsAreCombined(t *testing.T) {
	t.Parallel()
	r := dispatch.NewRegistry()
	a, _ := r.Register(dispatch.Registration{Enabled: true, Observer: nop})
	b, _ := r.Register(dispatch.Registration{Enabled: true, Observer: nop})

	h, err := r.SetHints(a, notifications.HintDisableCallEffects)
	require.NoError(t, err)
	assert.Equal(t, notifications.HintDisableCallEffects, h)
	h, err = r.SetHints(b, notifications.HintDisableEffects)
	require.NoError(t, err)
	assert.Equal(t, notifications.HintDisableCallEffects|notifications.HintDisableEffects, h)

	_, err = r.Unregister(b)
	require.NoError(t, err)
	assert.Equal(t, notifications.HintDisableCallEffects, r.Hints())
}

func TestRegistry_Sees(t *testing.T) {
	t.Parallel()
	r := dispatch.NewRegistry(dispatch.WithProfiles(profiles{0: 1, 10: 1, 11: 2}))

	tests := []struct {
		name   string
		reg    dispatch.Registration
		user   int
		hidden bool
		want   bool
	}{
		{"same user", dispatch.Registration{UserID: 0, Enabled: true}, 0, false, true},
		{"all users", dispatch.Registration{UserID: dispatch.UserAll, Enabled: true}, 11, false, true},
		{"profile group", dispatch.Registration{UserID: 0, Enabled: true}, 10, false, true},
		{"other user", dispatch.Registration{UserID: 0, Enabled: true}, 11, false, false},
		{"disabled", dispatch.Registration{UserID: 0}, 0, false, false},
		{"hidden", dispatch.Registration{UserID: 0, Enabled: true}, 0, true, false},
		{"sees hidden", dispatch.Registration{UserID: 0, Enabled: true, SeesHidden: true}, 0, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Sees(tt.reg, tt.user, tt.hidden))
		})
	}
}

func TestRegistry_RankingAndViews(t *testing.T) {
	t.Parallel()
	r := dispatch.NewRegistry()
	reg := dispatch.Registration{UserID: 0, Enabled: true, Trim: dispatch.TrimLight}

	posted := []*notifications.Record{record(0, 1), record(10, 1), record(0, 2)}
	m := r.RankingFor(reg, posted)
	require.Len(t, m, 2)
	assert.Equal(t, []string{posted[0].Key(), posted[2].Key()}, m.Keys())
	assert.Equal(t, 1, m[1].Rank)

	views := r.Visible(reg, posted)
	require.Len(t, views, 2)
	assert.Nil(t, views[0].Payload.Extras, "light trim drops extras")
	assert.Equal(t, "t", views[0].Payload.Title)
}
