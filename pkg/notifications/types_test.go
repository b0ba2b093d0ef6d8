package notifications_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifyd/pkg/notifications"
)

func TestParseImportance(t *testing.T) {
	t.Parallel()

	imp, err := notifications.ParseImportance(" High ")
	require.NoError(t, err)
	assert.Equal(t, notifications.ImportanceHigh, imp)

	_, err = notifications.ParseImportance("urgent")
	assert.ErrorIs(t, err, notifications.ErrUnknownImportance)
}

func TestImportanceJSON(t *testing.T) {
	t.Parallel()

	var ch notifications.Channel
	require.NoError(t, json.Unmarshal([]byte(`{"id":"c","importance":"low"}`), &ch))
	assert.Equal(t, notifications.ImportanceLow, ch.Importance)

	out, err := json.Marshal(ch)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"importance":"low"`)
}

func TestKeys(t *testing.T) {
	t.Parallel()

	key := notifications.Key(10, "app1", -3, "a|b")
	assert.Equal(t, "10|app1|-3|a|b", key)

	parsed, ok := notifications.ParseKey(key)
	require.True(t, ok)
	assert.Equal(t, notifications.ParsedKey{UserID: 10, Package: "app1", ID: -3, Tag: "a|b"}, parsed)

	_, ok = notifications.ParseKey("bad")
	assert.False(t, ok)

	assert.Equal(t, "10|app1|g:news", notifications.GroupKey(10, "app1", "news"))
}

func TestFlagsAndReasons(t *testing.T) {
	t.Parallel()

	f := notifications.FlagOngoing | notifications.FlagNoClear
	assert.True(t, f.Has(notifications.FlagOngoing))
	assert.False(t, f.Has(notifications.FlagOngoing|notifications.FlagAutoCancel))
	assert.Equal(t, "app_cancel", notifications.ReasonAppCancel.String())
	assert.Equal(t, "reason(99)", notifications.CancelReason(99).String())
}
