package ranking

import (
	"maps"
	"slices"
	"strings"

	"github.com/notifykit/notifyd/pkg/notifications"
)

// Fingerprint captures the per-record state observers see in a ranking.
type Fingerprint struct {
	Importance        notifications.Importance
	Visibility        notifications.Visibility
	ShowBadge         bool
	CanBubble         bool
	Hidden            bool
	Intercepted       bool
	ChannelID         string
	GroupKey          string
	SnoozeCriteria    string
	UserSentiment     notifications.UserSentiment
	SuppressedEffects notifications.SuppressedEffects
	SmartActions      string
	SmartReplies      string
}

// Snapshot is the order and fingerprints of a posted list.
type Snapshot struct {
	order  []string
	prints map[string]Fingerprint
}

// Take snapshots records in their current order.
func Take(records []*notifications.Record) Snapshot {
	s := Snapshot{
		order:  make([]string, len(records)),
		prints: make(map[string]Fingerprint, len(records)),
	}
	for i, r := range records {
		s.order[i] = r.Key()
		s.prints[r.Key()] = FingerprintOf(r)
	}
	return s
}

// FingerprintOf computes the fingerprint of r.
func FingerprintOf(r *notifications.Record) Fingerprint {
	criteria := make([]string, 0, len(r.SnoozeCriteria()))
	for _, c := range r.SnoozeCriteria() {
		criteria = append(criteria, c.ID)
	}
	return Fingerprint{
		Importance:        r.Importance(),
		Visibility:        r.Visibility(),
		ShowBadge:         r.ShowBadge(),
		CanBubble:         r.CanBubble(),
		Hidden:            r.IsHidden(),
		Intercepted:       r.IsIntercepted(),
		ChannelID:         r.ChannelID(),
		GroupKey:          r.GroupKey(),
		SnoozeCriteria:    strings.Join(criteria, "\x00"),
		UserSentiment:     r.UserSentiment(),
		SuppressedEffects: r.SuppressedEffects(),
		SmartActions:      strings.Join(r.SmartActions(), "\x00"),
		SmartReplies:      strings.Join(r.SmartReplies(), "\x00"),
	}
}

// Changed reports whether observers need a ranking update to go from s to
// after.
func (s Snapshot) Changed(after Snapshot) bool {
	return !slices.Equal(s.order, after.order) || !maps.Equal(s.prints, after.prints)
}

// Keys returns the keys in snapshot order.
func (s Snapshot) Keys() []string { return slices.Clone(s.order) }
