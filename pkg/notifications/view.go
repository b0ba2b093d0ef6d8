package notifications

import (
	"slices"
	"time"
)

// View is the immutable copy of a record handed to observers.
type View struct {
	Key           string    `json:"key"`
	GroupKey      string    `json:"group_key"`
	OverrideGroup string    `json:"override_group,omitempty"`
	Package       string    `json:"package"`
	OpPackage     string    `json:"op_package"`
	Tag           string    `json:"tag,omitempty"`
	ID            int       `json:"id"`
	UID           int       `json:"uid"`
	UserID        int       `json:"user_id"`
	Flags         Flags     `json:"flags"`
	PostTime      time.Time `json:"post_time"`
	Payload       Payload   `json:"payload"`
}

// View copies the record. With light set, bulky payload content is dropped.
func (r *Record) View(light bool) View {
	p := r.payload.Clone()
	if light {
		p = r.payload.CloneLight()
	}
	return View{
		Key:           r.key,
		GroupKey:      r.GroupKey(),
		OverrideGroup: r.overrideGroup,
		Package:       r.identity.Package,
		OpPackage:     r.identity.OpPackage,
		Tag:           r.identity.Tag,
		ID:            r.identity.ID,
		UID:           r.identity.UID,
		UserID:        r.identity.UserID,
		Flags:         r.flags,
		PostTime:      r.postTime,
		Payload:       *p,
	}
}

// Ranking is one entry of a ranking snapshot.
type Ranking struct {
	Key                   string            `json:"key"`
	Rank                  int               `json:"rank"`
	Importance            Importance        `json:"importance"`
	ImportanceExplanation string            `json:"importance_explanation,omitempty"`
	Visibility            Visibility        `json:"visibility"`
	OverrideGroup         string            `json:"override_group,omitempty"`
	ChannelID             string            `json:"channel_id"`
	Intercepted           bool              `json:"intercepted"`
	SuppressedEffects     SuppressedEffects `json:"suppressed_effects"`
	ShowBadge             bool              `json:"show_badge"`
	CanBubble             bool              `json:"can_bubble"`
	Hidden                bool              `json:"hidden"`
	UserSentiment         UserSentiment     `json:"user_sentiment"`
	SnoozeCriteria        []SnoozeCriterion `json:"snooze_criteria,omitempty"`
	SmartActions          []string          `json:"smart_actions,omitempty"`
	SmartReplies          []string          `json:"smart_replies,omitempty"`
	Interruptive          bool              `json:"interruptive"`
	Seen                  bool              `json:"seen"`
	LastAudiblyAlerted    time.Time         `json:"last_audibly_alerted,omitzero"`
}

// Ranking snapshots the ranking-relevant state of the record at rank.
func (r *Record) Ranking(rank int) Ranking {
	return Ranking{
		Key:                   r.key,
		Rank:                  rank,
		Importance:            r.importance,
		ImportanceExplanation: r.importanceExplanation,
		Visibility:            r.visibility,
		OverrideGroup:         r.overrideGroup,
		ChannelID:             r.ChannelID(),
		Intercepted:           r.intercepted,
		SuppressedEffects:     r.suppressedEffects,
		ShowBadge:             r.showBadge,
		CanBubble:             r.canBubble,
		Hidden:                r.hidden,
		UserSentiment:         r.userSentiment,
		SnoozeCriteria:        slices.Clone(r.snoozeCriteria),
		SmartActions:          slices.Clone(r.smartActions),
		SmartReplies:          slices.Clone(r.smartReplies),
		Interruptive:          r.interruptive,
		Seen:                  r.seen,
		LastAudiblyAlerted:    r.lastAudiblyAlerted,
	}
}

// RankingMap is an ordered ranking snapshot. Index equals Rank.
type RankingMap []Ranking

// Get returns the entry for key.
func (m RankingMap) Get(key string) (Ranking, bool) {
	for _, r := range m {
		if r.Key == key {
			return r, true
		}
	}
	return Ranking{}, false
}

// Keys returns keys in rank order.
func (m RankingMap) Keys() []string {
	keys := make([]string, len(m))
	for i, r := range m {
		keys[i] = r.Key
	}
	return keys
}
