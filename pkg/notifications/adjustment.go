package notifications

import "slices"

// AdjustmentType names one field an assistant may change.
type AdjustmentType string

const (
	AdjustImportance     AdjustmentType = "importance"
	AdjustGroup          AdjustmentType = "group"
	AdjustSnoozeCriteria AdjustmentType = "snooze_criteria"
	AdjustUserSentiment  AdjustmentType = "user_sentiment"
	AdjustSmartActions   AdjustmentType = "smart_actions"
	AdjustSmartReplies   AdjustmentType = "smart_replies"
	AdjustRankingScore   AdjustmentType = "ranking_score"
)

// SnoozeCriterion is a condition an assistant proposes for waking a snoozed
// notification.
type SnoozeCriterion struct {
	ID           string `json:"id"`
	Explanation  string `json:"explanation,omitempty"`
	Confirmation string `json:"confirmation,omitempty"`
}

// Adjustment is a set of assistant-proposed changes to one notification.
// Nil fields are left untouched.
type Adjustment struct {
	Key         string `json:"key" validate:"required"`
	Issuer      string `json:"issuer,omitempty"`
	Explanation string `json:"explanation,omitempty"`

	Importance     *Importance       `json:"importance,omitempty"`
	Group          *string           `json:"group,omitempty"`
	SnoozeCriteria []SnoozeCriterion `json:"snooze_criteria,omitempty"`
	UserSentiment  *UserSentiment    `json:"user_sentiment,omitempty"`
	SmartActions   []string          `json:"smart_actions,omitempty"`
	SmartReplies   []string          `json:"smart_replies,omitempty"`
	RankingScore   *float64          `json:"ranking_score,omitempty"`
}

// Types lists the fields this adjustment sets.
func (a Adjustment) Types() []AdjustmentType {
	var out []AdjustmentType
	if a.Importance != nil {
		out = append(out, AdjustImportance)
	}
	if a.Group != nil {
		out = append(out, AdjustGroup)
	}
	if a.SnoozeCriteria != nil {
		out = append(out, AdjustSnoozeCriteria)
	}
	if a.UserSentiment != nil {
		out = append(out, AdjustUserSentiment)
	}
	if a.SmartActions != nil {
		out = append(out, AdjustSmartActions)
	}
	if a.SmartReplies != nil {
		out = append(out, AdjustSmartReplies)
	}
	if a.RankingScore != nil {
		out = append(out, AdjustRankingScore)
	}
	return out
}

// Empty reports whether the adjustment changes nothing.
func (a Adjustment) Empty() bool { return len(a.Types()) == 0 }

// Filter returns a copy that keeps only the fields allowed reports true for,
// along with the types that were removed.
func (a Adjustment) Filter(allowed func(AdjustmentType) bool) (Adjustment, []AdjustmentType) {
	var dropped []AdjustmentType
	for _, t := range a.Types() {
		if allowed(t) {
			continue
		}
		dropped = append(dropped, t)
		switch t {
		case AdjustImportance:
			a.Importance = nil
		case AdjustGroup:
			a.Group = nil
		case AdjustSnoozeCriteria:
			a.SnoozeCriteria = nil
		case AdjustUserSentiment:
			a.UserSentiment = nil
		case AdjustSmartActions:
			a.SmartActions = nil
		case AdjustSmartReplies:
			a.SmartReplies = nil
		case AdjustRankingScore:
			a.RankingScore = nil
		}
	}
	return a, dropped
}

func (a Adjustment) clone() Adjustment {
	a.SnoozeCriteria = slices.Clone(a.SnoozeCriteria)
	a.SmartActions = slices.Clone(a.SmartActions)
	a.SmartReplies = slices.Clone(a.SmartReplies)
	return a
}
