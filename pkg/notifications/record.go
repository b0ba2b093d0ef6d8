package notifications

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/notifykit/notifyd/pkg/statemachine"
)

// Identity names who posted a notification and under which id/tag.
type Identity struct {
	Package   string `json:"package" validate:"required"`
	OpPackage string `json:"op_package,omitempty"`
	Tag       string `json:"tag,omitempty"`
	ID        int    `json:"id"`
	UID       int    `json:"uid" validate:"gte=0"`
	PID       int    `json:"pid,omitempty"`
	UserID    int    `json:"user_id" validate:"gte=0"`
}

// Record is the broker's mutable view of one notification. Records are not
// safe for concurrent use; the owner serializes access.
type Record struct {
	key      string
	identity Identity
	payload  *Payload
	channel  *Channel
	flags    Flags
	state    *statemachine.Machine

	baseImportance        Importance
	assistantImportance   Importance
	importance            Importance
	importanceExplanation string
	intercepted           bool
	isCall                bool
	suppressedEffects     SuppressedEffects
	visibility            Visibility
	showBadge             bool
	canBubble             bool
	hidden                bool

	overrideGroup  string
	snoozeCriteria []SnoozeCriterion
	userSentiment  UserSentiment
	smartActions   []string
	smartReplies   []string
	rankingScore   float64
	pending        []Adjustment
	applied        []Adjustment

	rank int

	creationTime       time.Time
	postTime           time.Time
	rankingTime        time.Time
	updateTime         time.Time
	lastAudiblyAlerted time.Time
	visibleSince       time.Time

	isUpdate      bool
	textChanged   bool
	interruptive  bool
	seen          bool
	visibleCount  int
	cancelReason  CancelReason
	dismissal     DismissalSurface
	dismissalMood UserSentiment
}

// NewRecord creates an enqueued record. The payload and channel are copied.
func NewRecord(id Identity, payload *Payload, channel *Channel, now time.Time) *Record {
	if id.OpPackage == "" {
		id.OpPackage = id.Package
	}
	p := payload.Clone()
	if p == nil {
		p = &Payload{}
	}
	flags := p.Flags &^ (FlagForegroundService | FlagAutogroupSummary)
	if p.Group == "" {
		flags &^= FlagGroupSummary
	}
	r := &Record{
		key:                 Key(id.UserID, id.Package, id.ID, id.Tag),
		identity:            id,
		payload:             p,
		channel:             channel.Clone(),
		flags:               flags,
		state:               lifecycle.New(),
		baseImportance:      ImportanceDefault,
		assistantImportance: ImportanceUnspecified,
		visibility:          VisibilityNoOverride,
		showBadge:           true,
		canBubble:           true,
		rank:                -1,
		creationTime:        now,
		postTime:            now,
		updateTime:          now,
	}
	if channel != nil {
		r.baseImportance = channel.Importance
	}
	r.rankingTime = now
	if !p.When.IsZero() && !p.When.After(now) {
		r.rankingTime = p.When
	}
	r.recomputeImportance()
	return r
}

func (r *Record) Key() string          { return r.key }
func (r *Record) Identity() Identity   { return r.identity }
func (r *Record) Package() string      { return r.identity.Package }
func (r *Record) OpPackage() string    { return r.identity.OpPackage }
func (r *Record) Tag() string          { return r.identity.Tag }
func (r *Record) ID() int              { return r.identity.ID }
func (r *Record) UID() int             { return r.identity.UID }
func (r *Record) UserID() int          { return r.identity.UserID }
func (r *Record) Channel() *Channel    { return r.channel }
func (r *Record) Flags() Flags         { return r.flags }
func (r *Record) HasFlag(f Flags) bool { return r.flags.Has(f) }

// Payload returns the record's payload. Callers must not modify it.
func (r *Record) Payload() *Payload { return r.payload }

// SetFlags adds flags set by the broker itself.
func (r *Record) SetFlags(f Flags) { r.flags |= f }

// ClearFlags removes flags.
func (r *Record) ClearFlags(f Flags) { r.flags &^= f }

// MarkForegroundService flags the record as backing a foreground service.
// The flag survives updates until the record is canceled.
func (r *Record) MarkForegroundService() { r.flags |= FlagForegroundService }

func (r *Record) ChannelID() string {
	if r.channel != nil {
		return r.channel.ID
	}
	return r.payload.ChannelID
}

// AppGroup is the group the app asked for.
func (r *Record) AppGroup() string { return r.payload.Group }

// OverrideGroup is a group imposed by autogrouping or an assistant.
func (r *Record) OverrideGroup() string { return r.overrideGroup }

// SetOverrideGroup imposes a group, or clears it with "".
func (r *Record) SetOverrideGroup(group string) { r.overrideGroup = group }

// Group is the effective group name.
func (r *Record) Group() string {
	if r.overrideGroup != "" {
		return r.overrideGroup
	}
	return r.payload.Group
}

// GroupKey is shared by all members of the effective group. Ungrouped
// records use their own key.
func (r *Record) GroupKey() string {
	g := r.Group()
	if g == "" {
		return r.key
	}
	return GroupKey(r.identity.UserID, r.identity.Package, g)
}

func (r *Record) IsGrouped() bool          { return r.Group() != "" }
func (r *Record) IsAppGrouped() bool       { return r.payload.Group != "" }
func (r *Record) IsGroupSummary() bool     { return r.IsGrouped() && r.flags.Has(FlagGroupSummary) }
func (r *Record) IsGroupChild() bool       { return r.IsGrouped() && !r.flags.Has(FlagGroupSummary) }
func (r *Record) IsAutogroupSummary() bool { return r.flags.Has(FlagAutogroupSummary) }

// IsClearable reports whether a user clear-all may remove the record.
func (r *Record) IsClearable() bool {
	return r.flags&(FlagOngoing|FlagNoClear) == 0
}

// Sound is the effective sound, or "" for silence. A channel decides when
// present.
func (r *Record) Sound() string {
	if r.channel != nil {
		return r.channel.Sound
	}
	return r.payload.Sound
}

// Vibration is the effective vibration pattern, or nil.
func (r *Record) Vibration() []time.Duration {
	if r.channel != nil {
		return r.channel.VibrationPattern()
	}
	return r.payload.Vibration
}

// Light is the effective light, or nil.
func (r *Record) Light() *Light {
	if r.channel != nil {
		return r.channel.Light
	}
	if r.flags.Has(FlagShowLights) {
		return r.payload.Light
	}
	return nil
}

// State is the lifecycle state.
func (r *Record) State() statemachine.State { return r.state.Current() }

func (r *Record) fire(event statemachine.Event) error {
	if err := r.state.Fire(context.Background(), event, nil); err != nil {
		return fmt.Errorf("%w: %s from %s: %w", ErrIllegalTransition, event.Name(), r.state.Current().Name(), err)
	}
	return nil
}

// MarkPosted moves an enqueued record to posted.
func (r *Record) MarkPosted(now time.Time) error {
	if err := r.fire(eventPost); err != nil {
		return err
	}
	r.postTime = now
	return nil
}

// MarkSnoozed moves an enqueued or posted record to snoozed.
func (r *Record) MarkSnoozed() error { return r.fire(eventSnooze) }

// MarkReposted moves a snoozed record back to enqueued.
func (r *Record) MarkReposted(now time.Time) error {
	if err := r.fire(eventRepost); err != nil {
		return err
	}
	r.updateTime = now
	return nil
}

// MarkCanceled ends the record's life.
func (r *Record) MarkCanceled(reason CancelReason) error {
	if err := r.fire(eventCancel); err != nil {
		return err
	}
	r.cancelReason = reason
	return nil
}

// MarkSuperseded ends a posted record replaced by an update.
func (r *Record) MarkSuperseded() error { return r.fire(eventSupersede) }

func (r *Record) CancelReason() CancelReason { return r.cancelReason }

// SetUpdate marks r as replacing old and copies the ranking state that must
// survive an update.
func (r *Record) SetUpdate(old *Record) {
	r.isUpdate = true
	r.CopyRankingInformation(old)
	if old.flags.Has(FlagForegroundService) {
		r.flags |= FlagForegroundService
	}
	r.textChanged = old.payload.Title != r.payload.Title || old.payload.Text != r.payload.Text
}

// CopyRankingInformation keeps the creation time, ranking time and assistant
// state of old.
func (r *Record) CopyRankingInformation(old *Record) {
	r.creationTime = old.creationTime
	if r.payload.When.IsZero() || r.payload.When.After(r.updateTime) {
		r.rankingTime = old.rankingTime
	}
	r.lastAudiblyAlerted = old.lastAudiblyAlerted
	r.seen = old.seen
	r.visibleCount = old.visibleCount
	if r.overrideGroup == "" && !r.IsAppGrouped() {
		r.overrideGroup = old.overrideGroup
	}
	if old.assistantImportance != ImportanceUnspecified {
		r.assistantImportance = old.assistantImportance
		r.recomputeImportance()
	}
	r.userSentiment = old.userSentiment
	r.snoozeCriteria = slices.Clone(old.snoozeCriteria)
	r.rankingScore = old.rankingScore
}

func (r *Record) IsUpdate() bool                { return r.isUpdate }
func (r *Record) TextChanged() bool             { return r.textChanged }
func (r *Record) CreationTime() time.Time       { return r.creationTime }
func (r *Record) PostTime() time.Time           { return r.postTime }
func (r *Record) RankingTime() time.Time        { return r.rankingTime }
func (r *Record) UpdateTime() time.Time         { return r.updateTime }
func (r *Record) LastAudiblyAlerted() time.Time { return r.lastAudiblyAlerted }

// SetAudiblyAlerted records the time of a sound or vibration.
func (r *Record) SetAudiblyAlerted(now time.Time) { r.lastAudiblyAlerted = now }

func (r *Record) IsInterruptive() bool   { return r.interruptive }
func (r *Record) SetInterruptive(v bool) { r.interruptive = v }

// SignalInput snapshots the fields read by signal extraction.
func (r *Record) SignalInput() SignalInput {
	in := SignalInput{
		Key:               r.key,
		Package:           r.identity.Package,
		UID:               r.identity.UID,
		UserID:            r.identity.UserID,
		ChannelID:         r.ChannelID(),
		ChannelImportance: ImportanceDefault,
		ChannelVisibility: VisibilityNoOverride,
		Category:          r.payload.Category,
		People:            slices.Clone(r.payload.People),
		Flags:             r.flags,
		Visibility:        r.payload.Visibility,
		Group:             r.Group(),
		ShowBadge:         true,
		AllowBubbles:      true,
	}
	if r.channel != nil {
		in.ChannelImportance = r.channel.Importance
		in.ChannelVisibility = r.channel.LockscreenVisibility
		in.BypassDnd = r.channel.BypassDnd
		in.ShowBadge = r.channel.ShowBadge
		in.AllowBubbles = r.channel.AllowBubbles
	}
	return in
}

// ApplySignals stores the result of signal extraction.
func (r *Record) ApplySignals(s Signals) {
	r.baseImportance = s.Importance
	r.importanceExplanation = s.Explanation
	r.intercepted = s.Intercepted
	r.isCall = s.IsCall
	r.suppressedEffects = s.SuppressedEffects
	r.visibility = s.Visibility
	r.showBadge = s.ShowBadge
	r.canBubble = s.CanBubble
	r.hidden = s.Hidden
	if !s.CanBubble {
		r.flags &^= FlagBubble
	}
	r.recomputeImportance()
}

func (r *Record) recomputeImportance() {
	switch {
	case r.baseImportance == ImportanceNone:
		r.importance = ImportanceNone
	case r.assistantImportance != ImportanceUnspecified:
		r.importance = r.assistantImportance
	case r.baseImportance == ImportanceUnspecified:
		r.importance = ImportanceDefault
	default:
		r.importance = r.baseImportance
	}
}

func (r *Record) Importance() Importance               { return r.importance }
func (r *Record) ImportanceExplanation() string        { return r.importanceExplanation }
func (r *Record) IsIntercepted() bool                  { return r.intercepted }
func (r *Record) IsCall() bool                         { return r.isCall }
func (r *Record) SuppressedEffects() SuppressedEffects { return r.suppressedEffects }
func (r *Record) Visibility() Visibility               { return r.visibility }
func (r *Record) ShowBadge() bool                      { return r.showBadge }
func (r *Record) CanBubble() bool                      { return r.canBubble }
func (r *Record) IsHidden() bool                       { return r.hidden }
func (r *Record) SetHidden(v bool)                     { r.hidden = v }
func (r *Record) UserSentiment() UserSentiment         { return r.userSentiment }
func (r *Record) RankingScore() float64                { return r.rankingScore }
func (r *Record) SnoozeCriteria() []SnoozeCriterion    { return r.snoozeCriteria }
func (r *Record) SmartActions() []string               { return r.smartActions }
func (r *Record) SmartReplies() []string               { return r.smartReplies }

// AddAdjustment queues an adjustment to be applied at the next ranking pass
// or post.
func (r *Record) AddAdjustment(a Adjustment) {
	r.pending = append(r.pending, a.clone())
}

// HasPendingAdjustments reports whether adjustments are waiting.
func (r *Record) HasPendingAdjustments() bool { return len(r.pending) > 0 }

// ApplyPendingAdjustments folds queued adjustments into the record in
// arrival order and reports whether any were applied.
func (r *Record) ApplyPendingAdjustments() bool {
	if len(r.pending) == 0 {
		return false
	}
	for _, a := range r.pending {
		if a.Importance != nil {
			r.assistantImportance = *a.Importance
		}
		if a.Group != nil {
			r.overrideGroup = *a.Group
		}
		if a.SnoozeCriteria != nil {
			r.snoozeCriteria = a.SnoozeCriteria
		}
		if a.UserSentiment != nil {
			r.userSentiment = *a.UserSentiment
		}
		if a.SmartActions != nil {
			r.smartActions = a.SmartActions
		}
		if a.SmartReplies != nil {
			r.smartReplies = a.SmartReplies
		}
		if a.RankingScore != nil {
			r.rankingScore = *a.RankingScore
		}
		r.applied = append(r.applied, a)
	}
	r.pending = nil
	r.recomputeImportance()
	return true
}

// Adjustments returns the applied adjustment history, oldest first.
func (r *Record) Adjustments() []Adjustment { return slices.Clone(r.applied) }

func (r *Record) Rank() int        { return r.rank }
func (r *Record) SetRank(rank int) { r.rank = rank }

// SetSeen marks the record as seen by the user.
func (r *Record) SetSeen()     { r.seen = true }
func (r *Record) IsSeen() bool { return r.seen }

// SetVisible tracks on-screen visibility transitions.
func (r *Record) SetVisible(visible bool, now time.Time) {
	if visible {
		if r.visibleSince.IsZero() {
			r.visibleSince = now
			r.visibleCount++
		}
		return
	}
	r.visibleSince = time.Time{}
}

func (r *Record) IsVisible() bool   { return !r.visibleSince.IsZero() }
func (r *Record) VisibleCount() int { return r.visibleCount }

// RecordDismissal stores where and how the user dismissed the record.
func (r *Record) RecordDismissal(surface DismissalSurface, sentiment UserSentiment) {
	r.dismissal = surface
	r.dismissalMood = sentiment
}

func (r *Record) Dismissal() (DismissalSurface, UserSentiment) {
	return r.dismissal, r.dismissalMood
}
