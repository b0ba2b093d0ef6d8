package ranking

import (
	"github.com/notifykit/notifyd/pkg/notifications"
	"github.com/notifykit/notifyd/pkg/policy"
)

// Extractor derives part of a notification's signals from a snapshot.
// Extractors may call slow oracles and never see the record itself.
type Extractor interface {
	Name() string
	Extract(in notifications.SignalInput, s *notifications.Signals)
}

// Extractors runs a chain of extractors in order.
type Extractors []Extractor

// Extract computes signals for in, starting from the channel's settings.
func (es Extractors) Extract(in notifications.SignalInput) notifications.Signals {
	s := notifications.Signals{
		Importance: in.ChannelImportance,
		Visibility: notifications.VisibilityNoOverride,
		ShowBadge:  in.ShowBadge,
		CanBubble:  in.AllowBubbles,
	}
	for _, e := range es {
		e.Extract(in, &s)
	}
	return s
}

// DefaultExtractors returns the standard chain.
func DefaultExtractors(prefs policy.Preferences, zen policy.Zen, pkgs policy.Packages) Extractors {
	return Extractors{
		ImportanceExtractor{Prefs: prefs},
		VisibilityExtractor{},
		BadgeExtractor{Prefs: prefs},
		BubbleExtractor{Prefs: prefs},
		ZenExtractor{Zen: zen},
		HiddenExtractor{Packages: pkgs},
	}
}

// ImportanceExtractor applies package-level blocking on top of the channel
// importance.
type ImportanceExtractor struct{ Prefs policy.Preferences }

func (ImportanceExtractor) Name() string { return "importance" }

func (e ImportanceExtractor) Extract(in notifications.SignalInput, s *notifications.Signals) {
	if s.Importance == notifications.ImportanceUnspecified {
		s.Importance = notifications.ImportanceDefault
	}
	s.Explanation = "channel " + in.ChannelID
	if e.Prefs == nil {
		return
	}
	if e.Prefs.Importance(in.Package, in.UID) == notifications.ImportanceNone {
		s.Importance = notifications.ImportanceNone
		s.Explanation = "package blocked"
	}
}

// VisibilityExtractor applies the channel's lockscreen visibility.
type VisibilityExtractor struct{}

func (VisibilityExtractor) Name() string { return "visibility" }

func (VisibilityExtractor) Extract(in notifications.SignalInput, s *notifications.Signals) {
	if in.ChannelVisibility != notifications.VisibilityNoOverride {
		s.Visibility = in.ChannelVisibility
	}
}

// BadgeExtractor combines package and channel badge settings.
type BadgeExtractor struct{ Prefs policy.Preferences }

func (BadgeExtractor) Name() string { return "badge" }

func (e BadgeExtractor) Extract(in notifications.SignalInput, s *notifications.Signals) {
	if e.Prefs != nil && !e.Prefs.CanShowBadge(in.Package, in.UID) {
		s.ShowBadge = false
	}
}

// BubbleExtractor combines package and channel bubble settings.
type BubbleExtractor struct{ Prefs policy.Preferences }

func (BubbleExtractor) Name() string { return "bubble" }

func (e BubbleExtractor) Extract(in notifications.SignalInput, s *notifications.Signals) {
	if e.Prefs != nil && !e.Prefs.AreBubblesAllowed(in.Package, in.UID) {
		s.CanBubble = false
	}
}

// ZenExtractor decides interception, suppressed effects and call status.
type ZenExtractor struct{ Zen policy.Zen }

func (ZenExtractor) Name() string { return "zen" }

func (e ZenExtractor) Extract(in notifications.SignalInput, s *notifications.Signals) {
	if e.Zen == nil {
		return
	}
	s.IsCall = e.Zen.IsCall(in)
	if e.Zen.ShouldIntercept(in) {
		s.Intercepted = true
		s.SuppressedEffects = e.Zen.ConsolidatedPolicy().SuppressedEffects()
	}
}

// HiddenExtractor hides notifications of suspended packages.
type HiddenExtractor struct{ Packages policy.Packages }

func (HiddenExtractor) Name() string { return "hidden" }

func (e HiddenExtractor) Extract(in notifications.SignalInput, s *notifications.Signals) {
	if e.Packages != nil && e.Packages.IsSuspended(in.Package, in.UserID) {
		s.Hidden = true
	}
}
