package notifications

import (
	"fmt"
	"strings"
)

// Importance is the interruption level of a notification, from None (never
// shown) to Max. Unspecified means "inherit".
type Importance int

const (
	ImportanceUnspecified Importance = -1000
	ImportanceNone        Importance = 0
	ImportanceMin         Importance = 1
	ImportanceLow         Importance = 2
	ImportanceDefault     Importance = 3
	ImportanceHigh        Importance = 4
	ImportanceMax         Importance = 5
)

var importanceNames = map[Importance]string{
	ImportanceUnspecified: "unspecified",
	ImportanceNone:        "none",
	ImportanceMin:         "min",
	ImportanceLow:         "low",
	ImportanceDefault:     "default",
	ImportanceHigh:        "high",
	ImportanceMax:         "max",
}

func (i Importance) String() string {
	if name, ok := importanceNames[i]; ok {
		return name
	}
	return fmt.Sprintf("importance(%d)", int(i))
}

// MarshalText encodes the importance by name.
func (i Importance) MarshalText() ([]byte, error) {
	if _, ok := importanceNames[i]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownImportance, int(i))
	}
	return []byte(i.String()), nil
}

// UnmarshalText accepts the names produced by String.
func (i *Importance) UnmarshalText(text []byte) error {
	v, err := ParseImportance(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// ParseImportance parses an importance name, case-insensitively.
func ParseImportance(s string) (Importance, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for imp, name := range importanceNames {
		if name == s {
			return imp, nil
		}
	}
	return ImportanceUnspecified, fmt.Errorf("%w: %q", ErrUnknownImportance, s)
}

// Visibility controls how much of a notification is shown on a locked screen.
type Visibility int

const (
	VisibilityNoOverride Visibility = -1000
	VisibilitySecret     Visibility = -1
	VisibilityPrivate    Visibility = 0
	VisibilityPublic     Visibility = 1
)

// Flags are notification behavior bits.
type Flags uint32

const (
	FlagShowLights Flags = 1 << iota
	FlagOngoing
	FlagInsistent
	FlagOnlyAlertOnce
	FlagAutoCancel
	FlagNoClear
	FlagForegroundService
	FlagGroupSummary
	FlagAutogroupSummary
	FlagBubble
)

// Has reports whether every bit of f is set.
func (fl Flags) Has(f Flags) bool { return fl&f == f }

// SuppressedEffects lists visual effects hidden while do-not-disturb
// intercepts a notification.
type SuppressedEffects uint32

const (
	SuppressFullScreenIntent SuppressedEffects = 1 << iota
	SuppressLights
	SuppressPeek
	SuppressStatusBar
	SuppressBadge
	SuppressAmbient
	SuppressNotificationList
)

func (s SuppressedEffects) Has(e SuppressedEffects) bool { return s&e == e }

// GroupAlertBehavior selects which members of a group may alert.
type GroupAlertBehavior int

const (
	GroupAlertAll GroupAlertBehavior = iota
	GroupAlertSummary
	GroupAlertChildren
)

// UserSentiment is the assistant's estimate of how the user feels about a
// notification.
type UserSentiment int

const (
	SentimentNegative UserSentiment = -1
	SentimentNeutral  UserSentiment = 0
	SentimentPositive UserSentiment = 1
)

// DismissalSurface is where the user dismissed a notification from.
type DismissalSurface int

const (
	DismissalOther DismissalSurface = iota
	DismissalPeek
	DismissalAmbient
	DismissalShade
)

// Notification categories understood by the policy oracles.
const (
	CategoryCall     = "call"
	CategoryMessage  = "msg"
	CategoryAlarm    = "alarm"
	CategoryEvent    = "event"
	CategoryReminder = "reminder"
	CategoryService  = "service"
	CategoryProgress = "progress"
	CategoryPromo    = "promo"
)

// CancelReason explains why a notification left the posted set.
type CancelReason int

const (
	ReasonClick CancelReason = iota + 1
	ReasonCancel
	ReasonCancelAll
	ReasonError
	ReasonPackageChanged
	ReasonUserStopped
	ReasonPackageBanned
	ReasonAppCancel
	ReasonAppCancelAll
	ReasonListenerCancel
	ReasonListenerCancelAll
	ReasonGroupSummaryCanceled
	ReasonGroupOptimization
	ReasonPackageSuspended
	ReasonProfileTurnedOff
	ReasonUnautobundled
	ReasonChannelBanned
	ReasonSnoozed
	ReasonTimeout
	ReasonHidden
)

var reasonNames = [...]string{
	ReasonClick:                "click",
	ReasonCancel:               "cancel",
	ReasonCancelAll:            "cancel_all",
	ReasonError:                "error",
	ReasonPackageChanged:       "package_changed",
	ReasonUserStopped:          "user_stopped",
	ReasonPackageBanned:        "package_banned",
	ReasonAppCancel:            "app_cancel",
	ReasonAppCancelAll:         "app_cancel_all",
	ReasonListenerCancel:       "listener_cancel",
	ReasonListenerCancelAll:    "listener_cancel_all",
	ReasonGroupSummaryCanceled: "group_summary_canceled",
	ReasonGroupOptimization:    "group_optimization",
	ReasonPackageSuspended:     "package_suspended",
	ReasonProfileTurnedOff:     "profile_turned_off",
	ReasonUnautobundled:        "unautobundled",
	ReasonChannelBanned:        "channel_banned",
	ReasonSnoozed:              "snoozed",
	ReasonTimeout:              "timeout",
	ReasonHidden:               "hidden",
}

func (r CancelReason) String() string {
	if r > 0 && int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

func (r CancelReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ListenerHints are effect-suppression requests made by listeners. The
// effective value is the union over all listeners.
type ListenerHints uint32

const (
	HintDisableEffects ListenerHints = 1 << iota
	HintDisableNotificationEffects
	HintDisableCallEffects
)

func (h ListenerHints) Has(f ListenerHints) bool { return h&f == f }
