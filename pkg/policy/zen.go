package policy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/notifykit/notifyd/pkg/notifications"
)

// ZenMode is the global do-not-disturb mode.
type ZenMode int

const (
	ZenOff ZenMode = iota
	ZenPriority
	ZenAlarms
	ZenNone
)

var zenModeNames = [...]string{"off", "priority", "alarms", "none"}

func (m ZenMode) String() string {
	if m >= 0 && int(m) < len(zenModeNames) {
		return zenModeNames[m]
	}
	return fmt.Sprintf("zen(%d)", int(m))
}

func (m ZenMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *ZenMode) UnmarshalText(text []byte) error {
	i := slices.Index(zenModeNames[:], strings.ToLower(string(text)))
	if i < 0 {
		return fmt.Errorf("%w: zen mode %q", ErrInvalidPolicy, text)
	}
	*m = ZenMode(i)
	return nil
}

// Senders restricts which people may break through priority mode.
type Senders int

const (
	SendersAnyone Senders = iota
	SendersContacts
	SendersStarred
)

var sendersNames = [...]string{"anyone", "contacts", "starred"}

func (s Senders) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(sendersNames) {
		return nil, fmt.Errorf("%w: senders %d", ErrInvalidPolicy, int(s))
	}
	return []byte(sendersNames[s]), nil
}

func (s *Senders) UnmarshalText(text []byte) error {
	i := slices.Index(sendersNames[:], strings.ToLower(string(text)))
	if i < 0 {
		return fmt.Errorf("%w: senders %q", ErrInvalidPolicy, text)
	}
	*s = Senders(i)
	return nil
}

// ZenPolicy is the consolidated do-not-disturb configuration.
type ZenPolicy struct {
	Mode               ZenMode  `yaml:"mode" json:"mode"`
	AllowAlarms        bool     `yaml:"allow_alarms" json:"allow_alarms"`
	AllowCalls         bool     `yaml:"allow_calls" json:"allow_calls"`
	AllowMessages      bool     `yaml:"allow_messages" json:"allow_messages"`
	AllowReminders     bool     `yaml:"allow_reminders" json:"allow_reminders"`
	AllowEvents        bool     `yaml:"allow_events" json:"allow_events"`
	CallsFrom          Senders  `yaml:"calls_from" json:"calls_from"`
	MessagesFrom       Senders  `yaml:"messages_from" json:"messages_from"`
	AllowWhenScreenOff bool     `yaml:"allow_when_screen_off" json:"allow_when_screen_off"`
	AllowWhenScreenOn  bool     `yaml:"allow_when_screen_on" json:"allow_when_screen_on"`
	Contacts           []string `yaml:"contacts" json:"contacts,omitempty"`
	Starred            []string `yaml:"starred" json:"starred,omitempty"`
}

// DefaultZenPolicy mirrors the platform defaults with DND off.
func DefaultZenPolicy() ZenPolicy {
	return ZenPolicy{
		Mode:               ZenOff,
		AllowAlarms:        true,
		AllowCalls:         true,
		AllowReminders:     true,
		AllowEvents:        true,
		CallsFrom:          SendersContacts,
		MessagesFrom:       SendersContacts,
		AllowWhenScreenOff: true,
		AllowWhenScreenOn:  true,
	}
}

// SuppressedEffects lists the visual effects hidden for intercepted
// notifications.
func (p ZenPolicy) SuppressedEffects() notifications.SuppressedEffects {
	var s notifications.SuppressedEffects
	if !p.AllowWhenScreenOff {
		s |= notifications.SuppressLights | notifications.SuppressFullScreenIntent | notifications.SuppressAmbient
	}
	if !p.AllowWhenScreenOn {
		s |= notifications.SuppressPeek
	}
	return s
}

// Intercepts reports whether the policy silences c.
func (p ZenPolicy) Intercepts(c Candidate) bool {
	switch p.Mode {
	case ZenOff:
		return false
	case ZenNone:
		return true
	case ZenAlarms:
		return c.Category != notifications.CategoryAlarm
	}
	if c.BypassDnd {
		return false
	}
	switch c.Category {
	case notifications.CategoryAlarm:
		return !p.AllowAlarms
	case notifications.CategoryCall:
		return !p.AllowCalls || !p.matches(c.People, p.CallsFrom)
	case notifications.CategoryMessage:
		return !p.AllowMessages || !p.matches(c.People, p.MessagesFrom)
	case notifications.CategoryEvent:
		return !p.AllowEvents
	case notifications.CategoryReminder:
		return !p.AllowReminders
	}
	return true
}

func (p ZenPolicy) matches(people []string, from Senders) bool {
	switch from {
	case SendersAnyone:
		return true
	case SendersStarred:
		return slices.ContainsFunc(people, func(x string) bool { return slices.Contains(p.Starred, x) })
	default:
		return slices.ContainsFunc(people, func(x string) bool {
			return slices.Contains(p.Contacts, x) || slices.Contains(p.Starred, x)
		})
	}
}
