package notifications

import (
	"slices"
	"time"
)

// DefaultVibration is used when a channel enables vibration without a pattern.
var DefaultVibration = []time.Duration{0, 250 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}

// Channel holds user-controlled settings shared by notifications of one kind.
type Channel struct {
	ID                   string          `json:"id" yaml:"id"`
	Name                 string          `json:"name,omitempty" yaml:"name"`
	Group                string          `json:"group,omitempty" yaml:"group"`
	Importance           Importance      `json:"importance" yaml:"importance"`
	Sound                string          `json:"sound,omitempty" yaml:"sound"`
	ShouldVibrate        bool            `json:"should_vibrate,omitempty" yaml:"should_vibrate"`
	Vibration            []time.Duration `json:"vibration,omitempty" yaml:"vibration"`
	Light                *Light          `json:"light,omitempty" yaml:"light"`
	BypassDnd            bool            `json:"bypass_dnd,omitempty" yaml:"bypass_dnd"`
	ShowBadge            bool            `json:"show_badge,omitempty" yaml:"show_badge"`
	AllowBubbles         bool            `json:"allow_bubbles,omitempty" yaml:"allow_bubbles"`
	LockscreenVisibility Visibility      `json:"lockscreen_visibility,omitempty" yaml:"lockscreen_visibility"`
}

// Clone returns a deep copy.
func (c *Channel) Clone() *Channel {
	if c == nil {
		return nil
	}
	cc := *c
	cc.Vibration = slices.Clone(c.Vibration)
	if c.Light != nil {
		l := *c.Light
		cc.Light = &l
	}
	return &cc
}

// VibrationPattern returns the effective pattern, or nil when the channel
// does not vibrate.
func (c *Channel) VibrationPattern() []time.Duration {
	if c == nil || !c.ShouldVibrate {
		return nil
	}
	if len(c.Vibration) == 0 {
		return DefaultVibration
	}
	return c.Vibration
}
