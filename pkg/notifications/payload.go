package notifications

import (
	"maps"
	"slices"
	"time"
)

// Light describes an LED pattern.
type Light struct {
	Color uint32        `json:"color" yaml:"color"`
	On    time.Duration `json:"on" yaml:"on" validate:"gte=0"`
	Off   time.Duration `json:"off" yaml:"off" validate:"gte=0"`
}

// Payload is the app-supplied content of a notification.
type Payload struct {
	ChannelID          string             `json:"channel_id" validate:"required"`
	Group              string             `json:"group,omitempty"`
	SortKey            string             `json:"sort_key,omitempty"`
	Flags              Flags              `json:"flags,omitempty"`
	GroupAlertBehavior GroupAlertBehavior `json:"group_alert_behavior,omitempty" validate:"gte=0,lte=2"`
	Category           string             `json:"category,omitempty"`
	Visibility         Visibility         `json:"visibility,omitempty"`

	Icon          string `json:"icon" validate:"required"`
	Color         uint32 `json:"color,omitempty"`
	Title         string `json:"title,omitempty" validate:"max=1024"`
	Text          string `json:"text,omitempty" validate:"max=5120"`
	TickerText    string `json:"ticker_text,omitempty"`
	ContentIntent string `json:"content_intent,omitempty"`

	// Legacy alerting fields. A channel's settings take precedence.
	Sound     string          `json:"sound,omitempty"`
	Vibration []time.Duration `json:"vibration,omitempty" validate:"omitempty,dive,gte=0"`
	Light     *Light          `json:"light,omitempty"`

	When         time.Time     `json:"when,omitzero"`
	TimeoutAfter time.Duration `json:"timeout_after,omitempty" validate:"gte=0"`

	People []string          `json:"people,omitempty"`
	URIs   []string          `json:"uris,omitempty" validate:"omitempty,dive,uri"`
	Extras map[string]string `json:"extras,omitempty"`
}

// Clone returns a deep copy.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	c := *p
	c.Vibration = slices.Clone(p.Vibration)
	c.People = slices.Clone(p.People)
	c.URIs = slices.Clone(p.URIs)
	c.Extras = maps.Clone(p.Extras)
	if p.Light != nil {
		l := *p.Light
		c.Light = &l
	}
	return &c
}

// CloneLight returns a copy stripped of bulky content, as delivered to
// observers registered for light trim.
func (p *Payload) CloneLight() *Payload {
	c := p.Clone()
	if c == nil {
		return nil
	}
	c.Extras = nil
	c.People = nil
	c.URIs = nil
	c.TickerText = ""
	return c
}
