package alerting

import (
	"fmt"
	"time"

	"github.com/notifykit/notifyd/pkg/notifications"
)

// CommandKind is the effector operation a Command performs.
type CommandKind int

const (
	PlaySound CommandKind = iota + 1
	StopSound
	Vibrate
	CancelVibration
	LightOn
	LightOff
)

var commandNames = [...]string{
	PlaySound:       "play_sound",
	StopSound:       "stop_sound",
	Vibrate:         "vibrate",
	CancelVibration: "cancel_vibration",
	LightOn:         "light_on",
	LightOff:        "light_off",
}

func (k CommandKind) String() string {
	if k > 0 && int(k) < len(commandNames) {
		return commandNames[k]
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// Command is one effector call.
type Command struct {
	Kind    CommandKind
	Key     string
	Sound   string
	Pattern []time.Duration
	Repeat  bool
	Light   notifications.Light
}

// Plan is the outcome of an alerting decision. It is computed under the
// broker lock and executed after the lock is released.
type Plan struct {
	Commands []Command
	Buzz     bool
	Beep     bool
	Blink    bool
	// MuteReason names why sound and vibration were skipped, if they were.
	MuteReason string
}

// Empty reports whether the plan does nothing.
func (p Plan) Empty() bool { return len(p.Commands) == 0 }

// Merge appends other's commands to p.
func (p Plan) Merge(other Plan) Plan {
	p.Commands = append(p.Commands, other.Commands...)
	p.Buzz = p.Buzz || other.Buzz
	p.Beep = p.Beep || other.Beep
	p.Blink = p.Blink || other.Blink
	if p.MuteReason == "" {
		p.MuteReason = other.MuteReason
	}
	return p
}

func (p *Plan) add(cmds ...Command) {
	p.Commands = append(p.Commands, cmds...)
}
