package policy

import (
	"context"

	"github.com/notifykit/notifyd/pkg/notifications"
)

// Candidate is the value snapshot oracles evaluate.
type Candidate = notifications.SignalInput

// Zen evaluates do-not-disturb policy.
type Zen interface {
	ShouldIntercept(c Candidate) bool
	ConsolidatedPolicy() ZenPolicy
	IsCall(c Candidate) bool
}

// Preferences answers per-package and per-channel user settings.
type Preferences interface {
	Importance(pkg string, uid int) notifications.Importance
	Channel(pkg string, uid int, id string) (*notifications.Channel, bool)
	IsGroupBlocked(pkg string, uid int, group string) bool
	AreBubblesAllowed(pkg string, uid int) bool
	CanShowBadge(pkg string, uid int) bool
}

// Packages is the package directory.
type Packages interface {
	LaunchIntent(pkg string, userID int) string
	IsSuspended(pkg string, userID int) bool
}

// Profiles resolves profile groups.
type Profiles interface {
	SameProfileGroup(a, b int) bool
}

// Caller identifies who is asking to post or cancel.
type Caller struct {
	Package    string
	OpPackage  string
	CallingUID int
	CallingPID int
	UserID     int
}

// Authorizer decides whether a caller may act for a package.
type Authorizer interface {
	Authorize(ctx context.Context, c Caller) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, c Caller) error

func (f AuthorizerFunc) Authorize(ctx context.Context, c Caller) error { return f(ctx, c) }

// AllowAll authorizes every caller.
var AllowAll Authorizer = AuthorizerFunc(func(context.Context, Caller) error { return nil })

// SystemUID is the uid of the platform itself.
const SystemUID = 1000

// SystemPackage is the package name of the platform itself.
const SystemPackage = "android"

// IsSystem reports whether the caller is the platform.
func IsSystem(pkg string, uid int) bool {
	return pkg == SystemPackage || uid == SystemUID || uid == 0
}
