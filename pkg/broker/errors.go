package broker

import "errors"

// Caller errors. These are the only failures reported to the caller; every
// other condition is a DropReason.
var (
	ErrInvalidRequest = errors.New("broker: invalid request")
	ErrUnauthorized   = errors.New("broker: unauthorized")
)

var (
	ErrMissingDependency = errors.New("broker: missing dependency")
	ErrInvalidConfig     = errors.New("broker: invalid config")
	ErrStopped           = errors.New("broker: stopped")
	ErrUnknownListener   = errors.New("broker: unknown listener")
	ErrNotAssistant      = errors.New("broker: caller is not an assistant")
)

// IsCallerError reports whether err should be shown to the calling app.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrUnauthorized)
}
