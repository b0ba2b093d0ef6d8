package httpapi

import "errors"

var (
	ErrNilBroker       = errors.New("httpapi: broker is nil")
	ErrListenerExists  = errors.New("httpapi: listener id already registered")
	ErrMissingSnooze   = errors.New("httpapi: snooze needs a duration or a criterion")
	ErrStreamingFailed = errors.New("httpapi: response does not support streaming")
)
