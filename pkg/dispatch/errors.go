package dispatch

import "errors"

var (
	ErrNilObserver         = errors.New("dispatch: observer is nil")
	ErrUnknownObserver     = errors.New("dispatch: unknown observer")
	ErrAssistantRegistered = errors.New("dispatch: user already has an assistant")
	ErrNotAssistant        = errors.New("dispatch: observer is not an assistant")
	ErrCapability          = errors.New("dispatch: adjustment type not allowed for assistant")
)
