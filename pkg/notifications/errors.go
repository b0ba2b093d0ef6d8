package notifications

import "errors"

var (
	// ErrUnknownImportance is returned when parsing an unknown importance name.
	ErrUnknownImportance = errors.New("notifications: unknown importance")

	// ErrIllegalTransition is returned when a record lifecycle event does not
	// apply to the record's current state.
	ErrIllegalTransition = errors.New("notifications: illegal lifecycle transition")
)
