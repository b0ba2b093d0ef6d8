package policy

import "errors"

var (
	ErrInvalidPolicy = errors.New("policy: invalid policy document")
	ErrUIDMismatch   = errors.New("policy: calling uid does not own package")
)
