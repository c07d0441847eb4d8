package store

import "errors"

var (
	// ErrInvalidTransition indicates an alert status change that the
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid alert status transition")
)
