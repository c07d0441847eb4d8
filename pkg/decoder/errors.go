package decoder

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHex indicates the payload hex string could not be decoded.
	ErrInvalidHex = errors.New("invalid payload hex")

	// ErrTruncated indicates the payload ended before the schema's header
	// could be read.
	ErrTruncated = errors.New("payload truncated")
)

// FieldError wraps a per-field read failure with the field it occurred in.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
