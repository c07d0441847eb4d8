package frame

import "errors"

var (
	// ErrInvalidHex indicates the frame hex string could not be decoded
	// (odd length or non-hex characters).
	ErrInvalidHex = errors.New("invalid frame hex")

	// ErrFrameTooShort indicates the frame is smaller than the fixed
	// header, AUTH tail, and EOF require.
	ErrFrameTooShort = errors.New("frame too short")

	// ErrLengthOutOfRange indicates the LEN field points outside the
	// payload region.
	ErrLengthOutOfRange = errors.New("frame length out of range")
)
