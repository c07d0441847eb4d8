package bus

import "errors"

var (
	// ErrNotConnected indicates a channel was requested before Connect
	// succeeded or after the connection dropped.
	ErrNotConnected = errors.New("bus: not connected")
)
