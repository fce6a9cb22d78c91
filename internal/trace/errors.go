package trace

import "errors"

// Trace-related errors.
var (
	// ErrInvalidHopLimit indicates the hop limit is out of range (0-255)
	ErrInvalidHopLimit = errors.New("hop limit must be between 0 and 255")

	// ErrInvalidTimeout indicates the reply timeout is too short
	ErrInvalidTimeout = errors.New("timeout must be at least 10ms")

	// ErrInvalidDelay indicates a negative inter-probe delay
	ErrInvalidDelay = errors.New("delay must not be negative")

	// ErrInvalidPacketSize indicates the echo request size is out of range
	ErrInvalidPacketSize = errors.New("packet size must be between 8 and 65515 bytes")

	// ErrInvalidDestination indicates the destination is not an IPv4 literal
	ErrInvalidDestination = errors.New("destination must be a dotted-decimal IPv4 address")
)
