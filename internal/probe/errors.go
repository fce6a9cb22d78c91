package probe

import "errors"

// Probe-related errors.
var (
	// ErrTimeout indicates no packet arrived within the receive window
	ErrTimeout = errors.New("probe timeout")

	// ErrPermissionDenied indicates insufficient privileges for raw sockets
	ErrPermissionDenied = errors.New("permission denied: raw socket requires elevated privileges")

	// ErrUnsupportedPlatform indicates raw ICMP sockets are not available on this OS
	ErrUnsupportedPlatform = errors.New("raw ICMP sockets are not supported on this platform")

	// ErrInvalidPacket indicates a malformed or truncated packet was received
	ErrInvalidPacket = errors.New("invalid packet received")

	// ErrSocketClosed indicates the socket has been closed
	ErrSocketClosed = errors.New("socket closed")

	// ErrInvalidTTL indicates the TTL value is out of range
	ErrInvalidTTL = errors.New("TTL must be between 1 and 255")

	// ErrInvalidDestination indicates the destination is not an IPv4 address
	ErrInvalidDestination = errors.New("destination must be an IPv4 address")

	// ErrSendFailed indicates the echo request could not be transmitted
	ErrSendFailed = errors.New("send failed")
)

// IsTimeout returns true if the error indicates a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsPermissionError returns true if the error is a permission error.
func IsPermissionError(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
