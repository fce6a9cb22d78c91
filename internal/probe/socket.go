package probe

import (
	"net/netip"
	"time"
)

// Conn is a raw ICMP endpoint. Reads return whole IPv4 datagrams,
// header included.
type Conn interface {
	// SetTTL sets the IP Time-To-Live used by subsequent sends.
	SetTTL(ttl int) error

	// SetReadTimeout bounds how long the next Receive may block.
	SetReadTimeout(d time.Duration) error

	// Send transmits an ICMP message to dst.
	Send(b []byte, dst netip.Addr) error

	// Receive blocks for one datagram. It returns ErrTimeout when the
	// read timeout elapses first.
	Receive(buf []byte) (int, netip.Addr, error)

	Close() error
}
