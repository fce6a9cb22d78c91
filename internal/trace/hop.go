// Package trace drives the hop loop: one probe per TTL from 1 to the hop
// limit, with a fixed pause between probes.
package trace

import (
	"net/netip"
	"time"

	"github.com/KilimcininKorOglu/hoptrace/internal/probe"
)

// Hop is the outcome of the single probe sent with one TTL.
type Hop struct {
	// TTL is the Time-To-Live the probe was sent with
	TTL int

	// Observations are the classifications in report order
	Observations []probe.Observation

	// Addr is the responding router or destination, if any
	Addr netip.Addr

	// RTT is the round-trip time of the reply (zero when none arrived)
	RTT time.Duration

	// TimedOut is set when nothing arrived within the timeout
	TimedOut bool

	// Err is set when the probe was aborted before a receive, e.g. a
	// failed send. Observations are empty in that case.
	Err error
}

// Responded reports whether a router or the destination answered.
func (h *Hop) Responded() bool {
	return h.Addr.IsValid()
}

// Reached reports whether the destination answered this probe.
func (h *Hop) Reached() bool {
	return h.has(probe.KindDestinationReached)
}

// AtHopLimit reports whether this probe was sent with the last TTL.
func (h *Hop) AtHopLimit() bool {
	return h.has(probe.KindHopLimitReached)
}

func (h *Hop) has(kind probe.Kind) bool {
	for _, o := range h.Observations {
		if o.Kind == kind {
			return true
		}
	}
	return false
}

// TraceResult contains the complete result of a trace operation.
type TraceResult struct {
	// Target is the destination as given by the user (possibly an alias)
	Target string

	// Destination is the IPv4 address probed
	Destination netip.Addr

	// HopLimit is the last TTL of the session
	HopLimit int

	// Identifier is the echo identifier of the session
	Identifier uint16

	// Timestamp is when the trace started
	Timestamp time.Time

	// Hops contains one entry per probe, in TTL order
	Hops []Hop

	// Completed indicates if the destination answered
	Completed bool

	// Summary contains aggregate statistics
	Summary Summary
}

// Summary contains aggregate statistics for a trace.
type Summary struct {
	// Probes is the number of probes attempted
	Probes int

	// Responded is the number of probes answered by a router or the destination
	Responded int

	// Timeouts is the number of probes without any reply
	Timeouts int

	// SendErrors is the number of probes that could not be sent
	SendErrors int

	// DestinationTTL is the first TTL the destination answered at (0 if never)
	DestinationTTL int

	// Elapsed is the wall time of the whole trace
	Elapsed time.Duration
}
