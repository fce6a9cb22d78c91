// Package probe implements the single-hop ICMP Echo probe used by hoptrace:
// the Internet checksum, the echo request layout, reply parsing and
// classification, and the raw socket the probes travel over.
package probe

import (
	"context"
	"net/netip"
	"time"
)

// Prober sends one probe for a given TTL and classifies the reply.
type Prober interface {
	// Probe sends a single echo request with the given TTL to dest and waits
	// for at most one reply. hopLimit is the last TTL of the session and only
	// affects the hop-limit notice in the result.
	// A non-nil error means the probe was aborted before anything was received.
	Probe(ctx context.Context, dest netip.Addr, ttl, hopLimit int) (*Result, error)

	// Identifier returns the correlation token stamped into echo requests.
	Identifier() uint16

	// Close releases any resources held by the prober.
	Close() error
}

// Kind identifies one observation made about a probe.
type Kind int

const (
	// KindRouterHop is a Time Exceeded reply from an intermediate router
	KindRouterHop Kind = iota
	// KindDestinationReached is an Echo Reply carrying our identifier
	KindDestinationReached
	// KindHopLimitReached marks the probe sent with the last TTL of the session
	KindHopLimitReached
	// KindNoResponse means nothing usable came back
	KindNoResponse
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindRouterHop:
		return "router_hop"
	case KindDestinationReached:
		return "destination_reached"
	case KindHopLimitReached:
		return "hop_limit_reached"
	case KindNoResponse:
		return "no_response"
	default:
		return "unknown"
	}
}

// Observation is a single classified fact about a probe.
// Addr is set for router hops and destination replies only.
type Observation struct {
	Kind Kind
	Addr netip.Addr
}

// Result contains the outcome of a single probe.
type Result struct {
	// TTL is the Time-To-Live the probe was sent with
	TTL int

	// Observations are the classifications in report order. A hop and a
	// hop-limit notice can both be present for the same probe.
	Observations []Observation

	// TimedOut is set when no packet arrived within the receive window
	TimedOut bool

	// RTT is the time between send and receive (zero on timeout)
	RTT time.Duration

	// Reply is the parsed reply, nil on timeout or when the packet was malformed
	Reply *Reply
}

// Has reports whether the result contains an observation of the given kind.
func (r *Result) Has(kind Kind) bool {
	for _, o := range r.Observations {
		if o.Kind == kind {
			return true
		}
	}
	return false
}

// Addr returns the address of the responding router or destination, if any.
func (r *Result) Addr() (netip.Addr, bool) {
	for _, o := range r.Observations {
		if o.Kind == KindRouterHop || o.Kind == KindDestinationReached {
			return o.Addr, true
		}
	}
	return netip.Addr{}, false
}
