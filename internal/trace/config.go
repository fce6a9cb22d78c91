package trace

import (
	"time"

	"github.com/KilimcininKorOglu/hoptrace/internal/probe"
)

const (
	// DefaultHopLimit is the hop limit used when none is configured
	DefaultHopLimit = 30

	// DefaultDelay is the pause between two probes
	DefaultDelay = time.Second

	// MaxHopLimit is the largest TTL an IPv4 header can carry
	MaxHopLimit = 255

	minTimeout = 10 * time.Millisecond
)

// Config holds the configuration for a trace operation.
type Config struct {
	// HopLimit is the last TTL probed; 0 means no probes at all
	HopLimit int

	// Timeout bounds the wait for each reply (default: 2s)
	Timeout time.Duration

	// Delay is the pause between two probes (default: 1s)
	Delay time.Duration

	// PacketSize is the padded echo request size (default: 512)
	PacketSize int

	// Identifier is the echo identifier; 0 picks a random session token
	Identifier uint16

	// StopOnReach ends the trace after the destination answered.
	// By default every TTL up to HopLimit is probed.
	StopOnReach bool

	// OnSend is called right before each echo request leaves
	OnSend func(ttl int)

	// OnHop is called after each hop is probed
	OnHop func(hop *Hop)
}

// DefaultConfig returns a Config with the default probe policy.
func DefaultConfig() *Config {
	return &Config{
		HopLimit:   DefaultHopLimit,
		Timeout:    probe.DefaultTimeout,
		Delay:      DefaultDelay,
		PacketSize: probe.DefaultPacketSize,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.HopLimit < 0 || c.HopLimit > MaxHopLimit {
		return ErrInvalidHopLimit
	}
	if c.Timeout < minTimeout {
		return ErrInvalidTimeout
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.PacketSize < probe.EchoHeaderLen || c.PacketSize > probe.MaxPacketSize {
		return ErrInvalidPacketSize
	}
	return nil
}
