package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/KilimcininKorOglu/hoptrace/internal/logger"
)

const (
	// DefaultTimeout is how long a probe waits for its reply
	DefaultTimeout = 2 * time.Second

	// recvBufferSize is large enough for an IPv4 header with options plus
	// the quoted datagram of a Time Exceeded message
	recvBufferSize = 1024
)

// ICMPProber implements the Prober interface using ICMP Echo requests.
type ICMPProber struct {
	conn       Conn
	identifier uint16
	timeout    time.Duration
	packetSize int
	beforeSend func(ttl int)
	recvBuf    []byte
}

// ICMPProberConfig holds configuration for the ICMP prober.
type ICMPProberConfig struct {
	Timeout    time.Duration
	PacketSize int
	Identifier uint16 // If 0, a random session token is used

	// BeforeSend is called after the TTL is set, right before each send.
	BeforeSend func(ttl int)
}

// NewICMPProber opens a raw ICMP socket and creates a prober on it.
func NewICMPProber(config ICMPProberConfig) (*ICMPProber, error) {
	conn, err := ListenRaw()
	if err != nil {
		return nil, err
	}
	return NewICMPProberWithConn(conn, config), nil
}

// NewICMPProberWithConn creates a prober on an existing connection.
// The prober takes ownership of conn.
func NewICMPProberWithConn(conn Conn, config ICMPProberConfig) *ICMPProber {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.PacketSize == 0 {
		config.PacketSize = DefaultPacketSize
	}

	identifier := config.Identifier
	if identifier == 0 {
		identifier = NewSessionToken()
	}

	return &ICMPProber{
		conn:       conn,
		identifier: identifier,
		timeout:    config.Timeout,
		packetSize: config.PacketSize,
		beforeSend: config.BeforeSend,
		recvBuf:    make([]byte, recvBufferSize),
	}
}

// Probe runs one probe cycle: build, set TTL, send, wait once, classify.
// Only a failure before or during the send is returned as an error; a
// timeout or an unusable reply is a regular Result.
func (p *ICMPProber) Probe(ctx context.Context, dest netip.Addr, ttl, hopLimit int) (*Result, error) {
	if ttl < 1 || ttl > 255 {
		return nil, ErrInvalidTTL
	}
	if !dest.Is4() {
		return nil, ErrInvalidDestination
	}
	if p.conn == nil {
		return nil, ErrSocketClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With("ttl", ttl, "destination", dest)
	span := trace.SpanFromContext(ctx)

	msg, err := NewEchoRequest(p.identifier, p.packetSize).Marshal()
	if err != nil {
		return nil, err
	}

	if err := p.conn.SetTTL(ttl); err != nil {
		return nil, fmt.Errorf("failed to set TTL %d: %w", ttl, err)
	}

	if p.beforeSend != nil {
		p.beforeSend(ttl)
	}

	sendTime := time.Now()
	if err := p.conn.Send(msg, dest); err != nil {
		log.ErrorContext(ctx, "Failed to send echo request", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	log.DebugContext(ctx, "Echo request sent", "identifier", p.identifier, "bytes", len(msg))

	if err := p.conn.SetReadTimeout(p.timeout); err != nil {
		return nil, fmt.Errorf("failed to set receive timeout: %w", err)
	}

	result := &Result{TTL: ttl}

	n, src, err := p.conn.Receive(p.recvBuf)
	if err != nil {
		if !IsTimeout(err) {
			log.DebugContext(ctx, "Receive failed", "error", err)
		}
		span.AddEvent("ICMP read timeout exceeded", trace.WithAttributes(
			attribute.Stringer("timeout", p.timeout),
		))
		result.TimedOut = true
		result.Observations = []Observation{{Kind: KindNoResponse}}
		return result, nil
	}
	result.RTT = time.Since(sendTime)

	data := p.recvBuf[:n]
	if log.Enabled(ctx, slog.LevelDebug) {
		log.DebugContext(ctx, "Received packet", "from", src, "bytes", n, "layers", describePacket(data))
	}

	reply, err := ParseReply(data, src)
	if err != nil {
		log.DebugContext(ctx, "Discarding unusable reply", "error", err)
	} else {
		result.Reply = reply
		span.AddEvent("ICMP message received", trace.WithAttributes(
			attribute.String("source", reply.Source.String()),
			attribute.Int("type", int(reply.Type)),
			attribute.Int("code", int(reply.Code)),
		))
	}

	result.Observations = Classify(reply, p.identifier, ttl, hopLimit)
	return result, nil
}

// Identifier returns the echo identifier of this prober.
func (p *ICMPProber) Identifier() uint16 {
	return p.identifier
}

// Close releases resources held by the prober.
func (p *ICMPProber) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
