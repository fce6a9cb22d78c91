package trace

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/KilimcininKorOglu/hoptrace/internal/logger"
	"github.com/KilimcininKorOglu/hoptrace/internal/probe"
)

const tracerName = "github.com/KilimcininKorOglu/hoptrace/internal/trace"

// Tracer performs network path tracing operations.
type Tracer struct {
	config     *Config
	prober     probe.Prober
	sleep      func(ctx context.Context, d time.Duration)
	otelTracer oteltrace.Tracer
}

// New opens a raw ICMP socket and creates a Tracer on it.
func New(config *Config) (*Tracer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	conn, err := probe.ListenRaw()
	if err != nil {
		return nil, fmt.Errorf("failed to create raw socket: %w", err)
	}

	return NewWithConn(config, conn)
}

// NewWithConn creates a Tracer whose ICMP prober runs over conn.
func NewWithConn(config *Config, conn probe.Conn) (*Tracer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	prober := probe.NewICMPProberWithConn(conn, probe.ICMPProberConfig{
		Timeout:    config.Timeout,
		PacketSize: config.PacketSize,
		Identifier: config.Identifier,
		BeforeSend: config.OnSend,
	})

	return NewWithProber(config, prober)
}

// NewWithProber creates a Tracer around an existing prober.
func NewWithProber(config *Config, prober probe.Prober) (*Tracer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Tracer{
		config:     config,
		prober:     prober,
		sleep:      sleepContext,
		otelTracer: otel.Tracer(tracerName),
	}, nil
}

// ParseDestination parses a dotted-decimal IPv4 literal. Host names are
// not resolved.
func ParseDestination(s string) (netip.Addr, error) {
	// netip accepts IPv4-mapped IPv6 forms like ::ffff:1.2.3.4; only the
	// dotted-decimal form is a valid destination here
	if strings.Contains(s, ":") {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidDestination, s)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidDestination, s)
	}
	return addr, nil
}

// Trace probes dest once for every TTL from 1 to the hop limit.
//
// Per-probe failures are recorded on the hop and never stop the loop. A
// cancelled context stops it between probes; the hops gathered so far are
// returned together with the context error.
func (t *Tracer) Trace(ctx context.Context, target string, dest netip.Addr) (*TraceResult, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	result := &TraceResult{
		Target:      target,
		Destination: dest,
		HopLimit:    t.config.HopLimit,
		Identifier:  t.prober.Identifier(),
		Timestamp:   start,
		Hops:        make([]Hop, 0, t.config.HopLimit),
	}

	var err error
	for ttl := 1; ttl <= t.config.HopLimit; ttl++ {
		if err = ctx.Err(); err != nil {
			break
		}

		hop := t.probeHop(ctx, dest, ttl)
		if errors.Is(hop.Err, context.Canceled) || errors.Is(hop.Err, context.DeadlineExceeded) {
			err = hop.Err
			break
		}

		result.Hops = append(result.Hops, hop)
		if t.config.OnHop != nil {
			t.config.OnHop(&result.Hops[len(result.Hops)-1])
		}

		if hop.Reached() && t.config.StopOnReach {
			log.DebugContext(ctx, "Destination reached, stopping", "ttl", ttl)
			break
		}

		if ttl < t.config.HopLimit {
			t.sleep(ctx, t.config.Delay)
		}
	}

	t.finish(result, start)
	return result, err
}

// probeHop sends the single probe for one TTL and converts the result.
func (t *Tracer) probeHop(ctx context.Context, dest netip.Addr, ttl int) Hop {
	ctx, span := t.otelTracer.Start(ctx, fmt.Sprintf("probe ttl=%d", ttl), oteltrace.WithAttributes(
		attribute.Int("ttl", ttl),
		attribute.String("destination", dest.String()),
	))
	defer span.End()

	hop := Hop{TTL: ttl}

	res, err := t.prober.Probe(ctx, dest, ttl, t.config.HopLimit)
	if err != nil {
		logger.FromContext(ctx).DebugContext(ctx, "Probe aborted", "ttl", ttl, "error", err)
		span.SetStatus(codes.Error, "probe aborted")
		span.RecordError(err)
		hop.Err = err
		return hop
	}

	hop.Observations = res.Observations
	hop.RTT = res.RTT
	hop.TimedOut = res.TimedOut
	if addr, ok := res.Addr(); ok {
		hop.Addr = addr
	}

	kinds := make([]string, 0, len(res.Observations))
	for _, o := range res.Observations {
		kinds = append(kinds, o.Kind.String())
	}
	span.SetAttributes(
		attribute.StringSlice("outcome", kinds),
		attribute.Bool("timed_out", res.TimedOut),
	)
	if hop.Addr.IsValid() {
		span.SetAttributes(attribute.String("responder", hop.Addr.String()))
	}

	return hop
}

// finish fills in the completion flag and summary.
func (t *Tracer) finish(result *TraceResult, start time.Time) {
	result.Summary = calculateSummary(result.Hops)
	result.Summary.Elapsed = time.Since(start)
	result.Completed = result.Summary.DestinationTTL > 0
}

// Close releases resources held by the tracer.
func (t *Tracer) Close() error {
	if t.prober != nil {
		return t.prober.Close()
	}
	return nil
}

// calculateSummary calculates aggregate statistics for the trace.
func calculateSummary(hops []Hop) Summary {
	summary := Summary{Probes: len(hops)}

	for i := range hops {
		hop := &hops[i]
		switch {
		case hop.Err != nil:
			summary.SendErrors++
		case hop.TimedOut:
			summary.Timeouts++
		case hop.Responded():
			summary.Responded++
		}

		if summary.DestinationTTL == 0 && hop.Reached() {
			summary.DestinationTTL = hop.TTL
		}
	}

	return summary
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
