package trace

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/KilimcininKorOglu/hoptrace/internal/probe"
	"github.com/KilimcininKorOglu/hoptrace/internal/probe/probetest"
)

const testID = 0x4242

var testDest = netip.MustParseAddr("192.0.2.10")

// newTestTracer builds a tracer over a scripted connection that never sleeps.
func newTestTracer(t *testing.T, config *Config, conn *probetest.Conn) (*Tracer, *[]time.Duration) {
	t.Helper()
	config.Identifier = testID
	tracer, err := NewWithConn(config, conn)
	if err != nil {
		t.Fatalf("NewWithConn() error = %v", err)
	}
	var sleeps []time.Duration
	tracer.sleep = func(_ context.Context, d time.Duration) {
		sleeps = append(sleeps, d)
	}
	return tracer, &sleeps
}

func hopLimitConfig(n int) *Config {
	config := DefaultConfig()
	config.HopLimit = n
	return config
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.HopLimit != 30 {
		t.Errorf("HopLimit = %d, want 30", config.HopLimit)
	}
	if config.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", config.Timeout)
	}
	if config.Delay != time.Second {
		t.Errorf("Delay = %v, want 1s", config.Delay)
	}
	if config.PacketSize != 512 {
		t.Errorf("PacketSize = %d, want 512", config.PacketSize)
	}
	if config.StopOnReach {
		t.Error("StopOnReach should be off by default")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mutate func(c *Config)) Config {
		c := *DefaultConfig()
		mutate(&c)
		return c
	}

	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{name: "valid config", config: *DefaultConfig()},
		{name: "hop limit 0", config: valid(func(c *Config) { c.HopLimit = 0 })},
		{name: "hop limit 255", config: valid(func(c *Config) { c.HopLimit = 255 })},
		{name: "negative hop limit", config: valid(func(c *Config) { c.HopLimit = -1 }), wantErr: ErrInvalidHopLimit},
		{name: "hop limit 256", config: valid(func(c *Config) { c.HopLimit = 256 }), wantErr: ErrInvalidHopLimit},
		{name: "timeout too short", config: valid(func(c *Config) { c.Timeout = time.Millisecond }), wantErr: ErrInvalidTimeout},
		{name: "negative delay", config: valid(func(c *Config) { c.Delay = -time.Second }), wantErr: ErrInvalidDelay},
		{name: "zero delay", config: valid(func(c *Config) { c.Delay = 0 })},
		{name: "packet smaller than header", config: valid(func(c *Config) { c.PacketSize = 4 }), wantErr: ErrInvalidPacketSize},
		{name: "packet too large", config: valid(func(c *Config) { c.PacketSize = 70000 }), wantErr: ErrInvalidPacketSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDestination(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "8.8.8.8", want: "8.8.8.8"},
		{in: "127.0.0.1", want: "127.0.0.1"},
		{in: "example.com", wantErr: true},
		{in: "::1", wantErr: true},
		{in: "::ffff:1.2.3.4", wantErr: true},
		{in: "1.2.3", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDestination(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDestination) {
					t.Errorf("ParseDestination(%q) error = %v, want %v", tt.in, err, ErrInvalidDestination)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDestination(%q) error = %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseDestination(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTrace_ProbesEveryTTLInOrder(t *testing.T) {
	conn := probetest.NewConn()
	tracer, sleeps := newTestTracer(t, hopLimitConfig(5), conn)

	result, err := tracer.Trace(context.Background(), "192.0.2.10", testDest)
	if err != nil {
		t.Fatalf("Trace() error = %v", err)
	}

	if len(result.Hops) != 5 {
		t.Fatalf("len(Hops) = %d, want 5", len(result.Hops))
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, conn.SentTTLs); diff != "" {
		t.Errorf("sent TTLs mismatch (-want +got):\n%s", diff)
	}

	// each send is preceded by setting exactly its TTL
	var sends int
	for i, call := range conn.Calls {
		if call != "send" {
			continue
		}
		sends++
		want := fmt.Sprintf("ttl=%d", sends)
		if i == 0 || conn.Calls[i-1] != want {
			t.Errorf("send #%d not preceded by %q: calls %v", sends, want, conn.Calls)
		}
	}
	if sends != 5 {
		t.Errorf("sends = %d, want 5", sends)
	}

	// the pause only separates probes
	if diff := cmp.Diff([]time.Duration{time.Second, time.Second, time.Second, time.Second}, *sleeps); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestTrace_ZeroHopLimit(t *testing.T) {
	conn := probetest.NewConn()
	tracer, sleeps := newTestTracer(t, hopLimitConfig(0), conn)

	result, err := tracer.Trace(context.Background(), "192.0.2.10", testDest)
	if err != nil {
		t.Fatalf("Trace() error = %v", err)
	}
	if len(result.Hops) != 0 {
		t.Errorf("len(Hops) = %d, want 0", len(result.Hops))
	}
	if len(conn.Calls) != 0 {
		t.Errorf("socket calls = %v, want none", conn.Calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("sleeps = %v, want none", *sleeps)
	}
}

func TestTrace_Classification(t *testing.T) {
	conn := probetest.NewConn()
	conn.Replies[1] = probetest.TimeExceeded("10.0.0.1")
	conn.Replies[2] = probetest.TimeExceeded("10.0.0.2")
	conn.Replies[4] = probetest.EchoReply("192.0.2.10", testID)
	tracer, _ := newTestTracer(t, hopLimitConfig(4), conn)

	result, err := tracer.Trace(context.Background(), "dst", testDest)
	if err != nil {
		t.Fatalf("Trace() error = %v", err)
	}

	want := [][]probe.Kind{
		{probe.KindRouterHop},
		{probe.KindRouterHop},
		{probe.KindNoResponse},
		{probe.KindDestinationReached, probe.KindHopLimitReached},
	}
	for i, hop := range result.Hops {
		var got []probe.Kind
		for _, o := range hop.Observations {
			got = append(got, o.Kind)
		}
		if diff := cmp.Diff(want[i], got); diff != "" {
			t.Errorf("hop %d kinds mismatch (-want +got):\n%s", hop.TTL, diff)
		}
	}

	if !result.Hops[2].TimedOut {
		t.Error("hop 3 should be timed out")
	}
	if got := result.Hops[0].Addr.String(); got != "10.0.0.1" {
		t.Errorf("hop 1 Addr = %s, want 10.0.0.1", got)
	}
	if !result.Completed {
		t.Error("Completed should be true")
	}
	if result.Identifier != testID {
		t.Errorf("Identifier = %#x, want %#x", result.Identifier, testID)
	}

	wantSummary := Summary{Probes: 4, Responded: 3, Timeouts: 1, DestinationTTL: 4}
	result.Summary.Elapsed = 0
	if diff := cmp.Diff(wantSummary, result.Summary); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}

func TestTrace_ContinuesAfterDestination(t *testing.T) {
	conn := probetest.NewConn()
	conn.Replies[2] = probetest.EchoReply("192.0.2.10", testID)
	conn.Replies[3] = probetest.EchoReply("192.0.2.10", testID)
	tracer, _ := newTestTracer(t, hopLimitConfig(3), conn)

	result, err := tracer.Trace(context.Background(), "dst", testDest)
	if err != nil {
		t.Fatalf("Trace() error = %v", err)
	}
	if len(result.Hops) != 3 {
		t.Errorf("len(Hops) = %d, want 3", len(result.Hops))
	}
	if result.Summary.DestinationTTL != 2 {
		t.Errorf("DestinationTTL = %d, want 2", result.Summary.DestinationTTL)
	}
}

func TestTrace_StopOnReach(t *testing.T) {
	conn := probetest.NewConn()
	conn.Replies[2] = probetest.EchoReply("192.0.2.10", testID)
	config := hopLimitConfig(10)
	config.StopOnReach = true
	tracer, sleeps := newTestTracer(t, config, conn)

	result, err := tracer.Trace(context.Background(), "dst", testDest)
	if err != nil {
		t.Fatalf("Trace() error = %v", err)
	}
	if len(result.Hops) != 2 {
		t.Errorf("len(Hops) = %d, want 2", len(result.Hops))
	}
	if len(*sleeps) != 1 {
		t.Errorf("sleeps = %v, want one", *sleeps)
	}
}

func TestTrace_SendErrorContinues(t *testing.T) {
	conn := probetest.NewConn()
	conn.SendErrs[2] = errors.New("network is unreachable")
	conn.Replies[3] = probetest.TimeExceeded("10.0.0.3")
	tracer, _ := newTestTracer(t, hopLimitConfig(3), conn)

	result, err := tracer.Trace(context.Background(), "dst", testDest)
	if err != nil {
		t.Fatalf("Trace() error = %v", err)
	}
	if len(result.Hops) != 3 {
		t.Fatalf("len(Hops) = %d, want 3", len(result.Hops))
	}

	failed := result.Hops[1]
	if !errors.Is(failed.Err, probe.ErrSendFailed) {
		t.Errorf("hop 2 Err = %v, want %v", failed.Err, probe.ErrSendFailed)
	}
	if len(failed.Observations) != 0 {
		t.Errorf("hop 2 Observations = %v, want none", failed.Observations)
	}
	if result.Summary.SendErrors != 1 {
		t.Errorf("SendErrors = %d, want 1", result.Summary.SendErrors)
	}
	if got := result.Hops[2].Addr.String(); got != "10.0.0.3" {
		t.Errorf("hop 3 Addr = %s, want 10.0.0.3", got)
	}
}

func TestTrace_Callbacks(t *testing.T) {
	conn := probetest.NewConn()
	config := hopLimitConfig(3)

	var events []string
	config.OnSend = func(ttl int) {
		events = append(events, fmt.Sprintf("send %d", ttl))
	}
	config.OnHop = func(hop *Hop) {
		events = append(events, fmt.Sprintf("hop %d", hop.TTL))
	}
	tracer, _ := newTestTracer(t, config, conn)

	if _, err := tracer.Trace(context.Background(), "dst", testDest); err != nil {
		t.Fatalf("Trace() error = %v", err)
	}

	want := []string{"send 1", "hop 1", "send 2", "hop 2", "send 3", "hop 3"}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestTrace_Cancelled(t *testing.T) {
	conn := probetest.NewConn()
	tracer, _ := newTestTracer(t, hopLimitConfig(10), conn)

	ctx, cancel := context.WithCancel(context.Background())
	tracer.sleep = func(context.Context, time.Duration) {
		cancel()
	}

	result, err := tracer.Trace(ctx, "dst", testDest)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Trace() error = %v, want %v", err, context.Canceled)
	}
	if len(result.Hops) != 1 {
		t.Errorf("len(Hops) = %d, want 1", len(result.Hops))
	}
}

func TestTracer_Close(t *testing.T) {
	conn := probetest.NewConn()
	tracer, _ := newTestTracer(t, hopLimitConfig(1), conn)

	if err := tracer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !conn.Closed {
		t.Error("connection should be closed")
	}
}

func TestNewWithProber_InvalidConfig(t *testing.T) {
	_, err := NewWithProber(hopLimitConfig(300), nil)
	if err != ErrInvalidHopLimit {
		t.Errorf("NewWithProber() error = %v, want %v", err, ErrInvalidHopLimit)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleepContext(ctx, time.Minute)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("sleepContext ignored cancellation, took %v", elapsed)
	}
}

// Integration test - requires root/admin privileges
func TestTrace_Localhost(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("raw sockets are not supported on windows")
	}
	if os.Getuid() != 0 && !canCreateRawSocket() {
		t.Skip("Skipping test: requires root privileges or CAP_NET_RAW")
	}

	config := hopLimitConfig(2)
	config.Delay = 0
	config.Timeout = time.Second

	tracer, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tracer.Close()

	result, err := tracer.Trace(context.Background(), "127.0.0.1", netip.MustParseAddr("127.0.0.1"))
	if err != nil {
		t.Fatalf("Trace() error = %v", err)
	}
	if len(result.Hops) != 2 {
		t.Errorf("len(Hops) = %d, want 2", len(result.Hops))
	}
}

func canCreateRawSocket() bool {
	conn, err := probe.ListenRaw()
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
