package tui

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/KilimcininKorOglu/hoptrace/internal/probe"
	"github.com/KilimcininKorOglu/hoptrace/internal/probe/probetest"
	"github.com/KilimcininKorOglu/hoptrace/internal/trace"
)

var testDest = netip.MustParseAddr("192.0.2.10")

func newTestModel(t *testing.T, conn *probetest.Conn, hopLimit int) *Model {
	t.Helper()
	config := trace.DefaultConfig()
	config.HopLimit = hopLimit
	config.Delay = 0
	config.Identifier = 0x4242

	factory := func(c *trace.Config) (*trace.Tracer, error) {
		return trace.NewWithConn(c, conn)
	}
	m := New(context.Background(), "dst", testDest, config, factory, PlainStyles())
	t.Cleanup(func() { m.Close() })
	return m
}

func TestModel_RunTraceStreamsEvents(t *testing.T) {
	conn := probetest.NewConn()
	conn.Replies[1] = probetest.TimeExceeded("10.0.0.1")
	conn.Replies[2] = probetest.EchoReply("192.0.2.10", 0x4242)
	m := newTestModel(t, conn, 2)

	done := make(chan tea.Msg, 1)
	go func() { done <- m.runTrace()() }()

	var model tea.Model = *m
	var hops int
	for hops < 2 {
		msg := m.waitForEvent()()
		model, _ = model.Update(msg)
		if _, ok := msg.(HopMsg); ok {
			hops++
		}
	}

	select {
	case msg := <-done:
		model, _ = model.Update(msg)
	case <-time.After(5 * time.Second):
		t.Fatal("trace did not finish")
	}

	final := model.(Model)
	if final.state != StateComplete {
		t.Fatalf("state = %v, want StateComplete", final.state)
	}
	if len(final.hops) != 2 {
		t.Fatalf("len(hops) = %d, want 2", len(final.hops))
	}
	if final.Result() == nil || !final.Result().Completed {
		t.Error("Result should report the destination as reached")
	}

	view := final.View()
	for _, want := range []string{"Time exceeded from 10.0.0.1", "2-hop router IP: 192.0.2.10", "Reached hop limit.", "Complete"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() should contain %q", want)
		}
	}
}

func TestModel_TracerError(t *testing.T) {
	config := trace.DefaultConfig()
	factory := func(*trace.Config) (*trace.Tracer, error) {
		return nil, probe.ErrPermissionDenied
	}
	m := New(context.Background(), "dst", testDest, config, factory, PlainStyles())
	defer m.Close()

	msg := m.runTrace()()
	errMsg, ok := msg.(ErrorMsg)
	if !ok {
		t.Fatalf("runTrace() = %T, want ErrorMsg", msg)
	}
	if !errors.Is(errMsg.Err, probe.ErrPermissionDenied) {
		t.Errorf("Err = %v, want %v", errMsg.Err, probe.ErrPermissionDenied)
	}

	model, cmd := m.Update(errMsg)
	if cmd == nil {
		t.Error("an error should quit the program")
	}
	if model.(Model).state != StateError {
		t.Error("state should be StateError")
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, probetest.NewConn(), 1)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if m.ctx.Err() == nil {
		t.Error("quitting should cancel the trace")
	}
}

func TestModelRenderHopRow(t *testing.T) {
	m := newTestModel(t, probetest.NewConn(), 30)

	tests := []struct {
		name string
		hop  trace.Hop
		want []string
	}{
		{
			name: "router",
			hop: trace.Hop{
				TTL:          1,
				Addr:         netip.MustParseAddr("10.0.0.1"),
				Observations: []probe.Observation{{Kind: probe.KindRouterHop, Addr: netip.MustParseAddr("10.0.0.1")}},
				RTT:          10500 * time.Microsecond,
			},
			want: []string{"1", "10.0.0.1", "10.50 ms", "Time exceeded from 10.0.0.1"},
		},
		{
			name: "timeout",
			hop:  trace.Hop{TTL: 2, TimedOut: true, Observations: []probe.Observation{{Kind: probe.KindNoResponse}}},
			want: []string{"2", "*", "***"},
		},
		{
			name: "send failure",
			hop:  trace.Hop{TTL: 3, Err: errors.New("send failed: no route to host")},
			want: []string{"3", "sendto: no route to host"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := m.renderHopRow(&tt.hop)
			for _, want := range tt.want {
				if !strings.Contains(row, want) {
					t.Errorf("renderHopRow() = %q, should contain %q", row, want)
				}
			}
		})
	}
}

func TestColorizeRTT(t *testing.T) {
	m := &Model{styles: DefaultStyles()}

	tests := []struct {
		name string
		rtt  time.Duration
	}{
		{"low latency", 25 * time.Millisecond},
		{"medium latency", 75 * time.Millisecond},
		{"high latency", 200 * time.Millisecond},
		{"zero", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(m.colorizeRTT("10.00 ms", tt.rtt), "10.00 ms") {
				t.Error("colorizeRTT should keep the text")
			}
		})
	}
}

func TestRenderHops_Empty(t *testing.T) {
	m := newTestModel(t, probetest.NewConn(), 3)

	if !strings.Contains(m.renderHops(), "Waiting for responses") {
		t.Error("an empty view should say it is waiting")
	}
}
