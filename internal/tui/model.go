// Package tui provides a live terminal view of a running trace.
package tui

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/KilimcininKorOglu/hoptrace/internal/output"
	"github.com/KilimcininKorOglu/hoptrace/internal/trace"
)

// State represents the current state of the TUI.
type State int

const (
	StateRunning State = iota
	StateComplete
	StateError
)

// TracerFactory creates the tracer once the model has installed its callbacks.
type TracerFactory func(config *trace.Config) (*trace.Tracer, error)

// Model is the Bubble Tea model for the trace view.
type Model struct {
	target    string
	dest      netip.Addr
	config    *trace.Config
	newTracer TracerFactory
	width     int
	height    int

	state     State
	sending   int
	hops      []trace.Hop
	result    *trace.TraceResult
	err       error
	elapsed   time.Duration
	startTime time.Time

	spinner spinner.Model
	styles  Styles
	text    *output.TextFormatter

	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg
}

// SendingMsg is sent right before a probe leaves.
type SendingMsg struct {
	TTL int
}

// HopMsg is sent when a probe has finished.
type HopMsg struct {
	Hop trace.Hop
}

// CompleteMsg is sent when the trace is complete.
type CompleteMsg struct {
	Result *trace.TraceResult
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Err error
}

// TickMsg is sent to update elapsed time.
type TickMsg time.Time

// New creates a new TUI model. The trace starts when the program runs.
func New(ctx context.Context, target string, dest netip.Addr, config *trace.Config, newTracer TracerFactory, styles Styles) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Title.UnsetMarginBottom()

	ctx, cancel := context.WithCancel(ctx)

	return &Model{
		target:    target,
		dest:      dest,
		config:    config,
		newTracer: newTracer,
		state:     StateRunning,
		hops:      make([]trace.Hop, 0, config.HopLimit),
		spinner:   s,
		styles:    styles,
		text:      output.NewTextFormatter(output.Config{Colors: false}),
		width:     80,
		height:    24,
		startTime: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan tea.Msg, 16),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.runTrace(),
		m.tickCmd(),
		m.waitForEvent(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		m.elapsed = time.Since(m.startTime)
		if m.state == StateRunning {
			return m, m.tickCmd()
		}

	case SendingMsg:
		m.sending = msg.TTL
		return m, m.waitForEvent()

	case HopMsg:
		m.hops = append(m.hops, msg.Hop)
		return m, m.waitForEvent()

	case CompleteMsg:
		m.state = StateComplete
		m.sending = 0
		m.result = msg.Result

	case ErrorMsg:
		m.state = StateError
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderHops())
	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader renders the header section.
func (m Model) renderHeader() string {
	title := m.styles.Title.Render("hoptrace")

	var status string
	switch m.state {
	case StateRunning:
		status = m.spinner.View() + " Tracing..."
		if m.sending > 0 {
			status = m.spinner.View() + fmt.Sprintf(" Sending ICMP Echo Request with TTL %d...", m.sending)
		}
	case StateComplete:
		status = m.styles.Success.Render("✓ Complete")
	case StateError:
		status = m.styles.Error.Render("✗ Error")
	}

	info := fmt.Sprintf("Target: %s (%s) | Hop limit: %d", m.target, m.dest, m.config.HopLimit)

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.styles.Subtle.Render(info),
		status,
	)
}

// renderHops renders the hop table.
func (m Model) renderHops() string {
	if len(m.hops) == 0 {
		return m.styles.Subtle.Render("Waiting for responses...")
	}

	var rows []string

	header := fmt.Sprintf("%-4s %-15s %-10s %s", "TTL", "Address", "RTT", "Outcome")
	rows = append(rows, m.styles.Header.Render(header))
	rows = append(rows, m.styles.Subtle.Render(strings.Repeat("─", min(m.width, 80))))

	// keep the latest hops visible
	hops := m.hops
	if visible := m.height - 10; visible > 0 && len(hops) > visible {
		hops = hops[len(hops)-visible:]
	}
	for i := range hops {
		rows = append(rows, m.renderHopRow(&hops[i]))
	}

	return strings.Join(rows, "\n")
}

// renderHopRow renders a single hop row.
func (m Model) renderHopRow(hop *trace.Hop) string {
	ttl := m.styles.TTL.Render(fmt.Sprintf("%-4d", hop.TTL))

	addr := "*"
	if hop.Addr.IsValid() {
		addr = hop.Addr.String()
	}

	rtt := "-"
	if hop.RTT > 0 {
		rtt = fmt.Sprintf("%.2f ms", float64(hop.RTT)/float64(time.Millisecond))
	}

	return fmt.Sprintf("%s %s %s %s",
		ttl,
		m.styles.IP.Render(fmt.Sprintf("%-15s", addr)),
		m.colorizeRTT(fmt.Sprintf("%-10s", rtt), hop.RTT),
		m.renderOutcome(hop),
	)
}

// renderOutcome renders the outcome lines of a hop on one row.
func (m Model) renderOutcome(hop *trace.Hop) string {
	if hop.Err != nil {
		return m.styles.Error.Render(strings.TrimSpace(m.text.FormatError(hop)))
	}

	text := strings.ReplaceAll(strings.TrimSpace(m.text.FormatHop(hop)), "\n", "; ")
	switch {
	case hop.TimedOut:
		return m.styles.Timeout.Render(text)
	case hop.Reached():
		return m.styles.Reached.Render(text)
	case hop.Responded():
		return m.styles.Router.Render(text)
	default:
		return m.styles.Subtle.Render(text)
	}
}

// colorizeRTT applies color based on latency.
func (m Model) colorizeRTT(s string, rtt time.Duration) string {
	if rtt <= 0 {
		return m.styles.Subtle.Render(s)
	}

	switch {
	case rtt < 50*time.Millisecond:
		return m.styles.RTTLow.Render(s)
	case rtt < 150*time.Millisecond:
		return m.styles.RTTMed.Render(s)
	default:
		return m.styles.RTTHigh.Render(s)
	}
}

// renderFooter renders the footer section.
func (m Model) renderFooter() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Probes: %d/%d", len(m.hops), m.config.HopLimit))
	if m.result != nil && m.result.Summary.DestinationTTL > 0 {
		parts = append(parts, fmt.Sprintf("Destination at TTL %d", m.result.Summary.DestinationTTL))
	}
	parts = append(parts, fmt.Sprintf("Elapsed: %s", m.elapsed.Truncate(100*time.Millisecond)))
	parts = append(parts, "Press 'q' to quit")

	return m.styles.Subtle.Render(strings.Join(parts, " | "))
}

// runTrace runs the trace in the background, streaming probe events.
func (m Model) runTrace() tea.Cmd {
	return func() tea.Msg {
		onSend, onHop := m.config.OnSend, m.config.OnHop
		m.config.OnSend = func(ttl int) {
			if onSend != nil {
				onSend(ttl)
			}
			m.emit(SendingMsg{TTL: ttl})
		}
		m.config.OnHop = func(hop *trace.Hop) {
			if onHop != nil {
				onHop(hop)
			}
			m.emit(HopMsg{Hop: *hop})
		}

		tracer, err := m.newTracer(m.config)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		defer tracer.Close()

		result, err := tracer.Trace(m.ctx, m.target, m.dest)
		if err != nil && m.ctx.Err() == nil {
			return ErrorMsg{Err: err}
		}
		return CompleteMsg{Result: result}
	}
}

// emit hands an event to the UI unless the view was closed.
func (m Model) emit(msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-m.ctx.Done():
	}
}

// waitForEvent waits for the next probe event.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

// tickCmd returns a command that sends tick messages.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Result returns the trace result once the trace finished.
func (m Model) Result() *trace.TraceResult {
	return m.result
}

// Close stops a trace that is still running.
func (m *Model) Close() error {
	m.cancel()
	return nil
}
