package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/KilimcininKorOglu/hoptrace/internal/probe"
	"github.com/KilimcininKorOglu/hoptrace/internal/trace"
)

// TimeoutMarker is printed for a probe that got no reply in time.
const TimeoutMarker = "***"

// TextFormatter prints one announcement line per probe followed by its
// outcome lines.
type TextFormatter struct {
	config Config
	colors *ColorScheme
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(config Config) *TextFormatter {
	var colors *ColorScheme
	if config.Colors {
		colors = DefaultColorScheme()
	}

	return &TextFormatter{
		config: config,
		colors: colors,
	}
}

// Format replays the whole trace as it would have been streamed. Send
// failures are included in place of their outcome.
func (f *TextFormatter) Format(result *trace.TraceResult) ([]byte, error) {
	var buf bytes.Buffer

	for i := range result.Hops {
		hop := &result.Hops[i]
		buf.WriteString(f.FormatSending(hop.TTL))
		if hop.Err != nil {
			buf.WriteString(f.FormatError(hop))
			continue
		}
		buf.WriteString(f.FormatHop(hop))
	}

	return buf.Bytes(), nil
}

// FormatSending returns the line announcing the probe for ttl.
func (f *TextFormatter) FormatSending(ttl int) string {
	line := fmt.Sprintf("Sending ICMP Echo Request with TTL %d...", ttl)
	if f.colors != nil {
		line = f.colors.Sending.Sprint(line)
	}
	return line + "\n"
}

// FormatHop returns the outcome lines of a hop. A hop whose send failed
// has no outcome lines.
func (f *TextFormatter) FormatHop(hop *trace.Hop) string {
	if hop.Err != nil {
		return ""
	}

	if hop.TimedOut {
		return f.paint(f.timeoutColor(), TimeoutMarker) + "\n"
	}

	var b strings.Builder
	for _, o := range hop.Observations {
		b.WriteString(f.formatObservation(hop.TTL, o))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatError returns the diagnostic for a hop whose send failed.
func (f *TextFormatter) FormatError(hop *trace.Hop) string {
	if hop.Err == nil {
		return ""
	}
	return f.paint(f.timeoutColor(), "sendto: "+sendCause(hop.Err)) + "\n"
}

func (f *TextFormatter) formatObservation(ttl int, o probe.Observation) string {
	switch o.Kind {
	case probe.KindRouterHop:
		return "Time exceeded from " + f.paintAddr(o)
	case probe.KindDestinationReached:
		line := fmt.Sprintf("%d-hop router IP: %s", ttl, f.paintAddr(o))
		if f.colors != nil {
			return f.colors.Reached.Sprint(line)
		}
		return line
	case probe.KindHopLimitReached:
		return "Reached hop limit."
	default:
		return f.paint(f.timeoutColor(), "No response within hop limit.")
	}
}

func (f *TextFormatter) paintAddr(o probe.Observation) string {
	if f.colors == nil {
		return o.Addr.String()
	}
	return f.colors.IP.Sprint(o.Addr.String())
}

func (f *TextFormatter) timeoutColor() *color.Color {
	if f.colors == nil {
		return nil
	}
	return f.colors.Timeout
}

func (f *TextFormatter) paint(c *color.Color, s string) string {
	if c == nil {
		return s
	}
	return c.Sprint(s)
}

// sendCause strips the sentinel prefix so only the socket error remains.
func sendCause(err error) string {
	return strings.TrimPrefix(err.Error(), probe.ErrSendFailed.Error()+": ")
}

// ContentType returns the MIME type for text output.
func (f *TextFormatter) ContentType() string {
	return "text/plain"
}

// FileExtension returns the file extension for text output.
func (f *TextFormatter) FileExtension() string {
	return "txt"
}

// ColorScheme defines colors for different output elements.
type ColorScheme struct {
	Sending *color.Color
	IP      *color.Color
	Reached *color.Color
	RTTLow  *color.Color // < 50ms
	RTTMed  *color.Color // 50-150ms
	RTTHigh *color.Color // > 150ms
	Timeout *color.Color
	Header  *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Sending: color.New(color.FgCyan),
		IP:      color.New(color.FgWhite, color.Bold),
		Reached: color.New(color.FgGreen, color.Bold),
		RTTLow:  color.New(color.FgGreen),
		RTTMed:  color.New(color.FgYellow),
		RTTHigh: color.New(color.FgRed),
		Timeout: color.New(color.FgRed, color.Bold),
		Header:  color.New(color.FgWhite, color.Bold),
	}
}

// observationNames joins the observation kinds of a hop.
func observationNames(hop *trace.Hop, sep string) string {
	names := make([]string, 0, len(hop.Observations))
	for _, o := range hop.Observations {
		names = append(names, o.Kind.String())
	}
	return strings.Join(names, sep)
}
