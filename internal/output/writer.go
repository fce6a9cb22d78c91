package output

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/KilimcininKorOglu/hoptrace/internal/trace"
)

// Writer handles output formatting and writing.
type Writer struct {
	formatter Formatter
	output    io.Writer
	isTTY     bool
}

// NewWriter creates a writer for the given format on out. Colors are
// turned off unless out is a terminal.
func NewWriter(format Format, config Config, out io.Writer) *Writer {
	isTTY := IsTerminal(out)
	if !isTTY {
		config.Colors = false
	}

	return &Writer{
		formatter: NewFormatter(format, config),
		output:    out,
		isTTY:     isTTY,
	}
}

// NewWriterWithFormatter creates a writer with a specific formatter.
func NewWriterWithFormatter(formatter Formatter, out io.Writer) *Writer {
	return &Writer{
		formatter: formatter,
		output:    out,
		isTTY:     IsTerminal(out),
	}
}

// Write formats and writes the trace result.
func (w *Writer) Write(result *trace.TraceResult) error {
	data, err := w.formatter.Format(result)
	if err != nil {
		return err
	}

	_, err = w.output.Write(data)
	return err
}

// IsTTY returns whether the output is a terminal.
func (w *Writer) IsTTY() bool {
	return w.isTTY
}

// Formatter returns the underlying formatter.
func (w *Writer) Formatter() Formatter {
	return w.formatter
}

// Streamer prints the text outcome lines while the trace runs. Outcome
// lines go to out, send failures to errOut.
type Streamer struct {
	text   *TextFormatter
	out    io.Writer
	errOut io.Writer
}

// NewStreamer creates a Streamer. Colors are used only when out is a terminal.
func NewStreamer(config Config, out, errOut io.Writer) *Streamer {
	if !IsTerminal(out) {
		config.Colors = false
	}
	return &Streamer{
		text:   NewTextFormatter(config),
		out:    out,
		errOut: errOut,
	}
}

// Sending prints the announcement for the probe about to leave.
func (s *Streamer) Sending(ttl int) {
	io.WriteString(s.out, s.text.FormatSending(ttl))
}

// Hop prints the outcome of a finished probe.
func (s *Streamer) Hop(hop *trace.Hop) {
	if hop.Err != nil {
		io.WriteString(s.errOut, s.text.FormatError(hop))
		return
	}
	io.WriteString(s.out, s.text.FormatHop(hop))
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
