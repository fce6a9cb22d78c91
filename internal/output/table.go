package output

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/KilimcininKorOglu/hoptrace/internal/trace"
)

// TableFormatter formats trace results as a detailed table.
type TableFormatter struct {
	config Config
	colors *ColorScheme
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(config Config) *TableFormatter {
	var colors *ColorScheme
	if config.Colors {
		colors = DefaultColorScheme()
	}

	return &TableFormatter{
		config: config,
		colors: colors,
	}
}

// Format formats the trace result as a detailed table.
func (f *TableFormatter) Format(result *trace.TraceResult) ([]byte, error) {
	var buf bytes.Buffer

	f.writeHeader(&buf, result)

	table := tablewriter.NewWriter(&buf)
	f.configureTable(table)
	table.SetHeader([]string{"TTL", "Address", "Outcome", "RTT"})

	for i := range result.Hops {
		table.Append(f.formatHopRow(&result.Hops[i]))
	}

	table.Render()

	f.writeSummary(&buf, result)

	return buf.Bytes(), nil
}

// writeHeader writes the trace header information.
func (f *TableFormatter) writeHeader(buf *bytes.Buffer, result *trace.TraceResult) {
	header := fmt.Sprintf("Target: %s (%s)\n", result.Target, result.Destination)
	header += fmt.Sprintf("Hop limit: %d | Identifier: %#04x | Time: %s\n\n",
		result.HopLimit, result.Identifier,
		result.Timestamp.Format("2006-01-02 15:04:05"))

	if f.colors != nil {
		header = f.colors.Header.Sprint(header)
	}
	buf.WriteString(header)
}

// configureTable sets up the table appearance.
func (f *TableFormatter) configureTable(table *tablewriter.Table) {
	table.SetBorder(true)
	table.SetRowLine(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("│")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetTablePadding(" ")
}

// formatHopRow formats a single hop as a table row.
func (f *TableFormatter) formatHopRow(hop *trace.Hop) []string {
	row := []string{fmt.Sprintf("%d", hop.TTL)}

	if hop.Addr.IsValid() {
		row = append(row, hop.Addr.String())
	} else {
		row = append(row, "*")
	}

	switch {
	case hop.Err != nil:
		row = append(row, "sendto: "+sendCause(hop.Err))
	case hop.TimedOut:
		row = append(row, "timeout")
	default:
		row = append(row, observationNames(hop, ", "))
	}

	return append(row, f.formatRTT(hop.RTT))
}

// formatRTT formats an RTT value with optional coloring.
func (f *TableFormatter) formatRTT(rtt time.Duration) string {
	if rtt <= 0 {
		return "-"
	}

	ms := durationMs(rtt)
	str := fmt.Sprintf("%.2f ms", ms)

	if f.colors != nil {
		switch {
		case ms < 50:
			str = f.colors.RTTLow.Sprint(str)
		case ms < 150:
			str = f.colors.RTTMed.Sprint(str)
		default:
			str = f.colors.RTTHigh.Sprint(str)
		}
	}

	return str
}

// writeSummary writes the trace summary.
func (f *TableFormatter) writeSummary(buf *bytes.Buffer, result *trace.TraceResult) {
	s := result.Summary
	buf.WriteString("\nSummary:\n")

	fmt.Fprintf(buf, "  Probes:        %d\n", s.Probes)
	fmt.Fprintf(buf, "  Responding:    %d\n", s.Responded)
	fmt.Fprintf(buf, "  Timeouts:      %d\n", s.Timeouts)
	fmt.Fprintf(buf, "  Send Errors:   %d\n", s.SendErrors)
	fmt.Fprintf(buf, "  Total Time:    %.2f ms\n", durationMs(s.Elapsed))

	buf.WriteString("  Status:        ")
	status := "Destination not reached"
	if result.Completed {
		status = fmt.Sprintf("Destination reached at TTL %d", s.DestinationTTL)
	}
	if f.colors != nil {
		if result.Completed {
			status = f.colors.RTTLow.Sprint(status)
		} else {
			status = f.colors.RTTHigh.Sprint(status)
		}
	}
	buf.WriteString(status)
	buf.WriteString("\n")
}

// ContentType returns the MIME type for table output.
func (f *TableFormatter) ContentType() string {
	return "text/plain"
}

// FileExtension returns the file extension for table output.
func (f *TableFormatter) FileExtension() string {
	return "txt"
}

// durationMs converts a duration to fractional milliseconds.
func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
