package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/KilimcininKorOglu/hoptrace/internal/trace"
)

// CSVFormatter formats trace results as CSV.
type CSVFormatter struct {
	config  Config
	columns []string
}

// Default CSV columns
var defaultCSVColumns = []string{
	"ttl", "address", "observations", "rtt_ms", "timed_out", "error",
}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter(config Config) *CSVFormatter {
	return &CSVFormatter{
		config:  config,
		columns: defaultCSVColumns,
	}
}

// SetColumns allows customizing which columns to include.
func (f *CSVFormatter) SetColumns(columns []string) {
	f.columns = columns
}

// Format formats the trace result as CSV.
func (f *CSVFormatter) Format(result *trace.TraceResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(f.columns); err != nil {
		return nil, err
	}

	for i := range result.Hops {
		if err := writer.Write(f.formatRow(&result.Hops[i])); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// formatRow formats a single hop as a CSV row.
func (f *CSVFormatter) formatRow(hop *trace.Hop) []string {
	row := make([]string, len(f.columns))

	for i, col := range f.columns {
		row[i] = f.getValue(hop, col)
	}

	return row
}

// getValue returns the value for a specific column.
func (f *CSVFormatter) getValue(hop *trace.Hop, column string) string {
	switch column {
	case "ttl":
		return strconv.Itoa(hop.TTL)

	case "address":
		if hop.Addr.IsValid() {
			return hop.Addr.String()
		}
		return "*"

	case "observations":
		return observationNames(hop, ";")

	case "rtt_ms":
		if hop.RTT <= 0 {
			return ""
		}
		return fmt.Sprintf("%.3f", durationMs(hop.RTT))

	case "timed_out":
		return strconv.FormatBool(hop.TimedOut)

	case "error":
		if hop.Err != nil {
			return hop.Err.Error()
		}
		return ""

	default:
		return ""
	}
}

// ContentType returns the MIME type for CSV output.
func (f *CSVFormatter) ContentType() string {
	return "text/csv"
}

// FileExtension returns the file extension for CSV output.
func (f *CSVFormatter) FileExtension() string {
	return "csv"
}
