// Package output renders trace results: the per-hop outcome lines printed
// while tracing, and whole-result table, JSON and CSV formats.
package output

import (
	"github.com/KilimcininKorOglu/hoptrace/internal/trace"
)

// Format represents the output format type.
type Format int

const (
	// FormatText is the per-hop outcome stream
	FormatText Format = iota
	// FormatVerbose is the detailed table output
	FormatVerbose
	// FormatJSON is JSON output
	FormatJSON
	// FormatCSV is CSV output
	FormatCSV
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatVerbose:
		return "verbose"
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// ParseFormat maps a configured output mode to a Format.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "", "text":
		return FormatText, true
	case "verbose", "table":
		return FormatVerbose, true
	case "json":
		return FormatJSON, true
	case "csv":
		return FormatCSV, true
	default:
		return FormatText, false
	}
}

// Formatter defines the interface for output formatters.
type Formatter interface {
	// Format converts a TraceResult to formatted output bytes.
	Format(result *trace.TraceResult) ([]byte, error)

	// ContentType returns the MIME type for the output.
	ContentType() string

	// FileExtension returns the typical file extension for the output.
	FileExtension() string
}

// Config holds configuration for formatters.
type Config struct {
	// Colors enables ANSI color output
	Colors bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Colors: true,
	}
}

// NewFormatter creates a formatter based on the specified format.
func NewFormatter(format Format, config Config) Formatter {
	switch format {
	case FormatText:
		return NewTextFormatter(config)
	case FormatVerbose:
		return NewTableFormatter(config)
	case FormatJSON:
		return NewJSONFormatter(config)
	case FormatCSV:
		return NewCSVFormatter(config)
	default:
		return NewTextFormatter(config)
	}
}
