package output

import (
	"encoding/json"
	"math"
	"time"

	"github.com/KilimcininKorOglu/hoptrace/internal/trace"
)

// JSONFormatter formats trace results as JSON.
type JSONFormatter struct {
	config Config
	pretty bool
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(config Config) *JSONFormatter {
	return &JSONFormatter{
		config: config,
		pretty: true,
	}
}

// NewJSONFormatterCompact creates a JSON formatter with compact output.
func NewJSONFormatterCompact(config Config) *JSONFormatter {
	return &JSONFormatter{
		config: config,
		pretty: false,
	}
}

// SetPretty enables or disables pretty-printing.
func (f *JSONFormatter) SetPretty(pretty bool) {
	f.pretty = pretty
}

// Format formats the trace result as JSON.
func (f *JSONFormatter) Format(result *trace.TraceResult) ([]byte, error) {
	output := f.toJSONOutput(result)

	var (
		data []byte
		err  error
	)
	if f.pretty {
		data, err = json.MarshalIndent(output, "", "  ")
	} else {
		data, err = json.Marshal(output)
	}
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// JSONOutput is the JSON-serializable representation of a trace result.
type JSONOutput struct {
	Target      string      `json:"target"`
	Destination string      `json:"destination"`
	HopLimit    int         `json:"hop_limit"`
	Identifier  uint16      `json:"identifier"`
	Timestamp   string      `json:"timestamp"`
	Completed   bool        `json:"completed"`
	Hops        []JSONHop   `json:"hops"`
	Summary     JSONSummary `json:"summary"`
}

// JSONHop represents a single hop in JSON format.
type JSONHop struct {
	TTL          int      `json:"ttl"`
	Address      string   `json:"address,omitempty"`
	Observations []string `json:"observations"`
	RTT          float64  `json:"rtt_ms,omitempty"`
	TimedOut     bool     `json:"timed_out"`
	Error        string   `json:"error,omitempty"`
}

// JSONSummary represents trace summary in JSON format.
type JSONSummary struct {
	Probes         int     `json:"probes"`
	Responded      int     `json:"responded"`
	Timeouts       int     `json:"timeouts"`
	SendErrors     int     `json:"send_errors"`
	DestinationTTL int     `json:"destination_ttl,omitempty"`
	ElapsedMs      float64 `json:"elapsed_ms"`
}

// toJSONOutput converts a TraceResult to JSONOutput.
func (f *JSONFormatter) toJSONOutput(result *trace.TraceResult) *JSONOutput {
	output := &JSONOutput{
		Target:      result.Target,
		Destination: result.Destination.String(),
		HopLimit:    result.HopLimit,
		Identifier:  result.Identifier,
		Timestamp:   result.Timestamp.Format(time.RFC3339),
		Completed:   result.Completed,
		Hops:        make([]JSONHop, len(result.Hops)),
		Summary: JSONSummary{
			Probes:         result.Summary.Probes,
			Responded:      result.Summary.Responded,
			Timeouts:       result.Summary.Timeouts,
			SendErrors:     result.Summary.SendErrors,
			DestinationTTL: result.Summary.DestinationTTL,
			ElapsedMs:      roundFloat(durationMs(result.Summary.Elapsed), 3),
		},
	}

	for i := range result.Hops {
		output.Hops[i] = f.toJSONHop(&result.Hops[i])
	}

	return output
}

// toJSONHop converts a Hop to JSONHop.
func (f *JSONFormatter) toJSONHop(hop *trace.Hop) JSONHop {
	jh := JSONHop{
		TTL:          hop.TTL,
		Observations: make([]string, 0, len(hop.Observations)),
		RTT:          roundFloat(durationMs(hop.RTT), 3),
		TimedOut:     hop.TimedOut,
	}

	for _, o := range hop.Observations {
		jh.Observations = append(jh.Observations, o.Kind.String())
	}

	if hop.Addr.IsValid() {
		jh.Address = hop.Addr.String()
	}

	if hop.Err != nil {
		jh.Error = hop.Err.Error()
	}

	return jh
}

// ContentType returns the MIME type for JSON output.
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// FileExtension returns the file extension for JSON output.
func (f *JSONFormatter) FileExtension() string {
	return "json"
}

// roundFloat rounds val to the given number of decimal places.
func roundFloat(val float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(val*p) / p
}
