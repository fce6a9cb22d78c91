// Package metrics counts probe outcomes in a private Prometheus registry
// and dumps it in the text exposition format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KilimcininKorOglu/hoptrace/internal/trace"
)

// Outcome label values beyond the probe observation kinds.
const (
	OutcomeTimeout   = "timeout"
	OutcomeSendError = "send_error"
)

// Metrics holds the collectors of one trace session.
type Metrics struct {
	registry *prometheus.Registry
	probes   *prometheus.CounterVec
	rtt      prometheus.Histogram
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoptrace_probes_total",
				Help: "Number of probe outcomes by kind.",
			},
			[]string{"outcome"},
		),
		rtt: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hoptrace_probe_rtt_seconds",
				Help:    "Round-trip time of answered probes in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
		),
	}

	m.registry.MustRegister(m.GetCollectors()...)
	return m
}

// GetCollectors returns all metric collectors
func (m *Metrics) GetCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.probes,
		m.rtt,
	}
}

// GetRegistry returns the registry holding the collectors.
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// ObserveHop records the outcome of one probe. A timed out probe counts
// only as timeout.
func (m *Metrics) ObserveHop(hop *trace.Hop) {
	switch {
	case hop.Err != nil:
		m.probes.WithLabelValues(OutcomeSendError).Inc()
		return
	case hop.TimedOut:
		m.probes.WithLabelValues(OutcomeTimeout).Inc()
		return
	}

	for _, o := range hop.Observations {
		m.probes.WithLabelValues(o.Kind.String()).Inc()
	}
	if hop.RTT > 0 {
		m.rtt.Observe(hop.RTT.Seconds())
	}
}

// WriteFile writes the registry to path in the Prometheus text format.
// The file is replaced atomically.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
