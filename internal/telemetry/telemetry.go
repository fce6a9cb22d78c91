// Package telemetry sets up OpenTelemetry span export for trace sessions.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/KilimcininKorOglu/hoptrace/internal/logger"
)

// Exporter selects where spans are sent.
type Exporter string

const (
	// None disables span export
	None Exporter = "none"
	// Stdout writes spans as JSON
	Stdout Exporter = "stdout"
	// OTLP sends spans to a collector over HTTP
	OTLP Exporter = "otlp"
)

var (
	// ErrUnknownExporter indicates an exporter name that is not supported
	ErrUnknownExporter = errors.New("unknown telemetry exporter")

	// ErrMissingURL indicates the otlp exporter was selected without a collector URL
	ErrMissingURL = errors.New("url is required for otlp exporter")
)

// Validate checks that e names a supported exporter.
func (e Exporter) Validate() error {
	switch e {
	case "", None, Stdout, OTLP:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExporter, string(e))
	}
}

// Config holds the configuration for span export.
type Config struct {
	// Exporter is the span exporter to use
	Exporter Exporter
	// URL is the collector endpoint for the otlp exporter
	URL string
	// Writer receives stdout exporter output (default: os.Stderr)
	Writer io.Writer
	// Version is reported as service version
	Version string
}

// Validate checks the exporter and its required settings.
func (c *Config) Validate() error {
	if err := c.Exporter.Validate(); err != nil {
		return err
	}
	if c.Exporter == OTLP && c.URL == "" {
		return ErrMissingURL
	}
	return nil
}

// Provider owns the tracer provider of one run.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Init creates the exporter and installs a global tracer provider. With
// exporter none a no-op provider is installed.
func Init(ctx context.Context, config Config) (*Provider, error) {
	log := logger.FromContext(ctx)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Exporter == "" || config.Exporter == None {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{}, nil
	}

	exporter, err := newExporter(ctx, config)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create exporter", "error", err)
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String("hoptrace"),
			semconv.ServiceVersionKey.String(config.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	const batchTimeout = 5 * time.Second
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	log.DebugContext(ctx, "Tracing initialized", "exporter", config.Exporter)
	return &Provider{tp: tp}, nil
}

func newExporter(ctx context.Context, config Config) (sdktrace.SpanExporter, error) {
	switch config.Exporter {
	case Stdout:
		w := config.Writer
		if w == nil {
			w = os.Stderr
		}
		return stdouttrace.New(stdouttrace.WithWriter(w))
	case OTLP:
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(config.URL))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, string(config.Exporter))
	}
}

// Tracer returns a named tracer from the installed provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p == nil || p.tp == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.tp.Tracer(name)
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	return nil
}
