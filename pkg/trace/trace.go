// Package trace configures OpenTelemetry tracing for drenv.
//
// Spans recorded by [github.com/ramendr/drenv/pkg/execs] and
// [github.com/ramendr/drenv/pkg/kubectl] are exported over OTLP/gRPC when
// OTEL_EXPORTER_OTLP_ENDPOINT is set. Otherwise tracing stays disabled and
// the global no-op provider is left in place.
package trace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	EnvEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvInsecure    = "OTEL_EXPORTER_OTLP_INSECURE"
	EnvServiceName = "OTEL_SERVICE_NAME"

	DefaultServiceName = "drenv"
)

// ShutdownFunc flushes pending spans and stops the exporter.
type ShutdownFunc func(ctx context.Context) error

// Config holds the tracing configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Endpoint is the OTLP collector endpoint. Tracing is disabled if empty.
	Endpoint string
	Insecure bool
}

// ConfigFromEnv returns a [Config] populated from the standard OTEL_*
// environment variables.
func ConfigFromEnv(version string) Config {
	c := Config{
		ServiceName:    DefaultServiceName,
		ServiceVersion: version,
		Endpoint:       os.Getenv(EnvEndpoint),
	}

	if name := os.Getenv(EnvServiceName); name != "" {
		c.ServiceName = name
	}

	if v := os.Getenv(EnvInsecure); v != "" {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("ignoring invalid environment variable",
				slog.String("env", EnvInsecure),
				slog.String("value", v),
			)
		}

		c.Insecure = insecure
	}

	return c
}

// Enabled returns true if spans should be exported.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

type setupOptions struct {
	exporter sdktrace.SpanExporter
}

// SetupOpt configures [Setup].
type SetupOpt func(*setupOptions)

// WithExporter replaces the OTLP exporter, and enables tracing regardless of
// [Config.Endpoint].
func WithExporter(e sdktrace.SpanExporter) SetupOpt {
	return func(o *setupOptions) {
		o.exporter = e
	}
}

// Setup installs a global tracer provider for c. The returned [ShutdownFunc]
// must be called before the program exits; it is a no-op when tracing is
// disabled.
func Setup(ctx context.Context, c Config, opts ...SetupOpt) (ShutdownFunc, error) {
	o := &setupOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.exporter == nil && !c.Enabled() {
		return func(context.Context) error { return nil }, nil
	}

	exporter := o.exporter
	if exporter == nil {
		grpcOpts := []otlptracegrpc.Option{}
		if c.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}

		var err error

		exporter, err = otlptracegrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", c.ServiceName),
			attribute.String("service.version", c.ServiceVersion),
		)),
	)

	otel.SetTracerProvider(tp)

	slog.Debug("tracing enabled",
		slog.String("service", c.ServiceName),
		slog.String("endpoint", c.Endpoint),
	)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutdown tracer provider: %w", err)
		}

		return nil
	}, nil
}
