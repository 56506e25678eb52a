// Package telemetry sets up OpenTelemetry tracing for a process.
//
// Init is called once by a main package; the returned Provider is passed to
// whatever needs a tracer and shut down before exit. Nothing here touches the
// global otel provider.
package telemetry

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Config struct {
	Enabled bool `env:"OTEL_ENABLED" envDefault:"false"`
	// EndpointURL is the full OTLP/HTTP traces URL.
	EndpointURL string `env:"OTEL_ENDPOINT" envDefault:"http://localhost:4318/v1/traces"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"coldstart-bench"`
	Environment string `env:"OTEL_DEPLOYMENT_ENVIRONMENT" envDefault:"dev"`
}

// Provider owns the tracer provider built by Init.
type Provider struct {
	tp       *sdktrace.TracerProvider
	fallback trace.TracerProvider
}

// Init builds a Provider from cfg. A disabled config yields a no-op provider.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{fallback: noop.NewTracerProvider()}, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.EndpointURL))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create otlp trace exporter")
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return &Provider{tp: tp}, nil
}

// Tracer returns a named tracer.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p.tp == nil {
		return p.fallback.Tracer(name)
	}
	return p.tp.Tracer(name)
}

// ForceFlush exports buffered spans. Lambda handlers call it before returning
// since the sandbox may be frozen right after.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.ForceFlush(ctx)
}

// Shutdown flushes and stops the provider. It is safe to call on a no-op provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
