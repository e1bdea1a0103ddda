package metrics

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// ServiceNamespace groups the spans of every advertisement-service deployment.
const ServiceNamespace = "advertisement"

type TracerOptions struct {
	ServiceName string
	Environment string
	Version     string
	// Endpoint is the host:port of an OTLP/HTTP collector.
	Endpoint    string
	DialTimeout time.Duration
}

// InitTracer installs a global tracer provider exporting handler, service and
// repository spans over OTLP/HTTP, and W3C trace-context propagation so an
// upstream trace id carries through. The collector must be reachable at startup.
func InitTracer(opts TracerOptions) (*sdktrace.TracerProvider, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("tracing endpoint is required")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 2 * time.Second
	}

	if err := checkReachable(opts.Endpoint, opts.DialTimeout); err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(context.Background(), otlptracehttp.WithEndpoint(opts.Endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(opts)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}

func newResource(opts TracerOptions) *resource.Resource {
	name := opts.ServiceName
	if name == "" {
		name = "advertisement-service"
	}
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(name),
		semconv.ServiceNamespaceKey.String(ServiceNamespace),
		semconv.ServiceVersionKey.String(opts.Version),
		semconv.DeploymentEnvironmentKey.String(opts.Environment),
	)
}

func checkReachable(endpoint string, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", endpoint, timeout)
	if err != nil {
		return fmt.Errorf("OTLP server at %s is not reachable: %w", endpoint, err)
	}
	return conn.Close()
}
