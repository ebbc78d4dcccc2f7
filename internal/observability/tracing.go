// Package observability provides logging, OpenTelemetry tracing and
// Prometheus metrics for fascraft.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name used for the fascraft tracer.
	TracerName = "github.com/LexxLuey/fascraft"
)

// TracingConfig configures the OpenTelemetry tracing.
type TracingConfig struct {
	// ServiceName is the name of the service (default: "fascraft")
	ServiceName string

	ServiceVersion string

	// Environment is the deployment environment (dev, staging, prod)
	Environment string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	// If empty, tracing is disabled.
	OTLPEndpoint string

	// SampleRate is the trace sampling rate (0.0 to 1.0, default: 1.0)
	SampleRate float64
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "fascraft",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes OpenTelemetry tracing.
// Returns a no-op tracer if OTLPEndpoint is empty.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SampleRate)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown flushes and stops the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Span kinds recorded under fascraft.span.kind.
const (
	SpanKindCommand    = "command"
	SpanKindAnalysis   = "analysis"
	SpanKindRepository = "repository"
	SpanKindSnapshot   = "snapshot"
)

// StartCommandSpan starts the root span of one CLI command.
func StartCommandSpan(ctx context.Context, command string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "command."+command,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("fascraft.span.kind", SpanKindCommand),
			attribute.String("fascraft.command", command),
		),
	)
}

// StartAnalysisSpan starts a span for one graph analysis (order, health,
// statistics, validation).
func StartAnalysisSpan(ctx context.Context, operation string, moduleCount int) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "analysis."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("fascraft.span.kind", SpanKindAnalysis),
			attribute.String("analysis.operation", operation),
			attribute.Int("graph.module_count", moduleCount),
		),
	)
}

// RecordGraphResult records the shape of the analyzed graph on a span. A
// span whose graph has cycles is marked as an error.
func RecordGraphResult(span trace.Span, modules, dependencies, cycles int) {
	span.SetAttributes(
		attribute.Int("graph.module_count", modules),
		attribute.Int("graph.dependency_count", dependencies),
		attribute.Int("graph.cycle_count", cycles),
	)
	if cycles > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d circular dependencies", cycles))
	}
}

// StartRepositorySpan starts a client span for a graph repository call.
func StartRepositorySpan(ctx context.Context, operation, projectID string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "repository."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("fascraft.span.kind", SpanKindRepository),
			attribute.String("db.system", "neo4j"),
			attribute.String("graph.project_id", projectID),
		),
	)
}

// StartSnapshotSpan starts a span for a snapshot store operation.
func StartSnapshotSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "snapshot."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("fascraft.span.kind", SpanKindSnapshot),
		),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
