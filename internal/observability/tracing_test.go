package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs an in-memory tracer provider for the test.
func recordSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func attr(span tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	if cfg.ServiceName != "fascraft" {
		t.Fatalf("expected service name 'fascraft', got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Fatalf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, &TracingConfig{ServiceName: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracing_NilConfig(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); got != tt.want {
			t.Errorf("samplerFor(%v) = %s, want %s", tt.rate, got, tt.want)
		}
	}
}

func TestStartCommandSpan(t *testing.T) {
	exporter := recordSpans(t)

	_, span := StartCommandSpan(context.Background(), "deps.order")
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "command.deps.order" {
		t.Errorf("unexpected span name %s", spans[0].Name)
	}
	if v, ok := attr(spans[0], "fascraft.command"); !ok || v.AsString() != "deps.order" {
		t.Errorf("missing command attribute: %v", spans[0].Attributes)
	}
}

func TestRecordGraphResult(t *testing.T) {
	exporter := recordSpans(t)

	_, clean := StartAnalysisSpan(context.Background(), "statistics", 3)
	RecordGraphResult(clean, 3, 2, 0)
	clean.End()

	_, cyclic := StartAnalysisSpan(context.Background(), "statistics", 2)
	RecordGraphResult(cyclic, 2, 2, 1)
	cyclic.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Status.Code == codes.Error {
		t.Error("acyclic graph should not mark the span as error")
	}
	if v, _ := attr(spans[0], "graph.dependency_count"); v.AsInt64() != 2 {
		t.Errorf("unexpected dependency count %v", v)
	}
	if spans[1].Status.Code != codes.Error {
		t.Error("cyclic graph should mark the span as error")
	}
}

func TestNestedSpans(t *testing.T) {
	exporter := recordSpans(t)

	ctx, cmd := StartCommandSpan(context.Background(), "deps.store")
	_, repo := StartRepositorySpan(ctx, "store", "demo")
	repo.End()
	cmd.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Error("repository span should be a child of the command span")
	}
}

func TestRecordError(t *testing.T) {
	exporter := recordSpans(t)

	_, span := StartSnapshotSpan(context.Background(), "save")
	RecordError(span, nil)
	RecordError(span, errors.New("disk full"))
	span.End()

	got := exporter.GetSpans()[0]
	if got.Status.Code != codes.Error || got.Status.Description != "disk full" {
		t.Errorf("unexpected status %+v", got.Status)
	}
	if len(got.Events) != 1 {
		t.Errorf("expected one exception event, got %d", len(got.Events))
	}
}
