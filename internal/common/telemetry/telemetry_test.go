package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	commonconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/common/config"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), commonconfig.TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.IsEnabled() {
		t.Error("expected disabled provider")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown of no-op provider failed: %v", err)
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1, want: "AlwaysOnSampler"},
		{rate: 0, want: "AlwaysOffSampler"},
		{rate: 0.5, want: "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		desc := NewSampler(tt.rate).Description()
		want := "ParentBased{root:" + tt.want
		if len(desc) < len(want) || desc[:len(want)] != want {
			t.Errorf("rate=%v: unexpected sampler %q", tt.rate, desc)
		}
	}
}

func TestMapCarrierRoundTrip(t *testing.T) {
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	carrier := MapCarrier{}
	InjectContext(ctx, carrier)
	if carrier.Get("traceparent") == "" {
		t.Fatalf("expected traceparent in carrier, got keys %v", carrier.Keys())
	}

	restored := ExtractContext(context.Background(), carrier)
	_, child := tp.Tracer("test").Start(restored, "consume")
	defer child.End()
	if child.SpanContext().TraceID() != span.SpanContext().TraceID() {
		t.Error("expected consumer span to share trace id")
	}
}
