package tracing_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/flakeprobe/internal/config"
	"github.com/torosent/flakeprobe/internal/tracing"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter, tp.Tracer("test")
}

func TestInitDisabledByDefault(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	p, err := tracing.Init(context.Background(), config.TracingConfig{}, "")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if p.ShouldPropagate() {
		t.Error("ShouldPropagate() = true, want false when tracing disabled")
	}

	// no-op tracer must not panic
	_, span := p.Tracer().Start(context.Background(), "test")
	span.End()
}

func TestInitWithEndpointEnablesTracing(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint:    "localhost:4317",
		Protocol:    "grpc",
		ServiceName: "test-service",
		SampleRate:  1.0,
		Insecure:    true,
	}, "01HZXRUNID")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if !p.ShouldPropagate() {
		t.Error("ShouldPropagate() = false, want true when tracing enabled")
	}
}

func TestInitHTTPProtocol(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint: "localhost:4318",
		Protocol: "http",
		Insecure: true,
	}, "")
	if err != nil {
		t.Fatalf("Init() with http protocol error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
}

func TestInitUnsupportedProtocol(t *testing.T) {
	_, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint: "localhost:4317",
		Protocol: "thrift",
		Insecure: true,
	}, "")
	if err == nil {
		t.Fatal("Init() with unsupported protocol should return error")
	}
}

func TestInitInvalidSampleRate(t *testing.T) {
	for _, rate := range []float64{-0.5, 1.5} {
		_, err := tracing.Init(context.Background(), config.TracingConfig{
			Endpoint:   "localhost:4317",
			Insecure:   true,
			SampleRate: rate,
		}, "")
		if err == nil {
			t.Fatalf("Init() with sample_rate=%g should return error", rate)
		}
	}
}

func TestInitSharesConfigValidation(t *testing.T) {
	_, err := tracing.Init(context.Background(), config.TracingConfig{Propagate: true, SampleRate: 2}, "")
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Init() error = %v, want config.ValidationError", err)
	}
	if len(verr.Issues()) != 1 {
		t.Errorf("issues = %v, want just the sample rate", verr.Issues())
	}
}

func TestInitPropagateWithoutExporter(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	p, err := tracing.Init(context.Background(), config.TracingConfig{Propagate: true, SampleRate: 1}, "")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !p.ShouldPropagate() {
		t.Error("ShouldPropagate() = false, want true with propagate set")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestProbeSpanRecordsError(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracing.StartProbeSpan(context.Background(), tracer, "http://node:26657", "status")
	tracing.EndSpan(span, errors.New("HTTP 503"), attribute.Int("http.response.status_code", 503))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name != "probe status" {
		t.Errorf("span name = %q, want %q", got.Name, "probe status")
	}
	if got.Status.Code != codes.Error {
		t.Errorf("span status = %v, want Error", got.Status.Code)
	}
	if got.SpanKind != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", got.SpanKind)
	}
}

func TestInjectHTTPHeaders(t *testing.T) {
	_, tracer := setupTestTracer(t)

	ctx, span := tracing.StartProbeSpan(context.Background(), tracer, "http://node:26657", "health")
	defer span.End()

	headers := http.Header{}
	tracing.InjectHTTPHeaders(ctx, headers)
	if headers.Get("Traceparent") == "" {
		t.Fatal("expected traceparent header to be injected")
	}
}
