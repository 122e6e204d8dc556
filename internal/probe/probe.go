// Package probe issues single GET requests against an endpoint/query pair and
// classifies the outcome.
package probe

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/flakeprobe/internal/tracing"
)

const (
	maxErrorBodyBytes = 512
	// maxDrainBytes bounds how much of a successful body is read so the
	// connection can be reused. Larger bodies (genesis) are abandoned instead.
	maxDrainBytes = 64 << 10
)

// Outcome is the result of one probe. Err is nil on success.
type Outcome struct {
	Latency time.Duration
	Err     error
}

// Success reports whether the probe received a 2xx response.
func (o Outcome) Success() bool {
	return o.Err == nil
}

// Reason describes a failed outcome; it is empty on success.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// URL joins endpoint and query with exactly one slash, stripping any trailing
// slashes from endpoint.
func URL(endpoint, query string) string {
	return strings.TrimRight(endpoint, "/") + "/" + query
}

// Do performs a single GET against endpoint/query. Latency covers the time from
// just before the request is sent until the response status (or error) is known.
// No retries are performed.
func Do(ctx context.Context, client *http.Client, endpoint, query string) Outcome {
	return do(ctx, client, URL(endpoint, query), nil)
}

func do(ctx context.Context, client *http.Client, target string, headers http.Header) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Outcome{Err: err}
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return Outcome{Latency: latency, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		_, _ = io.CopyN(io.Discard, resp.Body, maxDrainBytes)
		return Outcome{
			Latency: latency,
			Err: &StatusError{
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(snippet)),
			},
		}
	}

	_, _ = io.CopyN(io.Discard, resp.Body, maxDrainBytes)
	return Outcome{Latency: latency}
}

// Target probes a fixed endpoint/query pair with a shared client.
// It is safe for concurrent use when the client is.
type Target struct {
	Endpoint string
	Query    string

	client    *http.Client
	url       string
	headers   http.Header
	tracer    trace.Tracer
	propagate bool
}

// TargetOption customizes a Target.
type TargetOption func(*Target)

// WithHeaders adds static headers to every probe.
func WithHeaders(headers http.Header) TargetOption {
	return func(t *Target) {
		if len(headers) == 0 {
			return
		}
		t.headers = headers.Clone()
	}
}

// WithTracing records a client span for every probe and, when propagate is
// set, injects W3C trace context headers.
func WithTracing(p *tracing.Provider) TargetOption {
	return func(t *Target) {
		t.tracer = p.Tracer()
		t.propagate = p.ShouldPropagate()
	}
}

func NewTarget(client *http.Client, endpoint, query string, opts ...TargetOption) *Target {
	t := &Target{
		Endpoint: endpoint,
		Query:    query,
		client:   client,
		url:      URL(endpoint, query),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Probe issues one request and returns its outcome.
func (t *Target) Probe(ctx context.Context) Outcome {
	if t.tracer == nil {
		return do(ctx, t.client, t.url, t.headers)
	}

	ctx, span := tracing.StartProbeSpan(ctx, t.tracer, t.Endpoint, t.Query)
	headers := t.headers
	if t.propagate {
		headers = headers.Clone()
		if headers == nil {
			headers = http.Header{}
		}
		tracing.InjectHTTPHeaders(ctx, headers)
	}
	out := do(ctx, t.client, t.url, headers)

	attrs := []attribute.KeyValue{attribute.Int64("flakeprobe.latency_us", out.Latency.Microseconds())}
	if code, ok := StatusCode(out.Err); ok {
		attrs = append(attrs, attribute.Int("http.response.status_code", code))
	}
	tracing.EndSpan(span, out.Err, attrs...)
	return out
}
