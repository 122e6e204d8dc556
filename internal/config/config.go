package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/torosent/flakeprobe/internal/threshold"
)

// Defaults mirror the stock Cosmos RPC query set.
var (
	DefaultQueries     = []string{"health", "status", "abci_info", "net_info", "genesis"}
	DefaultDuration    = 60 * time.Second
	DefaultConcurrency = 10
	DefaultTimeout     = 5 * time.Second
	DefaultPause       = 100 * time.Millisecond
)

type Config struct {
	Endpoints           []string          `mapstructure:"endpoints"`
	Queries             []string          `mapstructure:"queries"`
	Duration            time.Duration     `mapstructure:"duration"`
	Concurrency         int               `mapstructure:"concurrency"`
	Timeout             time.Duration     `mapstructure:"timeout"`
	Pause               time.Duration     `mapstructure:"pause"`
	Rate                int               `mapstructure:"rate"`
	PrivateAccumulators bool              `mapstructure:"private_accumulators"`
	Headers             map[string]string `mapstructure:"headers"`
	Output              string            `mapstructure:"output"`
	Thresholds          []string          `mapstructure:"thresholds"`
	LogErrors           bool              `mapstructure:"log_errors"`
	LogLevel            string            `mapstructure:"log_level"`
	LogFormat           string            `mapstructure:"log_format"`
	NoColor             bool              `mapstructure:"no_color"`
	Tracing             TracingConfig     `mapstructure:"tracing"`
	ConfigFile          string            `mapstructure:"-"`
}

// TracingConfig configures OpenTelemetry span export for probes.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`     // OTLP collector address
	Protocol    string  `mapstructure:"protocol"`     // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"` // defaults to OTEL_SERVICE_NAME or "flakeprobe"
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   bool    `mapstructure:"propagate"` // inject traceparent even without an exporter
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return t.OTLPEndpoint() != ""
}

// ShouldPropagate reports whether W3C trace headers should be sent with probes.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Enabled() || t.Propagate
}

// Validate checks the sampler and exporter settings on their own, for callers
// that build tracing without a full Config.
func (t TracingConfig) Validate() error {
	if issues := t.issues(); len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func (t TracingConfig) issues() []string {
	var issues []string
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol must be grpc or http, got %q", t.Protocol))
	}
	return issues
}

// OTLPEndpoint returns the configured collector address, falling back to
// OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) OTLPEndpoint() string {
	if ep := strings.TrimSpace(t.Endpoint); ep != "" {
		return ep
	}
	return strings.TrimSpace(envOTLPEndpoint())
}

// OutputFormat identifies how the report file is serialized.
type OutputFormat string

const (
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatHTML OutputFormat = "html"
)

// OutputFormat derives the report format from the output file extension.
// Unknown or missing extensions fall back to JSON.
func (c Config) OutputFormat() OutputFormat {
	switch strings.ToLower(filepath.Ext(c.Output)) {
	case ".yaml", ".yml":
		return OutputFormatYAML
	case ".html", ".htm":
		return OutputFormatHTML
	default:
		return OutputFormatJSON
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks everything the measurement engine relies on. At least one
// endpoint and one query are required; without a query the endpoint-level
// latency average is undefined.
func (c Config) Validate() error {
	var issues []string

	if len(c.Endpoints) == 0 {
		issues = append(issues, "at least one endpoint is required (use --help for usage information)")
	}
	for _, ep := range c.Endpoints {
		if issue := validateEndpoint(ep); issue != "" {
			issues = append(issues, issue)
		}
	}

	if len(c.Queries) == 0 {
		issues = append(issues, "at least one query is required")
	}
	for i, q := range c.Queries {
		if strings.TrimSpace(q) == "" {
			issues = append(issues, fmt.Sprintf("queries[%d]: query name cannot be empty", i))
		}
	}

	if c.Duration < time.Second {
		issues = append(issues, "duration must be >= 1s")
	} else if c.Duration%time.Second != 0 {
		issues = append(issues, fmt.Sprintf("duration must be a whole number of seconds, got %s", c.Duration))
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Timeout < time.Second {
		issues = append(issues, "timeout must be >= 1s")
	}
	if c.Pause < 0 {
		issues = append(issues, "pause must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}

	for key, value := range c.Headers {
		if strings.TrimSpace(key) == "" || strings.ContainsAny(key, "\r\n") {
			issues = append(issues, fmt.Sprintf("invalid header key %q", key))
		}
		if strings.ContainsAny(value, "\r\n") {
			issues = append(issues, fmt.Sprintf("invalid header value for %s", key))
		}
	}

	for i, raw := range c.Thresholds {
		if _, err := threshold.Parse(raw); err != nil {
			issues = append(issues, fmt.Sprintf("thresholds[%d]: %v", i, err))
		}
	}

	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			issues = append(issues, fmt.Sprintf("log level: %v", err))
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("log format must be text or json, got %q", c.LogFormat))
	}

	issues = append(issues, c.Tracing.issues()...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// Warnings returns non-fatal advisories about the configuration.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Concurrency > 500 {
		warnings = append(warnings, fmt.Sprintf("high concurrency configured (%d workers per query); ensure you are authorized to test the target endpoints", c.Concurrency))
	}
	if c.Pause == 0 && c.Rate == 0 {
		warnings = append(warnings, "pause and rate are both disabled; workers will probe back-to-back")
	}
	return warnings
}

func validateEndpoint(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "endpoint URL cannot be empty"
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Sprintf("endpoint %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("endpoint %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Sprintf("endpoint %q: host is required", raw)
	}
	return ""
}

func envOTLPEndpoint() string {
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
}
