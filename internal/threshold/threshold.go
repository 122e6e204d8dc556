// Package threshold evaluates pass/fail assertions over the endpoint reports
// of a run, e.g. "flakiness_score:max < 30".
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/flakeprobe/internal/report"
)

const (
	MetricFlakinessScore = "flakiness_score"
	MetricFailureRate    = "failure_rate"
	MetricP50Latency     = "p50_latency_ms"
	MetricP95Latency     = "p95_latency_ms"
	MetricP99Latency     = "p99_latency_ms"
	MetricAvgLatency     = "avg_latency_ms"
	MetricTotalRequests  = "total_requests"
)

// defaultAggregate applies when a threshold names no aggregate.
const defaultAggregate = "max"

var thresholdPattern = regexp.MustCompile(`^([a-z0-9_]+)(?::([a-z]+))?\s*([<>=!]+)\s*([0-9.]+)$`)

// Threshold represents an assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "flakiness_score", "failure_rate"
	Aggregate string  // "max", "min", "avg", or "rate"/"sum" where supported
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against endpoint reports.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the reports.
func (e *Evaluator) Evaluate(reports []report.EndpointReport) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, e.evaluateOne(t, reports))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func (e *Evaluator) evaluateOne(t Threshold, reports []report.EndpointReport) Result {
	actual, err := extractMetricValue(t, reports)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "flakiness_score < 30"          (worst endpoint score, max is the default)
// - "flakiness_score:avg < 10"      (mean score over endpoints)
// - "failure_rate:rate < 0.05"      (failures over all requests of the run)
// - "failure_rate:max < 0.1"        (worst endpoint failure rate)
// - "p99_latency_ms:max < 500"      (slowest query p99 in ms)
// - "total_requests:min > 100"      (every endpoint received at least 100 probes)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric[:aggregate] operator value, e.g., 'flakiness_score:max < 30')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	if aggregate == "" {
		aggregate = defaultAggregate
	}
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	aggregates, ok := supportedAggregates[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(metricNames, ", "))
	}
	if !contains(aggregates, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(aggregates, ", "))
	}
	if !contains(validOperators, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

var (
	spreadAggregates = []string{"max", "min", "avg"}

	supportedAggregates = map[string][]string{
		MetricFlakinessScore: spreadAggregates,
		MetricFailureRate:    {"max", "min", "avg", "rate"},
		MetricP50Latency:     spreadAggregates,
		MetricP95Latency:     spreadAggregates,
		MetricP99Latency:     spreadAggregates,
		MetricAvgLatency:     spreadAggregates,
		MetricTotalRequests:  {"max", "min", "avg", "sum"},
	}

	metricNames = []string{
		MetricFlakinessScore, MetricFailureRate, MetricP50Latency, MetricP95Latency,
		MetricP99Latency, MetricAvgLatency, MetricTotalRequests,
	}

	validOperators = []string{"<", "<=", ">", ">=", "=="}
)

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func extractMetricValue(t Threshold, reports []report.EndpointReport) (float64, error) {
	if len(reports) == 0 {
		return 0, fmt.Errorf("no endpoint reports")
	}

	switch t.Metric {
	case MetricFlakinessScore:
		return aggregate(t.Aggregate, perEndpoint(reports, func(r report.EndpointReport) float64 { return r.FlakinessScore }))
	case MetricFailureRate:
		if t.Aggregate == "rate" {
			var failures, total uint64
			for _, r := range reports {
				total += r.TotalRequests
				for _, q := range r.Queries {
					failures += q.FailureCount
				}
			}
			if total == 0 {
				return 0, nil
			}
			return float64(failures) / float64(total), nil
		}
		return aggregate(t.Aggregate, perEndpoint(reports, func(r report.EndpointReport) float64 { return r.OverallFailureRate }))
	case MetricTotalRequests:
		return aggregate(t.Aggregate, perEndpoint(reports, func(r report.EndpointReport) float64 { return float64(r.TotalRequests) }))
	case MetricP50Latency:
		return aggregate(t.Aggregate, perQuery(reports, func(q report.QueryResult) float64 { return q.P50Ms }))
	case MetricP95Latency:
		return aggregate(t.Aggregate, perQuery(reports, func(q report.QueryResult) float64 { return q.P95Ms }))
	case MetricP99Latency:
		return aggregate(t.Aggregate, perQuery(reports, func(q report.QueryResult) float64 { return q.P99Ms }))
	case MetricAvgLatency:
		return aggregate(t.Aggregate, perQuery(reports, func(q report.QueryResult) float64 { return q.AvgMs }))
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func perEndpoint(reports []report.EndpointReport, value func(report.EndpointReport) float64) []float64 {
	values := make([]float64, 0, len(reports))
	for _, r := range reports {
		values = append(values, value(r))
	}
	return values
}

// perQuery collects latency values of queries that had at least one
// successful probe; queries without successes carry no latency.
func perQuery(reports []report.EndpointReport, value func(report.QueryResult) float64) []float64 {
	var values []float64
	for _, r := range reports {
		for _, q := range r.Queries {
			if q.SuccessCount == 0 {
				continue
			}
			values = append(values, value(q))
		}
	}
	return values
}

func aggregate(kind string, values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	switch kind {
	case "max":
		out := values[0]
		for _, v := range values[1:] {
			out = math.Max(out, v)
		}
		return out, nil
	case "min":
		out := values[0]
		for _, v := range values[1:] {
			out = math.Min(out, v)
		}
		return out, nil
	case "avg", "sum":
		var sum float64
		for _, v := range values {
			sum += v
		}
		if kind == "sum" {
			return sum, nil
		}
		return sum / float64(len(values)), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q", kind)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
