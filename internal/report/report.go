package report

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/torosent/flakeprobe/internal/metrics"
)

const (
	failureWeight      = 0.7
	latencyWeight      = 0.3
	latencyThresholdMs = 1000.0
	maxScore           = 100.0
)

// ErrNoQueries is returned when an endpoint report is requested without any
// query results; the average p99 would be undefined.
var ErrNoQueries = errors.New("endpoint report requires at least one query result")

// QueryResult is the immutable outcome of probing one query on one endpoint.
type QueryResult struct {
	Query         string  `json:"query" yaml:"query"`
	SuccessCount  uint64  `json:"success_count" yaml:"success_count"`
	FailureCount  uint64  `json:"failure_count" yaml:"failure_count"`
	TotalRequests uint64  `json:"total_requests" yaml:"total_requests"`
	FailureRate   float64 `json:"failure_rate" yaml:"failure_rate"`
	P50Ms         float64 `json:"p50_latency_ms" yaml:"p50_latency_ms"`
	P95Ms         float64 `json:"p95_latency_ms" yaml:"p95_latency_ms"`
	P99Ms         float64 `json:"p99_latency_ms" yaml:"p99_latency_ms"`
	AvgMs         float64 `json:"avg_latency_ms" yaml:"avg_latency_ms"`
	MinMs         float64 `json:"min_latency_ms" yaml:"min_latency_ms"`
	MaxMs         float64 `json:"max_latency_ms" yaml:"max_latency_ms"`
}

// EndpointReport summarizes every query result of one endpoint.
type EndpointReport struct {
	Endpoint           string        `json:"endpoint" yaml:"endpoint"`
	OverallSuccessRate float64       `json:"overall_success_rate" yaml:"overall_success_rate"`
	OverallFailureRate float64       `json:"overall_failure_rate" yaml:"overall_failure_rate"`
	FlakinessScore     float64       `json:"flakiness_score" yaml:"flakiness_score"`
	TotalRequests      uint64        `json:"total_requests" yaml:"total_requests"`
	TestDurationSecs   uint64        `json:"test_duration_secs" yaml:"test_duration_secs"`
	Queries            []QueryResult `json:"queries" yaml:"queries"`
}

// AggregateQuery freezes a snapshot into a QueryResult. It only reads the
// snapshot, so aggregating the same snapshot twice yields identical results.
func AggregateQuery(query string, snap metrics.Snapshot) QueryResult {
	total := snap.Total()
	result := QueryResult{
		Query:         query,
		SuccessCount:  snap.Successes,
		FailureCount:  snap.Failures,
		TotalRequests: total,
	}
	if total > 0 {
		result.FailureRate = float64(snap.Failures) / float64(total)
	}

	h := snap.Latencies
	if snap.Successes == 0 || h == nil || h.Count() == 0 {
		return result
	}
	result.P50Ms = usToMs(float64(h.ValueAtQuantile(0.50)))
	result.P95Ms = usToMs(float64(h.ValueAtQuantile(0.95)))
	result.P99Ms = usToMs(float64(h.ValueAtQuantile(0.99)))
	result.AvgMs = usToMs(h.Mean())
	result.MinMs = usToMs(float64(h.Min()))
	result.MaxMs = usToMs(float64(h.Max()))
	return result
}

// AggregateEndpoint combines the query results of one endpoint. Queries keep
// the order they were given in.
func AggregateEndpoint(endpoint string, duration time.Duration, queries []QueryResult) (EndpointReport, error) {
	if len(queries) == 0 {
		return EndpointReport{}, ErrNoQueries
	}

	var successes, failures uint64
	var sumP99 float64
	for _, q := range queries {
		successes += q.SuccessCount
		failures += q.FailureCount
		sumP99 += q.P99Ms
	}
	total := successes + failures

	failureRate := 0.0
	if total > 0 {
		failureRate = float64(failures) / float64(total)
	}
	avgP99 := sumP99 / float64(len(queries))

	return EndpointReport{
		Endpoint:           endpoint,
		OverallSuccessRate: 1 - failureRate,
		OverallFailureRate: failureRate,
		FlakinessScore:     FlakinessScore(failureRate, avgP99),
		TotalRequests:      total,
		TestDurationSecs:   uint64(duration / time.Second),
		Queries:            append([]QueryResult(nil), queries...),
	}, nil
}

// FlakinessScore blends the failure rate and the mean p99 latency (ms) into a
// score between 0 and 100.
func FlakinessScore(failureRate, avgP99Ms float64) float64 {
	severity := math.Min(avgP99Ms/latencyThresholdMs, 1.0)
	if severity < 0 || math.IsNaN(severity) {
		severity = 0
	}
	score := (failureRate*failureWeight + severity*latencyWeight) * 100
	if score < 0 {
		return 0
	}
	return math.Min(score, maxScore)
}

// Rank returns the reports ordered from most to least flaky. Ties keep their
// configuration order. The input slice is not modified.
func Rank(reports []EndpointReport) []EndpointReport {
	ranked := append([]EndpointReport(nil), reports...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FlakinessScore > ranked[j].FlakinessScore
	})
	return ranked
}

func usToMs(us float64) float64 {
	return us / 1000.0
}
