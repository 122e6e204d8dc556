package output_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/torosent/flakeprobe/internal/output"
	"github.com/torosent/flakeprobe/internal/report"
	"github.com/torosent/flakeprobe/internal/threshold"
)

func sampleReports() []report.EndpointReport {
	return []report.EndpointReport{
		{
			Endpoint:           "http://healthy:26657",
			OverallSuccessRate: 1,
			FlakinessScore:     1.5,
			TotalRequests:      120,
			TestDurationSecs:   60,
			Queries: []report.QueryResult{
				{Query: "health", SuccessCount: 60, TotalRequests: 60, P50Ms: 12.5, P95Ms: 30, P99Ms: 50, AvgMs: 15, MinMs: 8, MaxMs: 55},
				{Query: "status", SuccessCount: 60, TotalRequests: 60, P50Ms: 14, P95Ms: 32, P99Ms: 50, AvgMs: 16, MinMs: 9, MaxMs: 60},
			},
		},
		{
			Endpoint:           "http://down:26657",
			OverallSuccessRate: 0,
			OverallFailureRate: 1,
			FlakinessScore:     70,
			TotalRequests:      40,
			TestDurationSecs:   60,
			Queries: []report.QueryResult{
				{Query: "health", FailureCount: 20, TotalRequests: 20, FailureRate: 1},
				{Query: "status", FailureCount: 20, TotalRequests: 20, FailureRate: 1},
			},
		},
	}
}

func sampleInfo() output.RunInfo {
	return output.RunInfo{
		RunID:       "01J9ZK6Q4M3W2X1Y0Z9A8B7C6D",
		Endpoints:   []string{"http://healthy:26657", "http://down:26657"},
		Queries:     []string{"health", "status"},
		Duration:    60 * time.Second,
		Concurrency: 10,
		Timeout:     5 * time.Second,
		Pause:       100 * time.Millisecond,
	}
}

func TestGenerateHTMLReport(t *testing.T) {
	results := []threshold.Result{
		{
			Threshold: threshold.Threshold{Raw: "flakiness_score:max < 30", Metric: "flakiness_score", Aggregate: "max", Operator: "<", Value: 30},
			Actual:    70,
			Pass:      false,
		},
	}

	var buf bytes.Buffer
	err := output.GenerateHTMLReport(&buf, output.Export{Info: sampleInfo(), Reports: sampleReports(), Thresholds: results})
	if err != nil {
		t.Fatalf("GenerateHTMLReport() error = %v", err)
	}
	html := buf.String()

	for _, elem := range []string{
		"<!DOCTYPE html>",
		"Endpoint Flakiness Report",
		"01J9ZK6Q4M3W2X1Y0Z9A8B7C6D",
		"http://healthy:26657",
		"http://down:26657",
		"Ranking",
		"Thresholds (0/1 Passed)",
		"flakiness_score:max &lt; 30",
		"✗ FAIL",
		"70.00",
		"severe",
		"12.50 ms",
	} {
		if !strings.Contains(html, elem) {
			t.Errorf("expected HTML to contain %q", elem)
		}
	}

	// Ranking lists the flakiest endpoint first.
	ranking := html[strings.Index(html, "<h2>Ranking</h2>"):]
	if strings.Index(ranking, "http://down:26657") > strings.Index(ranking, "http://healthy:26657") {
		t.Error("expected the flakiest endpoint to be ranked first")
	}
}

func TestGenerateHTMLReport_NoThresholds(t *testing.T) {
	var buf bytes.Buffer
	if err := output.GenerateHTMLReport(&buf, output.Export{Info: sampleInfo(), Reports: sampleReports()}); err != nil {
		t.Fatalf("GenerateHTMLReport() error = %v", err)
	}
	if strings.Contains(buf.String(), "Thresholds (") {
		t.Error("did not expect a thresholds section")
	}
}

func TestGenerateHTMLReport_NoEndpoints(t *testing.T) {
	var buf bytes.Buffer
	if err := output.GenerateHTMLReport(&buf, output.Export{}); err != nil {
		t.Fatalf("GenerateHTMLReport() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No endpoints were tested.") {
		t.Error("expected empty-state message")
	}
}

func TestGenerateHTMLReport_EscapesHTMLInData(t *testing.T) {
	reports := []report.EndpointReport{{
		Endpoint: "http://evil/<script>alert('xss')</script>",
		Queries:  []report.QueryResult{{Query: "<b>q</b>"}},
	}}

	var buf bytes.Buffer
	if err := output.GenerateHTMLReport(&buf, output.Export{Reports: reports}); err != nil {
		t.Fatalf("GenerateHTMLReport() error = %v", err)
	}
	html := buf.String()
	if strings.Contains(html, "<script>alert('xss')</script>") {
		t.Error("endpoint name was not escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Error("expected escaped script tag")
	}
}
