package output_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/torosent/flakeprobe/internal/config"
	"github.com/torosent/flakeprobe/internal/output"
	"github.com/torosent/flakeprobe/internal/report"
)

func TestEncodeReportsJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	if err := output.EncodeReports(&buf, config.OutputFormatJSON, output.Export{Reports: sampleReports()}); err != nil {
		t.Fatalf("EncodeReports() error = %v", err)
	}
	doc := buf.String()

	if !gjson.Valid(doc) {
		t.Fatalf("invalid JSON:\n%s", doc)
	}
	if n := gjson.Get(doc, "#").Int(); n != 2 {
		t.Fatalf("expected a top-level array of 2 reports, got %d", n)
	}
	checks := map[string]any{
		"0.endpoint":                 "http://healthy:26657",
		"0.overall_success_rate":     1.0,
		"0.flakiness_score":          1.5,
		"0.total_requests":           120.0,
		"0.test_duration_secs":       60.0,
		"0.queries.0.query":          "health",
		"0.queries.0.success_count":  60.0,
		"0.queries.0.p50_latency_ms": 12.5,
		"0.queries.1.max_latency_ms": 60.0,
		"1.overall_failure_rate":     1.0,
		"1.queries.#":                2.0,
		"1.queries.0.failure_rate":   1.0,
	}
	for path, want := range checks {
		got := gjson.Get(doc, path).Value()
		if got != want {
			t.Errorf("%s = %v, want %v", path, got, want)
		}
	}
}

func TestEncodeReportsEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := output.EncodeReports(&buf, config.OutputFormatJSON, output.Export{}); err != nil {
		t.Fatalf("EncodeReports() error = %v", err)
	}
	if !gjson.Parse(buf.String()).IsArray() {
		t.Fatalf("expected an empty array, got %s", buf.String())
	}
}

func TestEncodeReportsYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := output.EncodeReports(&buf, config.OutputFormatYAML, output.Export{Reports: sampleReports()}); err != nil {
		t.Fatalf("EncodeReports() error = %v", err)
	}

	var decoded []report.EndpointReport
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if len(decoded) != 2 || decoded[1].FlakinessScore != 70 || decoded[0].Queries[0].P99Ms != 50 {
		t.Fatalf("unexpected decoded reports: %+v", decoded)
	}
	if !bytes.Contains(buf.Bytes(), []byte("flakiness_score: 70")) {
		t.Errorf("expected snake_case keys:\n%s", buf.String())
	}
}

func TestEncodeReportsUnknownFormat(t *testing.T) {
	if err := output.EncodeReports(&bytes.Buffer{}, config.OutputFormat("xml"), output.Export{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWriteReportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")

	err := output.WriteReportFile(context.Background(), path, config.OutputFormatJSON, output.Export{Reports: sampleReports()})
	if err != nil {
		t.Fatalf("WriteReportFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if got := gjson.GetBytes(data, "1.endpoint").String(); got != "http://down:26657" {
		t.Errorf("1.endpoint = %q", got)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Errorf("expected lock file to be removed, stat err = %v", err)
	}
}

func TestWriteReportFileHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.html")

	err := output.WriteReportFile(context.Background(), path, config.OutputFormatHTML, output.Export{Info: sampleInfo(), Reports: sampleReports()})
	if err != nil {
		t.Fatalf("WriteReportFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(data, []byte("<!DOCTYPE html>")) {
		t.Error("expected an HTML document")
	}
}

func TestWriteReportFileMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "results.json")
	if err := output.WriteReportFile(context.Background(), path, config.OutputFormatJSON, output.Export{}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
