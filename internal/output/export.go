package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/torosent/flakeprobe/internal/config"
	"github.com/torosent/flakeprobe/internal/report"
	"github.com/torosent/flakeprobe/internal/threshold"
)

const lockRetryDelay = 50 * time.Millisecond

// Export bundles what a report file may contain. JSON and YAML carry only the
// endpoint reports; HTML renders everything.
type Export struct {
	Info       RunInfo
	Reports    []report.EndpointReport
	Thresholds []threshold.Result
}

// EncodeReports writes the export in the given format.
func EncodeReports(w io.Writer, format config.OutputFormat, data Export) error {
	reports := data.Reports
	if reports == nil {
		reports = []report.EndpointReport{}
	}

	switch format {
	case config.OutputFormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case config.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return err
		}
		return enc.Close()
	case config.OutputFormatHTML:
		return GenerateHTMLReport(w, data)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteReportFile writes the export to path. Concurrent writers of the same
// path are serialized through an advisory lock on path+".lock".
func WriteReportFile(ctx context.Context, path string, format config.OutputFormat, data Export) (err error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("lock %s: not acquired", lock.Path())
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := EncodeReports(f, format, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
