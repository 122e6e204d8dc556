package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/torosent/flakeprobe/internal/report"
	"github.com/torosent/flakeprobe/internal/threshold"
)

const rule = "═══════════════════════════════════════════════════"

type palette struct {
	frame    lipgloss.Style
	title    lipgloss.Style
	endpoint lipgloss.Style
	query    lipgloss.Style
	good     lipgloss.Style
	bad      lipgloss.Style
	warn     lipgloss.Style
	severity map[report.Severity]lipgloss.Style
}

func newPalette(r *lipgloss.Renderer, noColor bool) palette {
	if noColor {
		plain := r.NewStyle()
		return palette{
			frame: plain, title: plain, endpoint: plain, query: plain,
			good: plain, bad: plain, warn: plain,
			severity: map[report.Severity]lipgloss.Style{
				report.SeverityHealthy:  plain,
				report.SeverityMild:     plain,
				report.SeverityModerate: plain,
				report.SeveritySevere:   plain,
			},
		}
	}
	color := func(c string) lipgloss.Style { return r.NewStyle().Foreground(lipgloss.Color(c)) }
	return palette{
		frame:    color("12"),
		title:    color("15").Bold(true),
		endpoint: color("14"),
		query:    color("15"),
		good:     color("10"),
		bad:      color("9"),
		warn:     color("11"),
		severity: map[report.Severity]lipgloss.Style{
			report.SeverityHealthy:  color("10").Bold(true),
			report.SeverityMild:     color("11").Bold(true),
			report.SeverityModerate: color("13").Bold(true),
			report.SeveritySevere:   color("9").Bold(true),
		},
	}
}

// RunInfo describes a run for the console banner and the exported reports.
type RunInfo struct {
	RunID       string
	Endpoints   []string
	Queries     []string
	Duration    time.Duration
	Concurrency int
	Timeout     time.Duration
	Pause       time.Duration
}

// Console prints progress and the final summary. It implements
// runner.Observer.
type Console struct {
	w io.Writer
	p palette
}

func NewConsole(w io.Writer, noColor bool) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{w: w, p: newPalette(lipgloss.NewRenderer(w), noColor)}
}

// Banner prints the title and the run configuration.
func (c *Console) Banner(info RunInfo) {
	fmt.Fprintln(c.w, c.p.frame.Render("╔══════════════════════════════════════════════════╗"))
	fmt.Fprintln(c.w, c.p.title.Render("║          RPC ENDPOINT FLAKINESS PROBE            ║"))
	fmt.Fprintln(c.w, c.p.frame.Render("╚══════════════════════════════════════════════════╝"))

	fmt.Fprintf(c.w, "\n%s Configuration:\n", c.p.warn.Render("⚙"))
	if info.RunID != "" {
		fmt.Fprintf(c.w, "  Run ID: %s\n", info.RunID)
	}
	fmt.Fprintf(c.w, "  Endpoints: %d\n", len(info.Endpoints))
	fmt.Fprintf(c.w, "  Test Duration: %ds\n", int64(info.Duration/time.Second))
	fmt.Fprintf(c.w, "  Queries: %s\n", strings.Join(info.Queries, ", "))
	fmt.Fprintf(c.w, "  Concurrency: %d\n", info.Concurrency)
	if info.Timeout > 0 {
		fmt.Fprintf(c.w, "  Timeout: %s\n", info.Timeout)
	}
	if info.Pause > 0 {
		fmt.Fprintf(c.w, "  Pause: %s\n", info.Pause)
	}
}

func (c *Console) EndpointStarted(endpoint string, index, total int) {
	fmt.Fprintf(c.w, "\n%s Testing endpoint %d/%d: %s\n", "🔍", index+1, total, c.p.endpoint.Render(endpoint))
}

func (c *Console) QueryStarted(endpoint, query string) {
	fmt.Fprintf(c.w, "  → Testing query: %s\n", c.p.query.Render(query))
}

func (c *Console) QueryFinished(endpoint string, result report.QueryResult) {
	fmt.Fprintf(c.w, "    ✓ Success: %s | ✗ Failure: %s | Rate: %s\n",
		c.p.good.Render(fmt.Sprint(result.SuccessCount)),
		c.p.bad.Render(fmt.Sprint(result.FailureCount)),
		c.p.warn.Render(fmt.Sprintf("%.1f%%", result.FailureRate*100)))
	fmt.Fprintf(c.w, "    Latency: p50=%.1fms p95=%.1fms p99=%.1fms\n", result.P50Ms, result.P95Ms, result.P99Ms)
}

func (c *Console) EndpointFinished(rep report.EndpointReport) {}

// Summary prints every endpoint from most to least flaky.
func (c *Console) Summary(reports []report.EndpointReport) {
	fmt.Fprintf(c.w, "\n%s\n", c.p.frame.Render(rule))
	fmt.Fprintln(c.w, c.p.title.Render("           FLAKINESS DETECTION SUMMARY"))
	fmt.Fprintln(c.w, c.p.frame.Render(rule))

	for _, rep := range report.Rank(reports) {
		sev := report.SeverityOf(rep.FlakinessScore)
		fmt.Fprintf(c.w, "\n%s %s - Flakiness Score: %s/100 (%s)\n",
			sev.Emoji(),
			c.p.endpoint.Render(rep.Endpoint),
			c.p.severity[sev].Render(fmt.Sprintf("%.1f", rep.FlakinessScore)),
			sev)
		fmt.Fprintf(c.w, "  Success Rate: %s | Total Requests: %d\n",
			c.p.good.Render(fmt.Sprintf("%.1f%%", rep.OverallSuccessRate*100)),
			rep.TotalRequests)
	}

	fmt.Fprintf(c.w, "\n%s\n", c.p.frame.Render(rule))
}

// Thresholds prints threshold outcomes.
func (c *Console) Thresholds(results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
	}
	fmt.Fprintf(c.w, "\nThresholds: %d/%d passed\n", passed, len(results))
	for _, r := range results {
		style := c.p.good
		if !r.Pass {
			style = c.p.bad
		}
		fmt.Fprintf(c.w, "  %s\n", style.Render(r.Message))
	}
}

// Exported reports where the results were written.
func (c *Console) Exported(path string) {
	fmt.Fprintf(c.w, "\n%s Results exported to: %s\n", c.p.good.Render("💾"), c.p.endpoint.Render(path))
}

// Done prints the closing line. Interrupted runs say so.
func (c *Console) Done(interrupted bool) {
	if interrupted {
		fmt.Fprintf(c.w, "\n%s Testing interrupted, partial results shown.\n\n", c.p.warn.Render("⚠"))
		return
	}
	fmt.Fprintf(c.w, "\n%s Testing complete!\n\n", c.p.good.Render("✅"))
}
