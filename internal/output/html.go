package output

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/flakeprobe/internal/report"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Info             RunInfo
	Reports          []report.EndpointReport
	Ranked           []report.EndpointReport
	TotalRequests    uint64
	WorstScore       float64
	ThresholdSummary *ThresholdSummary
}

// ThresholdSummary aggregates threshold outcomes for display.
type ThresholdSummary struct {
	Total   int
	Passed  int
	Failed  int
	Results []ThresholdResultView
}

// ThresholdResultView is one threshold row of the report.
type ThresholdResultView struct {
	Threshold string
	Metric    string
	Aggregate string
	Operator  string
	Expected  float64
	Actual    float64
	Pass      bool
}

// GenerateHTMLReport renders a standalone HTML report.
func GenerateHTMLReport(w io.Writer, data Export) error {
	var thresholdSummary *ThresholdSummary
	if len(data.Thresholds) > 0 {
		thresholdSummary = &ThresholdSummary{
			Total:   len(data.Thresholds),
			Results: make([]ThresholdResultView, len(data.Thresholds)),
		}
		for i, tr := range data.Thresholds {
			thresholdSummary.Results[i] = ThresholdResultView{
				Threshold: tr.Threshold.Raw,
				Metric:    tr.Threshold.Metric,
				Aggregate: tr.Threshold.Aggregate,
				Operator:  tr.Threshold.Operator,
				Expected:  tr.Threshold.Value,
				Actual:    tr.Actual,
				Pass:      tr.Pass,
			}
			if tr.Pass {
				thresholdSummary.Passed++
			} else {
				thresholdSummary.Failed++
			}
		}
	}

	ranked := report.Rank(data.Reports)
	view := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Info:             data.Info,
		Reports:          data.Reports,
		Ranked:           ranked,
		ThresholdSummary: thresholdSummary,
	}
	for _, rep := range data.Reports {
		view.TotalRequests += rep.TotalRequests
	}
	if len(ranked) > 0 {
		view.WorstScore = ranked[0].FlakinessScore
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(rate float64) string {
			return fmt.Sprintf("%.1f", rate*100)
		},
		"severity": func(score float64) string {
			return report.SeverityOf(score).String()
		},
		"emoji": func(score float64) string {
			return report.SeverityOf(score).Emoji()
		},
		"badgeClass": func(score float64) string {
			switch report.SeverityOf(score) {
			case report.SeverityHealthy:
				return "badge-success"
			case report.SeverityMild:
				return "badge-mild"
			case report.SeverityModerate:
				return "badge-moderate"
			default:
				return "badge-error"
			}
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, view); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Endpoint Flakiness Report</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 {
            font-size: 2rem;
            margin-bottom: 10px;
        }
        header .meta {
            opacity: 0.9;
            font-size: 0.9rem;
        }
        .content {
            padding: 40px;
        }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #667eea;
        }
        .card h3 {
            font-size: 0.9rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 10px;
        }
        .card .value {
            font-size: 2rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .card .subvalue {
            font-size: 0.85rem;
            color: #6c757d;
            margin-top: 5px;
        }
        .card.success {
            border-left-color: #10b981;
        }
        .card.error {
            border-left-color: #ef4444;
        }
        .card.warning {
            border-left-color: #f59e0b;
        }
        .section {
            margin-bottom: 40px;
        }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            background: white;
        }
        th, td {
            text-align: left;
            padding: 12px;
            border-bottom: 1px solid #e5e7eb;
        }
        th {
            background: #f8f9fa;
            font-weight: 600;
            color: #4b5563;
            font-size: 0.9rem;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        tr:hover {
            background: #f8f9fa;
        }
        .badge {
            display: inline-block;
            padding: 4px 12px;
            border-radius: 12px;
            font-size: 0.85rem;
            font-weight: 600;
        }
        .badge-success {
            background: #d1fae5;
            color: #065f46;
        }
        .badge-error {
            background: #fee2e2;
            color: #991b1b;
        }
        .latency-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
            gap: 15px;
            margin-top: 20px;
        }
        .latency-item {
            background: #f8f9fa;
            padding: 15px;
            border-radius: 6px;
            text-align: center;
        }
        .latency-item .label {
            font-size: 0.85rem;
            color: #6c757d;
            margin-bottom: 5px;
        }
        .latency-item .value {
            font-size: 1.3rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .badge-mild {
            background: #fef3c7;
            color: #92400e;
        }
        .badge-moderate {
            background: #fde68a;
            color: #9a3412;
        }
        .queries td {
            font-size: 0.9rem;
        }
        .no-data {
            text-align: center;
            padding: 40px;
            color: #6c757d;
            font-style: italic;
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Endpoint Flakiness Report</h1>
            {{if .Info.RunID}}
            <div class="meta">Run: {{.Info.RunID}}</div>
            {{end}}
            <div class="meta">Generated: {{.GeneratedAt}} | Window per query: {{formatDuration .Info.Duration}} | Concurrency: {{.Info.Concurrency}}</div>
        </header>

        <div class="content">
            <div class="grid">
                <div class="card">
                    <h3>Endpoints</h3>
                    <div class="value">{{len .Reports}}</div>
                </div>
                <div class="card">
                    <h3>Total Requests</h3>
                    <div class="value">{{.TotalRequests}}</div>
                </div>
                <div class="card {{if lt .WorstScore 30.0}}success{{else if lt .WorstScore 60.0}}warning{{else}}error{{end}}">
                    <h3>Worst Flakiness Score</h3>
                    <div class="value">{{formatFloat .WorstScore}}</div>
                    <div class="subvalue">{{severity .WorstScore}}</div>
                </div>
            </div>

            <div class="section">
                <h2>Ranking</h2>
                {{if .Ranked}}
                <table>
                    <thead>
                        <tr>
                            <th>Endpoint</th>
                            <th>Score</th>
                            <th>Success Rate</th>
                            <th>Total Requests</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Ranked}}
                        <tr>
                            <td><strong>{{.Endpoint}}</strong></td>
                            <td><span class="badge {{badgeClass .FlakinessScore}}">{{emoji .FlakinessScore}} {{formatFloat .FlakinessScore}} {{severity .FlakinessScore}}</span></td>
                            <td>{{formatPercent .OverallSuccessRate}}%</td>
                            <td>{{.TotalRequests}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
                {{else}}
                <div class="no-data">No endpoints were tested.</div>
                {{end}}
            </div>

            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Threshold</th>
                            <th>Metric</th>
                            <th>Expected</th>
                            <th>Actual</th>
                            <th>Status</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .ThresholdSummary.Results}}
                        <tr>
                            <td>{{.Threshold}}</td>
                            <td>{{.Metric}} ({{.Aggregate}})</td>
                            <td>{{.Operator}} {{formatFloat .Expected}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>
                                {{if .Pass}}
                                <span class="badge badge-success">✓ PASS</span>
                                {{else}}
                                <span class="badge badge-error">✗ FAIL</span>
                                {{end}}
                            </td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{range .Reports}}
            <div class="section">
                <h2>{{.Endpoint}}</h2>
                <table class="queries">
                    <thead>
                        <tr>
                            <th>Query</th>
                            <th>Success</th>
                            <th>Failed</th>
                            <th>Failure Rate</th>
                            <th>P50</th>
                            <th>P95</th>
                            <th>P99</th>
                            <th>Avg</th>
                            <th>Min</th>
                            <th>Max</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Queries}}
                        <tr>
                            <td><strong>{{.Query}}</strong></td>
                            <td>{{.SuccessCount}}</td>
                            <td>{{.FailureCount}}</td>
                            <td>{{formatPercent .FailureRate}}%</td>
                            <td>{{formatFloat .P50Ms}} ms</td>
                            <td>{{formatFloat .P95Ms}} ms</td>
                            <td>{{formatFloat .P99Ms}} ms</td>
                            <td>{{formatFloat .AvgMs}} ms</td>
                            <td>{{formatFloat .MinMs}} ms</td>
                            <td>{{formatFloat .MaxMs}} ms</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>
</body>
</html>
`
