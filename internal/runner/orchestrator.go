package runner

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/torosent/flakeprobe/internal/httpclient"
	"github.com/torosent/flakeprobe/internal/probe"
	"github.com/torosent/flakeprobe/internal/report"
)

// Observer receives progress notifications. Calls happen on the goroutine
// running Orchestrator.Run, never concurrently.
type Observer interface {
	EndpointStarted(endpoint string, index, total int)
	QueryStarted(endpoint, query string)
	QueryFinished(endpoint string, result report.QueryResult)
	EndpointFinished(rep report.EndpointReport)
}

// Orchestrator tests endpoints one after another, and the queries of each
// endpoint one after another.
type Orchestrator struct {
	Endpoints []string
	Queries   []string
	Timeout   time.Duration
	Options   Options

	// NewClient builds the client shared by all probes of one endpoint.
	// Defaults to httpclient.NewClient.
	NewClient func(timeout time.Duration, concurrency int) *http.Client
	// NewRequester builds the requester for one endpoint/query pair.
	// Defaults to a probe.Target carrying TargetOptions.
	NewRequester  func(client *http.Client, endpoint, query string) Requester
	TargetOptions []probe.TargetOption
	// FailureLogger, when set, returns the failure logger for one pair.
	FailureLogger func(endpoint, query string) FailureLogger
	Observer      Observer
}

// Run returns one report per endpoint in configuration order. When ctx is
// cancelled the run stops after the current query window; the interrupted
// endpoint is reported with the queries that recorded outcomes, or left out
// when none did, and ctx.Err() is returned alongside the reports.
func (o *Orchestrator) Run(ctx context.Context) ([]report.EndpointReport, error) {
	if len(o.Queries) == 0 {
		return nil, report.ErrNoQueries
	}

	r := New(o.Options)
	reports := make([]report.EndpointReport, 0, len(o.Endpoints))
	for i, endpoint := range o.Endpoints {
		if ctx.Err() != nil {
			return reports, ctx.Err()
		}
		o.notify(func(obs Observer) { obs.EndpointStarted(endpoint, i, len(o.Endpoints)) })

		rep, measured, err := o.runEndpoint(ctx, r, endpoint)
		if err != nil {
			return reports, fmt.Errorf("endpoint %s: %w", endpoint, err)
		}
		if !measured {
			return reports, ctx.Err()
		}
		reports = append(reports, rep)
		o.notify(func(obs Observer) { obs.EndpointFinished(rep) })
	}
	return reports, ctx.Err()
}

// runEndpoint reports measured=false when cancellation left the endpoint
// without a single recorded outcome.
func (o *Orchestrator) runEndpoint(ctx context.Context, r *Runner, endpoint string) (rep report.EndpointReport, measured bool, err error) {
	client := o.client(r.Options().Concurrency)
	defer client.CloseIdleConnections()

	results := make([]report.QueryResult, 0, len(o.Queries))
	for _, query := range o.Queries {
		if ctx.Err() != nil {
			break
		}
		o.notify(func(obs Observer) { obs.QueryStarted(endpoint, query) })

		req := o.requester(client, endpoint, query)
		if o.FailureLogger != nil {
			req = WithLogging(req, o.FailureLogger(endpoint, query))
		}
		snap := r.RunQuery(ctx, req).Snapshot()
		if ctx.Err() != nil && snap.Total() == 0 {
			// An interrupted window with no outcomes says nothing about the query.
			break
		}
		result := report.AggregateQuery(query, snap)
		results = append(results, result)
		o.notify(func(obs Observer) { obs.QueryFinished(endpoint, result) })
	}
	if len(results) == 0 {
		return report.EndpointReport{}, false, nil
	}
	rep, err = report.AggregateEndpoint(endpoint, o.Options.Duration, results)
	return rep, err == nil, err
}

func (o *Orchestrator) client(concurrency int) *http.Client {
	if o.NewClient != nil {
		return o.NewClient(o.Timeout, concurrency)
	}
	return httpclient.NewClient(o.Timeout, concurrency)
}

func (o *Orchestrator) requester(client *http.Client, endpoint, query string) Requester {
	if o.NewRequester != nil {
		return o.NewRequester(client, endpoint, query)
	}
	return probe.NewTarget(client, endpoint, query, o.TargetOptions...)
}

func (o *Orchestrator) notify(fn func(Observer)) {
	if o.Observer != nil {
		fn(o.Observer)
	}
}
