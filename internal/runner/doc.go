// Package runner drives the probes of a flakiness run.
//
// A [Runner] measures one endpoint/query pair: it starts exactly
// Options.Concurrency workers that each loop probe, record, pause until the
// query window closes.
//
//	r := runner.New(runner.Options{
//		Concurrency: 10,
//		Duration:    time.Minute,
//		Pause:       100 * time.Millisecond,
//	})
//	acc := r.RunQuery(ctx, target)
//
// The deadline is soft: a worker checks it only before starting a probe, so
// a probe in flight when the window closes still completes and is recorded.
// Cancelling ctx stops workers between probes, interrupts the pause, and
// discards a probe the cancellation aborted.
//
// # Requester Interface
//
// The [Requester] interface defines what a worker executes:
//
//	type Requester interface {
//		Probe(ctx context.Context) probe.Outcome
//	}
//
// [probe.Target] is the production implementation.
//
// # Orchestration
//
// An [Orchestrator] walks endpoints and queries in configuration order, one
// query window at a time, and turns every window into a [report.QueryResult]
// and every endpoint into a [report.EndpointReport].
//
// # Middleware
//
// [WithLogging] wraps a requester so failures reach a [FailureLogger].
package runner
