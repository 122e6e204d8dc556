// Package metrics provides the latency recorder and the per-query accumulator
// used while an endpoint is being probed.
//
// # Recorder
//
// [Recorder] wraps an HdrHistogram tracking latencies at microsecond resolution
// with three significant figures, so memory stays bounded no matter how many
// samples a query produces:
//
//	rec := metrics.NewRecorder()
//	rec.Record(42 * time.Millisecond)
//	p99 := rec.ValueAtQuantile(0.99) // microseconds
//
// A Recorder is not safe for concurrent use on its own.
//
// # Accumulator
//
// [Accumulator] collects the outcomes of every worker probing one
// endpoint/query pair. Each record call is serialized by a single mutex:
//
//	acc := metrics.NewAccumulator()
//	acc.RecordSuccess(latency)
//	acc.RecordFailure()
//
//	snap := acc.Snapshot() // frozen copy for aggregation
//
// Accumulators are mergeable, which lets a worker pool give every worker a
// private accumulator and fold them together after the workers join.
package metrics
