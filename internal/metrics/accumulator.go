package metrics

import (
	"sync"
	"time"
)

// Accumulator collects probe outcomes for one endpoint/query test window.
// It is safe for concurrent use.
type Accumulator struct {
	mu        sync.Mutex
	successes uint64
	failures  uint64
	latencies *Recorder
}

// Snapshot is a frozen view of an Accumulator. It shares no state with the
// accumulator it was taken from.
type Snapshot struct {
	Successes uint64
	Failures  uint64
	Latencies *Recorder
}

func NewAccumulator() *Accumulator {
	return &Accumulator{latencies: NewRecorder()}
}

// RecordSuccess counts a successful probe and records its latency.
// A latency the recorder cannot represent is dropped; the success still counts.
func (a *Accumulator) RecordSuccess(latency time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successes++
	a.latencies.Record(latency)
}

// RecordFailure counts a failed probe.
func (a *Accumulator) RecordFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.failures++
}

// Record dispatches on err: nil records a success, anything else a failure.
func (a *Accumulator) Record(latency time.Duration, err error) {
	if err != nil {
		a.RecordFailure()
		return
	}
	a.RecordSuccess(latency)
}

// Merge adds other's counts and latencies into a.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil || other == a {
		return
	}
	snap := other.Snapshot()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.successes += snap.Successes
	a.failures += snap.Failures
	a.latencies.Merge(snap.Latencies)
}

// Snapshot returns a copy of the current counts and histogram.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Snapshot{
		Successes: a.successes,
		Failures:  a.failures,
		Latencies: a.latencies.Clone(),
	}
}

// Total returns the number of outcomes recorded in the snapshot.
func (s Snapshot) Total() uint64 {
	return s.Successes + s.Failures
}
