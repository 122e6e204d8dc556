// Package report reduces accumulator snapshots into per-query results and
// per-endpoint reports, and derives the flakiness score.
//
// The score blends the overall failure rate (70%) with a latency severity
// (30%) that saturates once the mean p99 across queries reaches one second:
//
//	severity := math.Min(avgP99Ms/1000, 1)
//	score    := math.Min((failureRate*0.7+severity*0.3)*100, 100)
//
// [SeverityOf] maps a score onto the bands used for presentation.
package report
