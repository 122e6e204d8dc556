package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	lowestTrackable  = int64(1)
	highestTrackable = int64(10 * time.Minute / time.Microsecond)
	significantFigs  = 3
)

// Recorder is a bounded-precision latency histogram with microsecond resolution.
type Recorder struct {
	hist *hdrhistogram.Histogram
}

// NewRecorder returns an empty recorder tracking 1µs up to 10 minutes.
func NewRecorder() *Recorder {
	return &Recorder{hist: hdrhistogram.New(lowestTrackable, highestTrackable, significantFigs)}
}

// Record adds a latency sample. Sub-microsecond latencies count as 1µs.
// Samples beyond the trackable range are dropped and Record reports false.
func (r *Recorder) Record(latency time.Duration) bool {
	if latency < 0 {
		return false
	}
	us := latency.Microseconds()
	if us < lowestTrackable {
		us = lowestTrackable
	}
	return r.hist.RecordValue(us) == nil
}

// Count returns the number of recorded samples.
func (r *Recorder) Count() int64 {
	return r.hist.TotalCount()
}

// Mean returns the arithmetic mean in microseconds.
func (r *Recorder) Mean() float64 {
	return r.hist.Mean()
}

// Min returns the smallest recorded value in microseconds.
func (r *Recorder) Min() int64 {
	return r.hist.Min()
}

// Max returns the largest recorded value in microseconds.
func (r *Recorder) Max() int64 {
	return r.hist.Max()
}

// ValueAtQuantile returns the value in microseconds at quantile q (0.0–1.0).
// The result is meaningless for an empty recorder.
func (r *Recorder) ValueAtQuantile(q float64) int64 {
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	return r.hist.ValueAtQuantile(q * 100)
}

// Merge folds other's samples into r and returns how many were dropped.
func (r *Recorder) Merge(other *Recorder) int64 {
	if other == nil {
		return 0
	}
	return r.hist.Merge(other.hist)
}

// Clone returns an independent copy of r.
func (r *Recorder) Clone() *Recorder {
	return &Recorder{hist: hdrhistogram.Import(r.hist.Export())}
}
