package runner

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/flakeprobe/internal/metrics"
)

// Runner runs the worker pool for one query window at a time.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Options returns the normalized options.
func (r *Runner) Options() Options {
	return r.opt
}

// RunQuery probes req with Concurrency workers until the window closes and
// returns the accumulator holding every recorded outcome. It returns only
// after all workers have exited.
func (r *Runner) RunQuery(ctx context.Context, req Requester) *metrics.Accumulator {
	acc := metrics.NewAccumulator()
	if req == nil {
		return acc
	}

	deadline := time.Now().Add(r.opt.Duration)
	limiter := r.opt.LimiterFactory(r.opt.RatePerSecond)

	// The limiter never waits past the window.
	limitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	sinks := make([]*metrics.Accumulator, r.opt.Concurrency)
	for i := range sinks {
		if r.opt.PrivateAccumulators {
			sinks[i] = metrics.NewAccumulator()
		} else {
			sinks[i] = acc
		}
	}

	var wg sync.WaitGroup
	wg.Add(r.opt.Concurrency)
	for i := 0; i < r.opt.Concurrency; i++ {
		go func(sink *metrics.Accumulator) {
			defer wg.Done()
			r.work(ctx, limitCtx, req, sink, limiter, deadline)
		}(sinks[i])
	}
	wg.Wait()

	if r.opt.PrivateAccumulators {
		for _, sink := range sinks {
			acc.Merge(sink)
		}
	}
	return acc
}

func (r *Runner) work(ctx, limitCtx context.Context, req Requester, sink *metrics.Accumulator, limiter *rate.Limiter, deadline time.Time) {
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		if err := limiter.Wait(limitCtx); err != nil {
			return
		}

		out := req.Probe(ctx)
		if ctx.Err() != nil {
			return
		}
		sink.Record(out.Latency, out.Err)

		if !r.pause(ctx) {
			return
		}
	}
}

func (r *Runner) pause(ctx context.Context) bool {
	if r.opt.Pause <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(r.opt.Pause)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
