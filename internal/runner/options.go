package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/flakeprobe/internal/probe"
)

// Requester abstracts executing a single probe.
type Requester interface {
	Probe(ctx context.Context) probe.Outcome
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context) probe.Outcome

func (f RequesterFunc) Probe(ctx context.Context) probe.Outcome {
	return f(ctx)
}

// Options configure the Runner.
type Options struct {
	Concurrency         int                         // number of worker goroutines per query
	Duration            time.Duration               // length of each query window
	Pause               time.Duration               // sleep between probes of one worker (0 disables)
	RatePerSecond       int                         // cap on probes per second across a query's workers (0 means unlimited)
	PrivateAccumulators bool                        // each worker records into its own accumulator, merged after join
	LimiterFactory      func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	if o.Pause < 0 {
		o.Pause = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
