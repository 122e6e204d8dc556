package runner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/flakeprobe/internal/probe"
	"github.com/torosent/flakeprobe/internal/report"
	"github.com/torosent/flakeprobe/internal/runner"
)

// fakeRequester simulates a probe taking sleep and reporting latency.
type fakeRequester struct {
	sleep    time.Duration
	latency  time.Duration
	err      error
	calls    int64
	inFlight int64
	peak     int64
}

func (f *fakeRequester) Probe(ctx context.Context) probe.Outcome {
	atomic.AddInt64(&f.calls, 1)
	n := atomic.AddInt64(&f.inFlight, 1)
	defer atomic.AddInt64(&f.inFlight, -1)
	for {
		p := atomic.LoadInt64(&f.peak)
		if n <= p || atomic.CompareAndSwapInt64(&f.peak, p, n) {
			break
		}
	}

	if f.sleep > 0 {
		timer := time.NewTimer(f.sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return probe.Outcome{Latency: f.sleep, Err: ctx.Err()}
		}
	}
	latency := f.latency
	if latency == 0 {
		latency = f.sleep
	}
	return probe.Outcome{Latency: latency, Err: f.err}
}

// TestRunQuerySingleWorkerCadence covers a 50ms endpoint probed by one worker
// with the default 100ms pause for one second.
func TestRunQuerySingleWorkerCadence(t *testing.T) {
	req := &fakeRequester{sleep: 50 * time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency: 1,
		Duration:    time.Second,
		Pause:       100 * time.Millisecond,
	})

	snap := r.RunQuery(context.Background(), req).Snapshot()

	if snap.Failures != 0 {
		t.Fatalf("expected no failures, got %d", snap.Failures)
	}
	if snap.Successes < 6 || snap.Successes > 8 {
		t.Fatalf("expected 6-8 successes, got %d", snap.Successes)
	}
	result := report.AggregateQuery("health", snap)
	if result.P50Ms < 49 || result.P50Ms > 52 {
		t.Fatalf("expected p50 around 50ms, got %.3f", result.P50Ms)
	}
}

func TestRunQueryRecordsEveryProbe(t *testing.T) {
	req := &fakeRequester{sleep: 2 * time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency: 4,
		Duration:    100 * time.Millisecond,
		Pause:       5 * time.Millisecond,
	})

	snap := r.RunQuery(context.Background(), req).Snapshot()

	calls := uint64(atomic.LoadInt64(&req.calls))
	if snap.Total() != calls {
		t.Fatalf("recorded %d outcomes for %d probes", snap.Total(), calls)
	}
	if snap.Latencies.Count() != int64(snap.Successes) {
		t.Fatalf("histogram count %d != successes %d", snap.Latencies.Count(), snap.Successes)
	}
}

func TestRunQueryAlwaysFailing(t *testing.T) {
	req := &fakeRequester{err: &probe.StatusError{StatusCode: 503}}
	r := runner.New(runner.Options{
		Concurrency: 3,
		Duration:    100 * time.Millisecond,
		Pause:       10 * time.Millisecond,
	})

	snap := r.RunQuery(context.Background(), req).Snapshot()
	if snap.Successes != 0 || snap.Failures == 0 {
		t.Fatalf("expected only failures, got %d successes %d failures", snap.Successes, snap.Failures)
	}
	if snap.Latencies.Count() != 0 {
		t.Fatalf("failures must not be added to the histogram")
	}
}

func TestRunQuerySpawnsExactConcurrency(t *testing.T) {
	req := &fakeRequester{sleep: 30 * time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency: 5,
		Duration:    100 * time.Millisecond,
	})

	r.RunQuery(context.Background(), req)

	if peak := atomic.LoadInt64(&req.peak); peak != 5 {
		t.Fatalf("expected 5 concurrent probes at peak, got %d", peak)
	}
	if inFlight := atomic.LoadInt64(&req.inFlight); inFlight != 0 {
		t.Fatalf("RunQuery returned with %d probes in flight", inFlight)
	}
}

// TestRunQuerySoftDeadline ensures a probe started before the deadline is
// completed and recorded even though it ends after the window.
func TestRunQuerySoftDeadline(t *testing.T) {
	req := &fakeRequester{sleep: 250 * time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency: 3,
		Duration:    50 * time.Millisecond,
	})

	start := time.Now()
	snap := r.RunQuery(context.Background(), req).Snapshot()
	elapsed := time.Since(start)

	if elapsed < 250*time.Millisecond {
		t.Fatalf("RunQuery returned before in-flight probes finished: %s", elapsed)
	}
	if snap.Successes != 3 {
		t.Fatalf("expected one recorded probe per worker, got %d", snap.Successes)
	}
}

func TestRunQueryCancellationDiscardsAbortedProbe(t *testing.T) {
	req := &fakeRequester{sleep: 10 * time.Second}
	r := runner.New(runner.Options{
		Concurrency: 4,
		Duration:    10 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	snap := r.RunQuery(ctx, req).Snapshot()

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cancellation not honored, took %s", elapsed)
	}
	if snap.Total() != 0 {
		t.Fatalf("aborted probes must not be recorded, got %d", snap.Total())
	}
}

func TestRunQueryCancellationInterruptsPause(t *testing.T) {
	req := &fakeRequester{}
	r := runner.New(runner.Options{
		Concurrency: 2,
		Duration:    10 * time.Second,
		Pause:       10 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	snap := r.RunQuery(ctx, req).Snapshot()

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("pause not interrupted, took %s", elapsed)
	}
	if snap.Total() != 2 {
		t.Fatalf("expected the first probe of each worker to be recorded, got %d", snap.Total())
	}
}

func TestRunQueryRateLimiterCapsThroughput(t *testing.T) {
	req := &fakeRequester{}
	rateLimit := 50
	duration := 200 * time.Millisecond
	r := runner.New(runner.Options{
		Concurrency:    20,
		Duration:       duration,
		RatePerSecond:  rateLimit,
		LimiterFactory: func(rps int) *rate.Limiter { return rate.NewLimiter(rate.Limit(rps), 1) },
	})

	snap := r.RunQuery(context.Background(), req).Snapshot()

	maxExpected := uint64(float64(rateLimit)*duration.Seconds()*1.2) + 1
	if snap.Total() == 0 {
		t.Fatal("expected some probes")
	}
	if snap.Total() > maxExpected {
		t.Fatalf("rate limiter exceeded: total=%d max=%d", snap.Total(), maxExpected)
	}
}

func TestRunQueryPrivateAccumulators(t *testing.T) {
	req := &fakeRequester{sleep: time.Millisecond, latency: 7 * time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency:         4,
		Duration:            100 * time.Millisecond,
		Pause:               5 * time.Millisecond,
		PrivateAccumulators: true,
	})

	snap := r.RunQuery(context.Background(), req).Snapshot()

	calls := uint64(atomic.LoadInt64(&req.calls))
	if snap.Successes != calls {
		t.Fatalf("merged successes %d != probes %d", snap.Successes, calls)
	}
	if snap.Latencies.Count() != int64(calls) {
		t.Fatalf("merged histogram count %d != probes %d", snap.Latencies.Count(), calls)
	}
}

func TestRunQueryNilRequester(t *testing.T) {
	r := runner.New(runner.Options{Duration: time.Second})
	if total := r.RunQuery(context.Background(), nil).Snapshot().Total(); total != 0 {
		t.Fatalf("expected empty accumulator, got %d", total)
	}
}

type recordingLogger struct {
	failures int64
}

func (l *recordingLogger) LogFailure(out probe.Outcome) {
	atomic.AddInt64(&l.failures, 1)
}

func TestWithLoggingLogsFailuresOnly(t *testing.T) {
	logger := &recordingLogger{}
	var n int64
	req := runner.WithLogging(runner.RequesterFunc(func(ctx context.Context) probe.Outcome {
		if atomic.AddInt64(&n, 1)%2 == 0 {
			return probe.Outcome{Err: errors.New("boom")}
		}
		return probe.Outcome{Latency: time.Millisecond}
	}), logger)

	for i := 0; i < 10; i++ {
		req.Probe(context.Background())
	}
	if got := atomic.LoadInt64(&logger.failures); got != 5 {
		t.Fatalf("expected 5 logged failures, got %d", got)
	}
}

func TestWithLoggingSkipsCanceled(t *testing.T) {
	logger := &recordingLogger{}
	req := runner.WithLogging(runner.RequesterFunc(func(ctx context.Context) probe.Outcome {
		return probe.Outcome{Err: ctx.Err()}
	}), logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req.Probe(ctx)

	if got := atomic.LoadInt64(&logger.failures); got != 0 {
		t.Fatalf("expected canceled probe not to be logged, got %d", got)
	}
}

func TestWithLoggingNilLogger(t *testing.T) {
	inner := runner.RequesterFunc(func(ctx context.Context) probe.Outcome { return probe.Outcome{} })
	if _, ok := runner.WithLogging(inner, nil).(runner.RequesterFunc); !ok {
		t.Fatal("expected requester to be returned unwrapped")
	}
}
