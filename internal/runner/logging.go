package runner

import (
	"context"

	"github.com/torosent/flakeprobe/internal/probe"
)

// FailureLogger logs failed probes.
type FailureLogger interface {
	LogFailure(out probe.Outcome)
}

// loggingRequester wraps a Requester with failure logging.
type loggingRequester struct {
	inner  Requester
	logger FailureLogger
}

// WithLogging wraps a Requester to log failures. Probes aborted by
// cancellation are not logged since they are never recorded.
func WithLogging(req Requester, logger FailureLogger) Requester {
	if logger == nil {
		return req
	}
	return &loggingRequester{
		inner:  req,
		logger: logger,
	}
}

func (l *loggingRequester) Probe(ctx context.Context) probe.Outcome {
	out := l.inner.Probe(ctx)
	if out.Err != nil && ctx.Err() == nil {
		l.logger.LogFailure(out)
	}
	return out
}
