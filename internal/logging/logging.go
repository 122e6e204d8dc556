// Package logging configures the logrus logger used for diagnostics. Logs go to
// stderr so stdout carries only the console report.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/torosent/flakeprobe/internal/probe"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// NullLogger discards everything. Useful as a default and in tests.
var NullLogger = &logrus.Logger{
	Out:       io.Discard,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.PanicLevel,
}

// New returns a logger writing to out at the given level ("info" when empty)
// in text or json format.
func New(out io.Writer, level, format string, noColor bool) (*logrus.Logger, error) {
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: noColor,
		})
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log format %q: use %q or %q", format, FormatText, FormatJSON)
	}
	return logger, nil
}

// ProbeFailureLogger writes one entry per failed probe. Failures are debug
// noise by default; raised, they are logged as warnings.
type ProbeFailureLogger struct {
	entry *logrus.Entry
	level logrus.Level
}

func NewProbeFailureLogger(entry *logrus.Entry, raise bool) *ProbeFailureLogger {
	if entry == nil {
		entry = logrus.NewEntry(NullLogger)
	}
	level := logrus.DebugLevel
	if raise {
		level = logrus.WarnLevel
	}
	return &ProbeFailureLogger{entry: entry, level: level}
}

// With returns a logger that tags entries with endpoint and query.
func (l *ProbeFailureLogger) With(endpoint, query string) *ProbeFailureLogger {
	return &ProbeFailureLogger{
		entry: l.entry.WithFields(logrus.Fields{"endpoint": endpoint, "query": query}),
		level: l.level,
	}
}

func (l *ProbeFailureLogger) LogFailure(out probe.Outcome) {
	if out.Err == nil {
		return
	}
	l.entry.WithFields(logrus.Fields{
		"reason":     probe.Classify(out.Err),
		"latency_ms": float64(out.Latency.Microseconds()) / 1000.0,
	}).Log(l.level, "probe failed: "+out.Reason())
}
