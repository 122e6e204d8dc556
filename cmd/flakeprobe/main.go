package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/torosent/flakeprobe/internal/config"
	"github.com/torosent/flakeprobe/internal/httpclient"
	"github.com/torosent/flakeprobe/internal/logging"
	"github.com/torosent/flakeprobe/internal/output"
	"github.com/torosent/flakeprobe/internal/probe"
	"github.com/torosent/flakeprobe/internal/runner"
	"github.com/torosent/flakeprobe/internal/threshold"
	"github.com/torosent/flakeprobe/internal/tracing"
)

const (
	shutdownTimeout = 5 * time.Second
	exportTimeout   = 10 * time.Second
)

var (
	errThresholdsFailed = errors.New("thresholds failed")
	errInterrupted      = errors.New("run interrupted")
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(stderr, cfg.LogLevel, cfg.LogFormat, cfg.NoColor)
	if err != nil {
		return err
	}
	runID := ulid.Make().String()
	log := logger.WithField("run_id", runID)
	for _, warning := range cfg.Warnings() {
		log.Warn(warning)
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}
	headers, err := httpclient.StaticHeaders(cfg.Headers)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.Tracing, runID)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	targetOpts := []probe.TargetOption{probe.WithHeaders(headers)}
	if cfg.Tracing.Enabled() || cfg.Tracing.Propagate {
		targetOpts = append(targetOpts, probe.WithTracing(tp))
	}

	console := output.NewConsole(stdout, cfg.NoColor)
	info := output.RunInfo{
		RunID:       runID,
		Endpoints:   cfg.Endpoints,
		Queries:     cfg.Queries,
		Duration:    cfg.Duration,
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
		Pause:       cfg.Pause,
	}
	console.Banner(info)

	failures := logging.NewProbeFailureLogger(log, cfg.LogErrors)
	orchestrator := &runner.Orchestrator{
		Endpoints: cfg.Endpoints,
		Queries:   cfg.Queries,
		Timeout:   cfg.Timeout,
		Options: runner.Options{
			Concurrency:         cfg.Concurrency,
			Duration:            cfg.Duration,
			Pause:               cfg.Pause,
			RatePerSecond:       cfg.Rate,
			PrivateAccumulators: cfg.PrivateAccumulators,
		},
		TargetOptions: targetOpts,
		FailureLogger: func(endpoint, query string) runner.FailureLogger {
			return failures.With(endpoint, query)
		},
		Observer: console,
	}

	log.WithFields(logrus.Fields{
		"endpoints":   len(cfg.Endpoints),
		"queries":     len(cfg.Queries),
		"concurrency": cfg.Concurrency,
	}).Debug("starting run")

	reports, err := orchestrator.Run(ctx)
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return err
	}
	if interrupted {
		log.Warn("run interrupted, reporting partial results")
	}

	console.Summary(reports)
	results := threshold.NewEvaluator(thresholds).Evaluate(reports)
	console.Thresholds(results)

	if cfg.Output != "" {
		exportCtx, cancelExport := context.WithTimeout(context.Background(), exportTimeout)
		err := output.WriteReportFile(exportCtx, cfg.Output, cfg.OutputFormat(), output.Export{
			Info:       info,
			Reports:    reports,
			Thresholds: results,
		})
		cancelExport()
		if err != nil {
			log.WithError(err).WithField("path", cfg.Output).Warn("failed to write report")
		} else {
			console.Exported(cfg.Output)
		}
	}
	console.Done(interrupted)

	if interrupted {
		return errInterrupted
	}
	if !threshold.AllPassed(results) {
		failed := 0
		for _, r := range results {
			if !r.Pass {
				failed++
			}
		}
		return fmt.Errorf("%w: %d of %d", errThresholdsFailed, failed, len(results))
	}
	return nil
}
