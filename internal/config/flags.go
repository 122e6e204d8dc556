package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "flakeprobe",
		Short:         "Detect flaky RPC endpoints with query-specific testing",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Targets
	flags.StringSliceP("endpoints", "e", nil, "Comma-separated list of RPC endpoints to test")
	flags.StringSliceP("queries", "q", DefaultQueries, "Comma-separated list of RPC queries to test")
	flags.StringSlice("header", nil, "Additional request header in key=value form (repeatable)")

	// Load control
	flags.StringP("duration", "d", "60", "Test duration per query in whole seconds, as a number or Go duration (e.g. 60, 1m)")
	flags.IntP("concurrency", "c", DefaultConcurrency, "Concurrent workers per query")
	flags.StringP("timeout", "t", "5", "Request timeout, in seconds or as a Go duration")
	flags.Duration("pause", DefaultPause, "Pause each worker takes between probes")
	flags.Int("rate", 0, "Requests per second cap shared by all workers of a query (0 means unlimited)")
	flags.Bool("private-accumulators", false, "Give each worker its own accumulator and merge after the query")

	// Output
	flags.StringP("output", "o", "", "Report file path; format follows the extension (.json, .yaml, .html)")
	flags.StringSlice("threshold", nil, "Pass/fail threshold (repeatable, e.g. 'flakiness_score:max < 30')")
	flags.Bool("no-color", false, "Disable colored console output")
	flags.String("config", "", "Path to configuration file (JSON, YAML or TOML)")

	// Logging
	flags.Bool("log-errors", false, "Log each failed probe at warn level")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text or json)")

	// Tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint for probe spans")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("tracing-service-name", "", "Service name reported with spans")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of probes to sample (0.0-1.0)")
	flags.Bool("tracing-propagate", false, "Send W3C traceparent headers even without an exporter")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\nUsage: %s\n\nFlags:\n", cmd.Short, cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file and environment.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("endpoints") {
		val, err := fs.GetStringSlice("endpoints")
		if err != nil {
			return err
		}
		cfg.Endpoints = cleanList(val)
	}
	if fs.Changed("queries") {
		val, err := fs.GetStringSlice("queries")
		if err != nil {
			return err
		}
		cfg.Queries = cleanList(val)
	}
	if fs.Changed("duration") {
		val, err := fs.GetString("duration")
		if err != nil {
			return err
		}
		dur, err := asDuration(val)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetString("timeout")
		if err != nil {
			return err
		}
		dur, err := asDuration(val)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}
	if fs.Changed("pause") {
		val, err := fs.GetDuration("pause")
		if err != nil {
			return err
		}
		cfg.Pause = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("private-accumulators") {
		val, err := fs.GetBool("private-accumulators")
		if err != nil {
			return err
		}
		cfg.PrivateAccumulators = val
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = strings.TrimSpace(val)
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("no-color") {
		val, err := fs.GetBool("no-color")
		if err != nil {
			return err
		}
		cfg.NoColor = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("log-format") {
		val, err := fs.GetString("log-format")
		if err != nil {
			return err
		}
		cfg.LogFormat = strings.ToLower(strings.TrimSpace(val))
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("header must be in key=value format: %s", entry)
			}
			key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
			if key == "" {
				return fmt.Errorf("header key cannot be empty")
			}
			cfg.Headers[key] = strings.TrimSpace(parts[1])
		}
	}

	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-service-name") {
		val, err := fs.GetString("tracing-service-name")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = val
	}

	return nil
}

// cleanList trims entries, drops empty ones and splits any comma-joined values.
func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
