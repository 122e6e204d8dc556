package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. FLAKEPROBE_ENDPOINTS or FLAKEPROBE_TRACING_ENDPOINT.
const EnvPrefix = "FLAKEPROBE"

// Loader handles loading configuration from files, the environment and
// command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

var envKeys = []string{
	"endpoints", "queries", "duration", "concurrency", "timeout", "pause", "rate",
	"private_accumulators", "output", "thresholds", "log_errors", "log_level",
	"log_format", "no_color",
	"tracing.endpoint", "tracing.protocol", "tracing.service_name",
	"tracing.insecure", "tracing.sample_rate", "tracing.propagate",
}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load resolves a Config from defaults, an optional config file, FLAKEPROBE_*
// environment variables and finally command-line flags, in increasing order
// of precedence.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" && os.Getenv(EnvPrefix+"_ENDPOINTS") == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	cfgViper.SetEnvPrefix(EnvPrefix)
	cfgViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range envKeys {
		if err := cfgViper.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Queries:     append([]string(nil), DefaultQueries...),
		Duration:    DefaultDuration,
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		Pause:       DefaultPause,
		Headers:     map[string]string{},
		LogLevel:    "info",
		LogFormat:   "text",
		ConfigFile:  configPath,
		Tracing:     TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file or the environment
// to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "endpoints"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("endpoints: %w", err)
		}
		cfg.Endpoints = cleanList(val)
	}

	if raw, ok := lookupSetting(settings, "queries"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("queries: %w", err)
		}
		cfg.Queries = cleanList(val)
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "concurrency"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("concurrency: %w", err)
		}
		cfg.Concurrency = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "pause"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("pause: %w", err)
		}
		cfg.Pause = dur
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "privateaccumulators", "private_accumulators", "private-accumulators"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("privateAccumulators: %w", err)
		}
		cfg.PrivateAccumulators = val
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	if raw, ok := lookupSetting(settings, "output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		cfg.Output = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "loglevel", "log_level", "log-level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("logLevel: %w", err)
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "logformat", "log_format", "log-format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("logFormat: %w", err)
		}
		cfg.LogFormat = strings.ToLower(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "nocolor", "no_color", "no-color"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("noColor: %w", err)
		}
		cfg.NoColor = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracingConfig(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseTracingConfig(value interface{}, base TracingConfig) (TracingConfig, error) {
	if value == nil {
		return base, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}
	tc := base
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		tc.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tc.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("propagate: %w", err)
		}
		tc.Propagate = val
	}
	return tc, nil
}
