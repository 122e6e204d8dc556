// Package config resolves the probe run configuration from flags, a config
// file and FLAKEPROBE_* environment variables.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// lookupSetting returns the first candidate key present in settings, trying
// each key as written and lowercased.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if val, ok := settings[key]; ok {
			return val, true
		}
		if val, ok := settings[strings.ToLower(key)]; ok {
			return val, true
		}
	}
	return nil, false
}

func asString(value interface{}) (string, error) {
	return cast.ToStringE(value)
}

// trimmed strips whitespace from string values so env input like " 5 " parses.
func trimmed(value interface{}) interface{} {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return value
}

func asInt(value interface{}) (int, error) {
	v, err := cast.ToIntE(trimmed(value))
	if err != nil {
		return 0, fmt.Errorf("expected integer: %w", err)
	}
	return v, nil
}

func asFloat64(value interface{}) (float64, error) {
	v, err := cast.ToFloat64E(trimmed(value))
	if err != nil {
		return 0, fmt.Errorf("expected number: %w", err)
	}
	return v, nil
}

func asBool(value interface{}) (bool, error) {
	v, err := cast.ToBoolE(trimmed(value))
	if err != nil {
		return false, fmt.Errorf("expected boolean: %w", err)
	}
	return v, nil
}

// asDuration accepts Go durations ("90s", "1m") and bare numbers, which are
// read as whole seconds.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
		return time.ParseDuration(v)
	default:
		secs, err := asInt(v)
		if err != nil {
			return 0, fmt.Errorf("unsupported duration type %T", value)
		}
		return time.Duration(secs) * time.Second, nil
	}
}

func asStringMap(value interface{}) (map[string]string, error) {
	if value == nil {
		return nil, nil
	}
	m, err := cast.ToStringMapStringE(value)
	if err != nil {
		return nil, fmt.Errorf("expected key/value map: %w", err)
	}
	for key := range m {
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("header key cannot be empty")
		}
	}
	return m, nil
}

// asStringSlice keeps a single string as one element. Threshold expressions
// contain spaces, so whitespace splitting is not an option here.
func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	default:
		return cast.ToStringSliceE(v)
	}
}

// toStringKeyMap lowercases the keys of a nested config section.
func toStringKeyMap(value interface{}) (map[string]interface{}, error) {
	m, err := cast.ToStringMapE(value)
	if err != nil {
		return nil, fmt.Errorf("expected map, got %T", value)
	}
	result := make(map[string]interface{}, len(m))
	for key, val := range m {
		result[strings.ToLower(strings.TrimSpace(key))] = val
	}
	return result, nil
}
