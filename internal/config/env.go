// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tsrec/internal/log"
)

// Environment variable names, one per configuration key.
const (
	EnvLogLevel            = "TSREC_LOG_LEVEL"
	EnvLogFormat           = "TSREC_LOG_FORMAT"
	EnvTunerDevice         = "TSREC_TUNER_DEVICE"
	EnvTunerLNB            = "TSREC_TUNER_LNB"
	EnvChunkSize           = "TSREC_CHUNK_SIZE"
	EnvBatchFactor         = "TSREC_BATCH_FACTOR"
	EnvProgressInterval    = "TSREC_PROGRESS_INTERVAL"
	EnvSignalPollInterval  = "TSREC_SIGNAL_POLL_INTERVAL"
	EnvDescramblerBin      = "TSREC_DESCRAMBLER_BIN"
	EnvDescramblerArgs     = "TSREC_DESCRAMBLER_ARGS"
	EnvDescramblerKillTime = "TSREC_DESCRAMBLER_KILL_TIMEOUT"
	EnvOutputAtomic        = "TSREC_OUTPUT_ATOMIC"
	EnvOutputStats         = "TSREC_OUTPUT_STATS"
	EnvMetricsTextfile     = "TSREC_METRICS_TEXTFILE"
	EnvMetricsListen       = "TSREC_METRICS_LISTEN"
)

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		logger.Debug().
			Str("key", key).
			Str("default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Str("value", value).
		Str("source", "environment").
		Msg("using environment variable")
	return value
}

// ParseStringList reads a whitespace-separated list. An unset or empty
// variable keeps the default.
func ParseStringList(key string, defaultValue []string) []string {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return defaultValue
	}
	fields := strings.Fields(v)
	logger.Debug().
		Str("key", key).
		Strs("value", fields).
		Str("source", "environment").
		Msg("using environment variable")
	return fields
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	if i, err := strconv.Atoi(v); err == nil {
		logger.Debug().
			Str("key", key).
			Int("value", i).
			Str("source", "environment").
			Msg("using environment variable")
		return i
	}
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Int("default", defaultValue).
		Msg("invalid integer in environment variable, using default")
	return defaultValue
}

// ParseDuration reads a duration in Go format (e.g. "5s").
// It falls back to default on parse errors or empty variables.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		logger.Debug().
			Str("key", key).
			Dur("value", d).
			Str("source", "environment").
			Msg("using environment variable")
		return d
	}
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Dur("default", defaultValue).
		Msg("invalid duration in environment variable, using default")
	return defaultValue
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
}
