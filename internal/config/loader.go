// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader; an empty path skips the file layer.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Load resolves ENV > File > Defaults, then validates.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg. Unknown fields are fatal.
func (l *Loader) loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *Config) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.LogFormat = l.envString(EnvLogFormat, cfg.LogFormat)

	cfg.Tuner.Device = l.envString(EnvTunerDevice, cfg.Tuner.Device)
	cfg.Tuner.LNB = l.envString(EnvTunerLNB, cfg.Tuner.LNB)

	cfg.Pipeline.ChunkSize = l.envInt(EnvChunkSize, cfg.Pipeline.ChunkSize)
	cfg.Pipeline.BatchFactor = l.envInt(EnvBatchFactor, cfg.Pipeline.BatchFactor)
	cfg.Pipeline.ProgressInterval = l.envDuration(EnvProgressInterval, cfg.Pipeline.ProgressInterval)

	cfg.Signal.PollInterval = l.envDuration(EnvSignalPollInterval, cfg.Signal.PollInterval)

	cfg.Descrambler.Bin = l.envString(EnvDescramblerBin, cfg.Descrambler.Bin)
	l.ConsumedEnvKeys[EnvDescramblerArgs] = struct{}{}
	cfg.Descrambler.Args = ParseStringList(EnvDescramblerArgs, cfg.Descrambler.Args)
	cfg.Descrambler.KillTimeout = l.envDuration(EnvDescramblerKillTime, cfg.Descrambler.KillTimeout)

	cfg.Output.Atomic = l.envBool(EnvOutputAtomic, cfg.Output.Atomic)
	cfg.Output.Stats = l.envBool(EnvOutputStats, cfg.Output.Stats)

	cfg.Metrics.Textfile = l.envString(EnvMetricsTextfile, cfg.Metrics.Textfile)
	cfg.Metrics.Listen = l.envString(EnvMetricsListen, cfg.Metrics.Listen)
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Marshal renders cfg as YAML, the format Load accepts.
func Marshal(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
