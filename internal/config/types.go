// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config resolves the recorder configuration from defaults, a
// strict YAML file and TSREC_* environment variables.
package config

import "time"

// Config is the resolved configuration. CLI flags are applied on top by
// the command layer.
type Config struct {
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	Tuner       TunerConfig       `yaml:"tuner"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Signal      SignalConfig      `yaml:"signal"`
	Descrambler DescramblerConfig `yaml:"descrambler"`
	Output      OutputConfig      `yaml:"output"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type TunerConfig struct {
	// Device is the default tuner path when -i is omitted.
	Device string `yaml:"device"`
	// LNB is off, 11v or 15v.
	LNB string `yaml:"lnb"`
}

type PipelineConfig struct {
	ChunkSize   int `yaml:"chunkSize"`
	BatchFactor int `yaml:"batchFactor"`
	// ProgressInterval throttles the progress log line; 0 disables it.
	ProgressInterval time.Duration `yaml:"progressInterval"`
}

type SignalConfig struct {
	PollInterval time.Duration `yaml:"pollInterval"`
}

type DescramblerConfig struct {
	Bin         string        `yaml:"bin"`
	Args        []string      `yaml:"args"`
	KillTimeout time.Duration `yaml:"killTimeout"`
}

type OutputConfig struct {
	// Atomic publishes file outputs by rename once the run ends.
	Atomic bool `yaml:"atomic"`
	// Stats logs transport stream packet statistics at the end of a run.
	Stats bool `yaml:"stats"`
}

type MetricsConfig struct {
	// Textfile receives a node_exporter textfile dump at the end of a run.
	Textfile string `yaml:"textfile"`
	// Listen serves /metrics and /status while a run is active.
	Listen string `yaml:"listen"`
}
