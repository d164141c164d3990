// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/rs/zerolog"

	"github.com/ManuGH/tsrec/internal/tuner"
	"github.com/ManuGH/tsrec/internal/validate"
)

// Validate checks a resolved Config using the centralized validation package.
func Validate(cfg Config) error {
	v := validate.New()

	v.Custom("logLevel", cfg.LogLevel, func(interface{}) error {
		_, err := zerolog.ParseLevel(cfg.LogLevel)
		return err
	})
	v.OneOf("logFormat", cfg.LogFormat, []string{"json", "console"})

	v.Custom("tuner.lnb", cfg.Tuner.LNB, func(interface{}) error {
		_, err := tuner.ParseLNB(cfg.Tuner.LNB)
		return err
	})

	v.Positive("pipeline.chunkSize", cfg.Pipeline.ChunkSize)
	v.Range("pipeline.batchFactor", cfg.Pipeline.BatchFactor, 1, 1024)
	v.NonNegativeDuration("pipeline.progressInterval", cfg.Pipeline.ProgressInterval)

	v.PositiveDuration("signal.pollInterval", cfg.Signal.PollInterval)

	v.NotEmpty("descrambler.bin", cfg.Descrambler.Bin)
	v.PositiveDuration("descrambler.killTimeout", cfg.Descrambler.KillTimeout)

	v.ParentDir("metrics.textfile", cfg.Metrics.Textfile)
	v.ListenAddr("metrics.listen", cfg.Metrics.Listen)

	return v.Err()
}
