// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/tsrec/internal/descramble"
	"github.com/ManuGH/tsrec/internal/pipeline"
)

// Defaults returns the built-in configuration.
func Defaults() Config {
	args := make([]string, len(descramble.DefaultArgs))
	copy(args, descramble.DefaultArgs)

	return Config{
		LogLevel:  "info",
		LogFormat: "json",
		Tuner: TunerConfig{
			LNB: "off",
		},
		Pipeline: PipelineConfig{
			ChunkSize:        pipeline.DefaultChunkSize,
			BatchFactor:      pipeline.DefaultBatchFactor,
			ProgressInterval: 30 * time.Second,
		},
		Signal: SignalConfig{
			PollInterval: time.Second,
		},
		Descrambler: DescramblerConfig{
			Bin:         descramble.DefaultBin,
			Args:        args,
			KillTimeout: descramble.DefaultKillTimeout,
		},
	}
}
