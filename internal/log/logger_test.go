// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_WritesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "tsrec-test", Version: "v0.0.1"})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("pipeline")
	l.Debug().Str(FieldEvent, "test.event").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tsrec-test", entry["service"])
	assert.Equal(t, "v0.0.1", entry["version"])
	assert.Equal(t, "pipeline", entry[FieldComponent])
	assert.Equal(t, "test.event", entry[FieldEvent])
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestConfigure_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "shouting", Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestDerive_AppliesBuilder(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	l := Derive(func(c *zerolog.Context) {
		*c = c.Str(FieldDevice, "/dev/pt3video0")
	})
	l.Info().Msg("derived")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "/dev/pt3video0", entry[FieldDevice])
}
