// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithRunID(t *testing.T) {
	tests := []struct {
		name  string
		ctx   context.Context
		runID string
		want  string
	}{
		{name: "nil context", ctx: nil, runID: "run-123", want: "run-123"},
		{name: "background context", ctx: context.Background(), runID: "run-456", want: "run-456"},
		{name: "empty run ID", ctx: context.Background(), runID: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRunID(tt.ctx, tt.runID)
			assert.Equal(t, tt.want, RunIDFromContext(ctx))
		})
	}
}

func TestFromContext_NilAndMissing(t *testing.T) {
	assert.Equal(t, "", RunIDFromContext(nil))
	assert.Equal(t, "", ModeFromContext(context.Background()))
}

func TestNewRunID_IsUUID(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewRunID())
}

func TestWithContext_AddsRunFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithMode(ContextWithRunID(context.Background(), "abc"), "record")
	l := WithContext(ctx, logger)
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc", entry[FieldRunID])
	assert.Equal(t, "record", entry[FieldMode])
}

func TestWithContext_NoFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	l := WithContext(context.Background(), logger)
	l.Info().Msg("plain")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, hasRun := entry[FieldRunID]
	assert.False(t, hasRun)
}
