// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package tuner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ManuGH/tsrec/internal/channel"
	"github.com/ManuGH/tsrec/internal/diagnose"
)

func TestChardev_MissingDevice(t *testing.T) {
	_, err := Chardev{}.Open(context.Background(), filepath.Join(t.TempDir(), "pt3video9"), channel.Parse("T27"), LNBOff)
	require.Error(t, err)

	var tagged *diagnose.Error
	require.True(t, errors.As(err, &tagged))
	assert.Equal(t, diagnose.DomainDevice, tagged.Domain)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestChardev_NotATuner(t *testing.T) {
	if _, err := os.Stat("/dev/null"); err != nil {
		t.Skip("/dev/null not available")
	}
	_, err := Chardev{}.Open(context.Background(), "/dev/null", channel.Parse("T27"), LNBOff)
	require.Error(t, err)

	var tagged *diagnose.Error
	require.True(t, errors.As(err, &tagged))
	assert.Equal(t, diagnose.DomainTune, tagged.Domain)
	assert.ErrorIs(t, err, unix.ENOTTY)
}

func TestChardev_UndefinedChannel(t *testing.T) {
	_, err := Chardev{}.Open(context.Background(), "/dev/null", channel.Parse("XYZ"), LNBOff)
	assert.Equal(t, diagnose.MsgChannelInvalid, diagnose.Classify(err).Message)
}

func TestChardev_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Chardev{}.Open(ctx, "/dev/null", channel.Parse("T27"), LNBOff)
	assert.ErrorIs(t, err, context.Canceled)
}
