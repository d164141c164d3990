// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tuner opens an ISDB tuner, tunes it to a channel and exposes the
// resulting transport stream together with its live signal quality.
package tuner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ManuGH/tsrec/internal/channel"
)

// ErrUnsupported is returned where no tuner driver exists for the platform.
var ErrUnsupported = errors.New("tuner: character device tuning is not supported on this platform")

// LNB selects the satellite dish converter supply voltage.
type LNB int

const (
	LNBOff LNB = iota
	LNB11V
	LNB15V
)

func (l LNB) String() string {
	switch l {
	case LNB11V:
		return "11v"
	case LNB15V:
		return "15v"
	default:
		return "off"
	}
}

// ParseLNB accepts "", "off", "11v", "15v" (case-insensitive).
func ParseLNB(s string) (LNB, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return LNBOff, nil
	case "11v", "11":
		return LNB11V, nil
	case "15v", "15":
		return LNB15V, nil
	default:
		return LNBOff, fmt.Errorf("invalid LNB setting %q (want off, 11v or 15v)", s)
	}
}

// Device is a tuned source. Reads yield the raw transport stream.
type Device interface {
	io.ReadCloser
	// SignalQuality returns the current carrier-to-noise ratio in dB.
	SignalQuality() (float64, error)
}

// Opener opens and tunes a device. Failures are tagged with
// diagnose.DomainDevice (open) or diagnose.DomainTune (channel, LNB).
type Opener interface {
	Open(ctx context.Context, device string, ch channel.Spec, lnb LNB) (Device, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, device string, ch channel.Spec, lnb LNB) (Device, error)

func (f OpenerFunc) Open(ctx context.Context, device string, ch channel.Spec, lnb LNB) (Device, error) {
	return f(ctx, device, ch, lnb)
}
