// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recorder

import (
	"time"

	"github.com/ManuGH/tsrec/internal/channel"
	"github.com/ManuGH/tsrec/internal/descramble"
	"github.com/ManuGH/tsrec/internal/tuner"
)

// Mode names used in logs, metrics and the status endpoint.
const (
	ModeRecord      = "record"
	ModeDecode      = "decode"
	ModeCheckSignal = "checksignal"
)

// Mode is one of Record, Decode or CheckSignal.
type Mode interface {
	Name() string
	isMode()
}

// Record tunes a device and copies its stream to Output, descrambling it
// unless DecodeEnabled is false. A zero Duration records until interrupted
// or until the device stops producing data.
type Record struct {
	Device        string
	Channel       channel.Spec
	LNB           tuner.LNB
	Duration      time.Duration
	DecodeEnabled bool
	Keys          *descramble.KeyPair
	Output        string
}

// Decode descrambles a recorded file.
type Decode struct {
	Source string
	Keys   *descramble.KeyPair
	Output string
}

// CheckSignal tunes a device and prints its signal quality once per poll
// interval until interrupted.
type CheckSignal struct {
	Device  string
	Channel channel.Spec
	LNB     tuner.LNB
}

func (Record) Name() string      { return ModeRecord }
func (Decode) Name() string      { return ModeDecode }
func (CheckSignal) Name() string { return ModeCheckSignal }

func (Record) isMode()      {}
func (Decode) isMode()      {}
func (CheckSignal) isMode() {}
