// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tunertest provides an in-memory tuner for tests.
package tunertest

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/ManuGH/tsrec/internal/channel"
	"github.com/ManuGH/tsrec/internal/tuner"
)

// Opener records every Open call and hands out a Device backed by Stream.
type Opener struct {
	mu sync.Mutex

	// Err, when set, is returned by Open.
	Err error
	// Stream feeds the device; nil yields an empty stream.
	Stream io.Reader
	// Quality is returned by SignalQuality.
	Quality float64

	Calls  []Call
	Device *Device
}

type Call struct {
	Device  string
	Channel channel.Spec
	LNB     tuner.LNB
}

func (o *Opener) Open(_ context.Context, device string, ch channel.Spec, lnb tuner.LNB) (tuner.Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Calls = append(o.Calls, Call{Device: device, Channel: ch, LNB: lnb})
	if o.Err != nil {
		return nil, o.Err
	}
	src := o.Stream
	if src == nil {
		src = bytes.NewReader(nil)
	}
	o.Device = &Device{r: src, quality: o.Quality}
	return o.Device, nil
}

// Opens returns the number of Open calls.
func (o *Opener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Calls)
}

type Device struct {
	mu      sync.Mutex
	r       io.Reader
	quality float64
	polls   int
	closed  bool
}

func (d *Device) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

func (d *Device) SignalQuality() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.polls++
	return d.quality, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Device) Polls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polls
}
