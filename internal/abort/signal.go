// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package abort unifies a recording deadline and process interrupts into a
// single one-way abort flag observed by the copy loop.
package abort

import (
	"sync/atomic"

	"github.com/ManuGH/tsrec/internal/metrics"
)

// Reason records what requested the abort.
type Reason int32

const (
	ReasonNone Reason = iota
	ReasonTimer
	ReasonInterrupt
	ReasonManual
)

func (r Reason) String() string {
	switch r {
	case ReasonTimer:
		return "timer"
	case ReasonInterrupt:
		return "interrupt"
	case ReasonManual:
		return "manual"
	default:
		return "none"
	}
}

// Signal is a flag that moves from running to abort-requested exactly once.
// The zero value is not usable; call NewSignal.
type Signal struct {
	reason atomic.Int32
	done   chan struct{}
}

func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Trigger requests an abort. Only the first call wins and returns true;
// later calls, concurrent or not, are no-ops.
func (s *Signal) Trigger(r Reason) bool {
	if r == ReasonNone {
		r = ReasonManual
	}
	if !s.reason.CompareAndSwap(int32(ReasonNone), int32(r)) {
		return false
	}
	close(s.done)
	metrics.IncAbort(r.String())
	return true
}

// Triggered reports whether an abort has been requested.
func (s *Signal) Triggered() bool {
	return Reason(s.reason.Load()) != ReasonNone
}

// Done is closed on the first Trigger.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Reason returns the winning trigger, or ReasonNone while running.
func (s *Signal) Reason() Reason {
	return Reason(s.reason.Load())
}
