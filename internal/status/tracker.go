// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package status exposes the state of the current run over HTTP.
package status

import (
	"sync"
	"time"

	"github.com/ManuGH/tsrec/internal/health"
)

// Run state values.
const (
	StateStarting = "starting"
	StateRunning  = "running"
	StateFinished = "finished"
)

// Snapshot is the JSON body of /status.
type Snapshot struct {
	RunID         string    `json:"run_id"`
	Mode          string    `json:"mode"`
	State         string    `json:"state"`
	Channel       string    `json:"channel,omitempty"`
	Output        string    `json:"output,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	Bytes         int64     `json:"bytes"`
	Chunks        int64     `json:"chunks"`
	LastProgress  time.Time `json:"last_progress,omitzero"`
	SignalQuality *float64  `json:"signal_quality,omitempty"`
	Outcome       string    `json:"outcome,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Tracker holds the latest snapshot. The zero value is ready to use.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// Update applies fn to the snapshot under the lock.
func (t *Tracker) Update(fn func(*Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.snap)
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.snap
	if s.SignalQuality != nil {
		q := *s.SignalQuality
		s.SignalQuality = &q
	}
	return s
}

// Progress feeds health.StallChecker.
func (t *Tracker) Progress() health.Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return health.Progress{
		Running:      t.snap.State == StateRunning,
		StartedAt:    t.snap.StartedAt,
		LastProgress: t.snap.LastProgress,
	}
}
