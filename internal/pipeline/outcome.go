// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import "fmt"

// Status is the terminal state of a copy.
type Status int

const (
	StatusCompleted Status = iota + 1 // source reached end of stream
	StatusAborted                     // abort requested, stopped at a chunk boundary
	StatusFailed                      // read, write or flush error
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusAborted:
		return "aborted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome reports how a copy ended. Bytes counts only bytes fully
// accepted by the sink; Err is set only for StatusFailed.
type Outcome struct {
	Status Status
	Bytes  int64
	Err    error
}

func completed(n int64) Outcome         { return Outcome{Status: StatusCompleted, Bytes: n} }
func aborted(n int64) Outcome           { return Outcome{Status: StatusAborted, Bytes: n} }
func failed(n int64, err error) Outcome { return Outcome{Status: StatusFailed, Bytes: n, Err: err} }

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s after %d bytes: %v", o.Status, o.Bytes, o.Err)
	}
	return fmt.Sprintf("%s (%d bytes)", o.Status, o.Bytes)
}
