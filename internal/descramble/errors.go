// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package descramble

import (
	"fmt"
	"strings"
)

// Error is a failure of the descrambling stage itself, distinct from I/O
// errors of the stream it wraps.
type Error struct {
	Op       string // "start" or "exit"
	ExitCode int    // -1 when not applicable
	Stderr   []string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("descrambler ")
	b.WriteString(e.Op)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " (exit status %d)", e.ExitCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Stderr) > 0 {
		b.WriteString(": ")
		b.WriteString(e.Stderr[len(e.Stderr)-1])
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }
