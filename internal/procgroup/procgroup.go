// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts helper processes in their own process group so
// the whole tree can be signalled at once.
package procgroup

import (
	"errors"
	"os/exec"
)

var ErrNotStarted = errors.New("process not started")

// Set configures the command to start in a new process group.
// Mandatory for Kill and Terminate to reach grandchildren.
func Set(cmd *exec.Cmd) {
	set(cmd)
}
