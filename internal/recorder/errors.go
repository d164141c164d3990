// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recorder

import (
	"errors"
	"fmt"

	"github.com/ManuGH/tsrec/internal/diagnose"
)

// ErrInvalidChannel is returned before any hardware is touched when the
// channel string does not name a known channel.
var ErrInvalidChannel = errors.New("invalid channel")

// SetupError reports a failure before the copy loop started.
type SetupError struct {
	Stage      string
	Domain     diagnose.Domain
	Diagnostic diagnose.Diagnostic
	Err        error
}

func (e *SetupError) Error() string {
	return e.Diagnostic.Message
}

func (e *SetupError) Unwrap() error { return e.Err }

// TransferError reports a copy that stopped on a read, write or flush
// failure. Bytes written before the failure stay in the sink.
type TransferError struct {
	Bytes int64
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed after %d bytes: %v", e.Bytes, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ExitCode maps the result of Run to a process exit status: 0 when the
// stream ended or was aborted, 1 for every failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
