// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package streamio opens the byte-stream endpoints of a run: a file or
// stdin source and a stdout, plain file or atomically published sink.
package streamio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/tsrec/internal/diagnose"
)

// Stdio is the path alias for stdin / stdout.
const Stdio = "-"

// IsStdio reports whether path designates a standard stream.
func IsStdio(path string) bool {
	return path == "" || path == Stdio
}

// OpenInput opens a recorded stream. Failures carry diagnose.DomainSource.
func OpenInput(path string) (io.ReadCloser, error) {
	if IsStdio(path) {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path) // #nosec G304 -- operator-supplied input path
	if err != nil {
		return nil, diagnose.Wrap(diagnose.DomainSource, err)
	}
	return f, nil
}

// Output is a sink that must be finished with Commit or Discard.
type Output struct {
	path    string
	w       io.Writer
	file    *os.File
	pending *renameio.PendingFile
	durable bool
	done    bool
}

// OpenOutput opens the sink for path. With atomic set, a regular file sink
// is written to a temporary file and only appears at path on Commit.
// Existing devices and FIFOs are always written in place and never synced.
// Failures carry diagnose.DomainSink.
func OpenOutput(path string, atomic bool) (*Output, error) {
	if IsStdio(path) {
		return &Output{path: Stdio, w: os.Stdout}, nil
	}
	if fi, err := os.Stat(path); err == nil && !fi.Mode().IsRegular() {
		atomic = false
	}
	if atomic {
		pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
		if err != nil {
			return nil, diagnose.Wrap(diagnose.DomainSink, err)
		}
		return &Output{path: path, w: pf, pending: pf, durable: true}, nil
	}
	// #nosec G302 G304 -- recordings are meant to be world-readable
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, diagnose.Wrap(diagnose.DomainSink, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, diagnose.Wrap(diagnose.DomainSink, err)
	}
	return &Output{path: path, w: f, file: f, durable: fi.Mode().IsRegular()}, nil
}

// Path is "-" for stdout.
func (o *Output) Path() string { return o.path }

func (o *Output) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

// Flush makes written bytes durable for regular file sinks. fsync is
// rejected on pipes and character devices, so those are left alone.
func (o *Output) Flush() error {
	if !o.durable {
		return nil
	}
	switch {
	case o.pending != nil:
		return o.pending.Sync()
	case o.file != nil:
		return o.file.Sync()
	default:
		return nil
	}
}

// Commit finishes the sink. Atomic sinks are renamed into place.
func (o *Output) Commit() error {
	if o.done {
		return nil
	}
	o.done = true
	switch {
	case o.pending != nil:
		if err := o.pending.CloseAtomicallyReplace(); err != nil {
			_ = o.pending.Cleanup()
			return fmt.Errorf("publish %s: %w", o.path, err)
		}
	case o.file != nil:
		if err := o.file.Close(); err != nil {
			return fmt.Errorf("close %s: %w", o.path, err)
		}
	}
	return nil
}

// Discard drops an atomic sink without publishing it. A plain file sink
// is closed and left in place.
func (o *Output) Discard() error {
	if o.done {
		return nil
	}
	o.done = true
	switch {
	case o.pending != nil:
		return o.pending.Cleanup()
	case o.file != nil:
		if err := o.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			return err
		}
	}
	return nil
}
