// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package descramble interposes an external descrambler process between a
// scrambled transport stream and the copy loop. The stage is just another
// io.Reader to its consumer.
package descramble

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/tsrec/internal/log"
	"github.com/ManuGH/tsrec/internal/procgroup"
)

// Wrapper turns a scrambled stream into a clear one.
type Wrapper interface {
	Wrap(inner io.Reader, s Settings) (io.ReadCloser, error)
}

const (
	DefaultBin         = "b25"
	DefaultKillTimeout = 5 * time.Second
	feedChunk          = 188 * 1024
	stderrTail         = 32
)

// DefaultArgs targets an arib25-style command line tool.
var DefaultArgs = []string{"-r", "${round}", "-s", "${strip}", "-m", "${emm}", "-v", "${verbose}", "/dev/stdin", "/dev/stdout"}

// Command runs a descrambler binary that reads the scrambled stream on
// stdin and writes the clear stream to stdout. Args are expanded with
// ${round} ${strip} ${emm} ${simd} ${verbose} ${key0} ${key1}; arguments
// that expand to nothing are dropped.
type Command struct {
	Bin         string
	Args        []string
	KillTimeout time.Duration
}

// Argv returns the expanded argument list for s.
func (c Command) Argv(s Settings) []string {
	args := c.Args
	if args == nil {
		args = DefaultArgs
	}
	vars := s.vars()
	out := make([]string, 0, len(args))
	for _, a := range args {
		v := os.Expand(a, func(k string) string { return vars[k] })
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (c Command) Wrap(inner io.Reader, s Settings) (io.ReadCloser, error) {
	bin := c.Bin
	if bin == "" {
		bin = DefaultBin
	}
	killTimeout := c.KillTimeout
	if killTimeout <= 0 {
		killTimeout = DefaultKillTimeout
	}

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, &Error{Op: "start", ExitCode: -1, Err: err}
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		_ = stdinR.Close()
		_ = stdinW.Close()
		return nil, &Error{Op: "start", ExitCode: -1, Err: err}
	}

	ring := newLineRing(stderrTail)
	argv := c.Argv(s)
	cmd := exec.Command(bin, argv...) // #nosec G204 -- operator-configured binary
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = ring
	procgroup.Set(cmd)

	if err := cmd.Start(); err != nil {
		for _, f := range []*os.File{stdinR, stdinW, stdoutR, stdoutW} {
			_ = f.Close()
		}
		return nil, &Error{Op: "start", ExitCode: -1, Err: err}
	}
	// the child holds its own copies
	_ = stdinR.Close()
	_ = stdoutW.Close()

	st := &stream{
		cmd:         cmd,
		out:         stdoutR,
		in:          stdinW,
		ring:        ring,
		exited:      make(chan struct{}),
		killTimeout: killTimeout,
		logger:      log.WithComponent("descramble"),
	}

	st.logger.Debug().
		Str(log.FieldEvent, "descramble.start").
		Str("bin", bin).
		Strs("args", argv).
		Int(log.FieldPID, cmd.Process.Pid).
		Bool("working_key", s.WorkingKey != nil).
		Msg("descrambler started")

	st.g.Go(func() error {
		defer close(st.exited)
		st.exitErr = cmd.Wait()
		return nil
	})
	st.g.Go(func() error {
		return st.feed(inner)
	})
	return st, nil
}

type stream struct {
	cmd    *exec.Cmd
	out    *os.File
	in     *os.File
	ring   *lineRing
	logger zerolog.Logger

	g       errgroup.Group
	exited  chan struct{}
	exitErr error

	killTimeout time.Duration

	finishOnce sync.Once
	finishErr  error
	closeOnce  sync.Once
	closeErr   error
}

// feed copies the scrambled stream into the child's stdin. Only read
// errors of inner are reported; a write failure means the child stopped
// reading and its exit status tells why.
func (st *stream) feed(inner io.Reader) error {
	defer func() { _ = st.in.Close() }()

	buf := make([]byte, feedChunk)
	for {
		n, rerr := inner.Read(buf)
		if n > 0 {
			if _, werr := st.in.Write(buf[:n]); werr != nil {
				return nil
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return fmt.Errorf("source: %w", rerr)
		}
	}
}

func (st *stream) Read(p []byte) (int, error) {
	n, err := st.out.Read(p)
	if err != nil && errors.Is(err, io.EOF) {
		return n, st.finish()
	}
	return n, err
}

// finish runs once stdout is drained. A failed child wins over a source
// error because a dead descrambler also breaks the feeder.
func (st *stream) finish() error {
	st.finishOnce.Do(func() {
		<-st.exited
		if st.exitErr != nil {
			st.finishErr = st.decodeError(st.exitErr)
			return
		}
		if err := st.g.Wait(); err != nil {
			st.finishErr = err
			return
		}
		st.finishErr = io.EOF
	})
	return st.finishErr
}

func (st *stream) decodeError(err error) *Error {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	tail := st.ring.Last(stderrTail)
	st.logger.Warn().
		Str(log.FieldEvent, "descramble.exit").
		Int("exit_code", code).
		Strs("stderr", tail).
		Msg("descrambler exited with failure")
	return &Error{Op: "exit", ExitCode: code, Stderr: tail, Err: err}
}

// Close stops the child if it is still running and releases the pipes.
// The feeder may stay blocked on a read of the wrapped stream until the
// caller closes that stream.
func (st *stream) Close() error {
	st.closeOnce.Do(func() {
		_ = st.in.Close()

		select {
		case <-st.exited:
		default:
			waitCh := make(chan error, 1)
			go func() {
				<-st.exited
				waitCh <- st.exitErr
			}()
			// a terminated child is expected here, not a failure
			_ = procgroup.Terminate(st.cmd, waitCh, st.killTimeout)
		}
		st.closeErr = st.out.Close()
	})
	return st.closeErr
}
