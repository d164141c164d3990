// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package recorder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sys/unix"

	"github.com/ManuGH/tsrec/internal/abort"
	"github.com/ManuGH/tsrec/internal/channel"
	"github.com/ManuGH/tsrec/internal/config"
	"github.com/ManuGH/tsrec/internal/descramble"
	"github.com/ManuGH/tsrec/internal/diagnose"
	"github.com/ManuGH/tsrec/internal/pipeline"
	"github.com/ManuGH/tsrec/internal/status"
	"github.com/ManuGH/tsrec/internal/tuner/tunertest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRecorder(t *testing.T, opener *tunertest.Opener, opts ...abort.Option) *Recorder {
	t.Helper()
	cfg := config.Defaults()
	cfg.Pipeline.ChunkSize = 188
	cfg.Pipeline.BatchFactor = 4
	cfg.Pipeline.ProgressInterval = 0
	cfg.Signal.PollInterval = 5 * time.Millisecond
	return &Recorder{
		Tuner:        opener,
		Descrambler:  descramble.Command{Bin: "cat", Args: []string{}},
		Config:       cfg,
		AbortOptions: append([]abort.Option{abort.WithSignals(syscall.SIGUSR1)}, opts...),
	}
}

func tsPackets(n int) []byte {
	buf := make([]byte, 0, n*188)
	for i := 0; i < n; i++ {
		p := make([]byte, 188)
		p[0] = 0x47
		p[1] = 0x01
		p[2] = 0x00
		p[3] = 0x10 | byte(i&0x0F)
		buf = append(buf, p...)
	}
	return buf
}

func requireBin(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestRecord_UndefinedChannelNeverOpensTuner(t *testing.T) {
	opener := &tunertest.Opener{}
	r := newRecorder(t, opener)
	out := filepath.Join(t.TempDir(), "out.ts")

	rep, err := r.Run(context.Background(), Record{
		Device:  "/dev/pt3video0",
		Channel: channel.Parse("nope"),
		Output:  out,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidChannel)
	var setup *SetupError
	require.ErrorAs(t, err, &setup)
	assert.Equal(t, diagnose.MsgChannelInvalid, setup.Diagnostic.Message)
	assert.Equal(t, 0, opener.Opens())
	assert.Equal(t, 1, ExitCode(err))
	assert.Equal(t, OutcomeSetupFailed, rep.OutcomeLabel(err))

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCheckSignal_UndefinedChannelNeverOpensTuner(t *testing.T) {
	opener := &tunertest.Opener{}
	r := newRecorder(t, opener)

	_, err := r.Run(context.Background(), CheckSignal{Device: "/dev/pt3video0", Channel: channel.Parse("")})

	assert.ErrorIs(t, err, ErrInvalidChannel)
	assert.Equal(t, 0, opener.Opens())
}

func TestRecord_ChannelNotReceivable(t *testing.T) {
	opener := &tunertest.Opener{Err: diagnose.Wrap(diagnose.DomainTune, unix.EAGAIN)}
	r := newRecorder(t, opener)
	out := filepath.Join(t.TempDir(), "out.ts")

	rep, err := r.Run(context.Background(), Record{
		Device:  "/dev/pt3video0",
		Channel: channel.Parse("T27"),
		Output:  out,
	})

	var setup *SetupError
	require.ErrorAs(t, err, &setup)
	assert.Equal(t, diagnose.MsgChannelNotReceivable, setup.Diagnostic.Message)
	assert.True(t, setup.Diagnostic.Actionable)
	assert.Equal(t, diagnose.DomainTune, setup.Domain)
	assert.Equal(t, 1, ExitCode(err))
	assert.Zero(t, rep.Outcome.Bytes)
	assert.Equal(t, 1, opener.Opens())

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "output is opened after the tuner")
}

func TestRecord_WithoutDecodeCopiesStream(t *testing.T) {
	payload := tsPackets(50)
	opener := &tunertest.Opener{Stream: bytes.NewReader(payload)}
	r := newRecorder(t, opener)
	tracker := &status.Tracker{}
	r.Status = tracker
	out := filepath.Join(t.TempDir(), "out.ts")

	rep, err := r.Run(context.Background(), Record{
		Device:  "/dev/pt3video0",
		Channel: channel.Parse("BS01_0"),
		Output:  out,
	})

	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusCompleted, rep.Outcome.Status)
	assert.Equal(t, int64(len(payload)), rep.Outcome.Bytes)
	assert.Equal(t, 0, ExitCode(err))
	assert.NotEmpty(t, rep.RunID)
	assert.True(t, opener.Device.Closed())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	snap := tracker.Snapshot()
	assert.Equal(t, status.StateFinished, snap.State)
	assert.Equal(t, "completed", snap.Outcome)
	assert.Equal(t, int64(len(payload)), snap.Bytes)
	assert.Equal(t, ModeRecord, snap.Mode)
}

func TestRecord_NonRegularOutputs(t *testing.T) {
	fifo := filepath.Join(t.TempDir(), "player.fifo")
	require.NoError(t, unix.Mkfifo(fifo, 0o600))

	for _, out := range []string{os.DevNull, fifo} {
		t.Run(filepath.Base(out), func(t *testing.T) {
			payload := tsPackets(50)
			opener := &tunertest.Opener{Stream: bytes.NewReader(payload)}
			r := newRecorder(t, opener)

			drained := make(chan int, 1)
			if out == fifo {
				go func() {
					f, err := os.Open(fifo)
					if err != nil {
						drained <- -1
						return
					}
					defer f.Close()
					n, _ := io.Copy(io.Discard, f)
					drained <- int(n)
				}()
			}

			rep, err := r.Run(context.Background(), Record{
				Device:  "/dev/pt3video0",
				Channel: channel.Parse("T27"),
				Output:  out,
			})

			require.NoError(t, err)
			assert.Equal(t, pipeline.StatusCompleted, rep.Outcome.Status)
			assert.Equal(t, int64(len(payload)), rep.Outcome.Bytes)
			assert.Equal(t, 0, ExitCode(err))
			if out == fifo {
				assert.Equal(t, len(payload), <-drained)
			}
		})
	}
}

func TestRecord_WithDecode(t *testing.T) {
	requireBin(t, "cat")

	payload := tsPackets(200)
	opener := &tunertest.Opener{Stream: bytes.NewReader(payload)}
	r := newRecorder(t, opener)
	out := filepath.Join(t.TempDir(), "out.ts")

	rep, err := r.Run(context.Background(), Record{
		Device:        "/dev/pt3video0",
		Channel:       channel.Parse("27"),
		DecodeEnabled: true,
		Output:        out,
	})

	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusCompleted, rep.Outcome.Status)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestRecord_PreTriggeredAbortWritesNothing(t *testing.T) {
	sig := abort.NewSignal()
	sig.Trigger(abort.ReasonInterrupt)

	opener := &tunertest.Opener{Stream: bytes.NewReader(tsPackets(10))}
	r := newRecorder(t, opener, abort.WithSignal(sig))
	out := filepath.Join(t.TempDir(), "out.ts")

	rep, err := r.Run(context.Background(), Record{
		Device:  "/dev/pt3video0",
		Channel: channel.Parse("T20"),
		Output:  out,
	})

	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusAborted, rep.Outcome.Status)
	assert.Equal(t, abort.ReasonInterrupt, rep.AbortReason)
	assert.Zero(t, rep.Outcome.Bytes)
	assert.Equal(t, 0, ExitCode(err))
}

// slowReader yields one packet per read forever.
type slowReader struct{ pkt []byte }

func (s slowReader) Read(p []byte) (int, error) {
	time.Sleep(time.Millisecond)
	return copy(p, s.pkt), nil
}

func TestRecord_ContextCancelAborts(t *testing.T) {
	opener := &tunertest.Opener{Stream: slowReader{pkt: tsPackets(1)}}
	r := newRecorder(t, opener)
	out := filepath.Join(t.TempDir(), "out.ts")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	rep, err := r.Run(ctx, Record{
		Device:  "/dev/pt3video0",
		Channel: channel.Parse("T20"),
		Output:  out,
	})

	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusAborted, rep.Outcome.Status)
	assert.Equal(t, abort.ReasonManual, rep.AbortReason)
	assert.Zero(t, rep.Outcome.Bytes%188)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, rep.Outcome.Bytes, info.Size())
}

func TestRecord_DurationElapses(t *testing.T) {
	opener := &tunertest.Opener{Stream: slowReader{pkt: tsPackets(1)}}
	r := newRecorder(t, opener)
	out := filepath.Join(t.TempDir(), "out.ts")

	rep, err := r.Run(context.Background(), Record{
		Device:   "/dev/pt3video0",
		Channel:  channel.Parse("T20"),
		Duration: 20 * time.Millisecond,
		Output:   out,
	})

	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusAborted, rep.Outcome.Status)
	assert.Equal(t, abort.ReasonTimer, rep.AbortReason)
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestRecord_ReadFailureKeepsWrittenBytes(t *testing.T) {
	payload := tsPackets(4)
	opener := &tunertest.Opener{Stream: &failingReader{data: payload, err: errors.New("device lost")}}
	r := newRecorder(t, opener)
	out := filepath.Join(t.TempDir(), "out.ts")

	rep, err := r.Run(context.Background(), Record{
		Device:  "/dev/pt3video0",
		Channel: channel.Parse("T20"),
		Output:  out,
	})

	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, int64(len(payload)), transferErr.Bytes)
	assert.Equal(t, pipeline.StatusFailed, rep.Outcome.Status)
	assert.Equal(t, 1, ExitCode(err))
	assert.Equal(t, "failed", rep.OutcomeLabel(err))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestRecord_OutputOpenFailure(t *testing.T) {
	opener := &tunertest.Opener{Stream: bytes.NewReader(tsPackets(1))}
	r := newRecorder(t, opener)
	out := filepath.Join(t.TempDir(), "missing", "out.ts")

	_, err := r.Run(context.Background(), Record{
		Device:  "/dev/pt3video0",
		Channel: channel.Parse("T20"),
		Output:  out,
	})

	var setup *SetupError
	require.ErrorAs(t, err, &setup)
	assert.Equal(t, diagnose.DomainSink, setup.Domain)
	assert.True(t, strings.HasPrefix(setup.Diagnostic.Message, "Failed to open output file: "))
	assert.True(t, opener.Device.Closed())
}

func TestRecord_DescramblerStartFailure(t *testing.T) {
	opener := &tunertest.Opener{Stream: bytes.NewReader(tsPackets(1))}
	r := newRecorder(t, opener)
	r.Descrambler = descramble.Command{Bin: filepath.Join(t.TempDir(), "no-such-descrambler")}
	out := filepath.Join(t.TempDir(), "out.ts")
	r.Config.Output.Atomic = true

	_, err := r.Run(context.Background(), Record{
		Device:        "/dev/pt3video0",
		Channel:       channel.Parse("T20"),
		DecodeEnabled: true,
		Output:        out,
	})

	var setup *SetupError
	require.ErrorAs(t, err, &setup)
	assert.Equal(t, diagnose.DomainDecode, setup.Domain)
	assert.True(t, opener.Device.Closed())

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "atomic output is discarded")
}

func TestRecord_Stats(t *testing.T) {
	payload := tsPackets(30)
	opener := &tunertest.Opener{Stream: bytes.NewReader(payload)}
	r := newRecorder(t, opener)
	r.Config.Output.Stats = true
	out := filepath.Join(t.TempDir(), "out.ts")

	rep, err := r.Run(context.Background(), Record{
		Device:  "/dev/pt3video0",
		Channel: channel.Parse("T20"),
		Output:  out,
	})

	require.NoError(t, err)
	require.NotNil(t, rep.Stats)
	assert.Equal(t, uint64(30), rep.Stats.Packets)
	assert.Equal(t, uint64(30), rep.Stats.PIDs[0x100])
	assert.Zero(t, rep.Stats.ContinuityErrors)
}

func TestDecode_File(t *testing.T) {
	requireBin(t, "cat")

	dir := t.TempDir()
	src := filepath.Join(dir, "in.ts")
	payload := tsPackets(120)
	require.NoError(t, os.WriteFile(src, payload, 0o600))
	out := filepath.Join(dir, "out.ts")

	r := newRecorder(t, &tunertest.Opener{})
	r.Config.Output.Atomic = true
	rep, err := r.Run(context.Background(), Decode{Source: src, Output: out})

	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusCompleted, rep.Outcome.Status)
	assert.Equal(t, out, rep.Output)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDecode_MissingSource(t *testing.T) {
	r := newRecorder(t, &tunertest.Opener{})
	dir := t.TempDir()

	_, err := r.Run(context.Background(), Decode{
		Source: filepath.Join(dir, "missing.ts"),
		Output: filepath.Join(dir, "out.ts"),
	})

	var setup *SetupError
	require.ErrorAs(t, err, &setup)
	assert.Equal(t, "Failed to open source file: no such file or directory", setup.Diagnostic.Message)
	assert.Equal(t, 1, ExitCode(err))
}

func TestDecode_DescramblerFailureIsTransferFailure(t *testing.T) {
	requireBin(t, "sh")
	requireBin(t, "head")

	dir := t.TempDir()
	src := filepath.Join(dir, "in.ts")
	require.NoError(t, os.WriteFile(src, tsPackets(10), 0o600))

	r := newRecorder(t, &tunertest.Opener{})
	r.Descrambler = descramble.Command{Bin: "sh", Args: []string{"-c", "head -c 376; exit 2"}}
	rep, err := r.Run(context.Background(), Decode{Source: src, Output: filepath.Join(dir, "out.ts")})

	var decErr *descramble.Error
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, 2, decErr.ExitCode)
	assert.Equal(t, int64(376), rep.Outcome.Bytes)
	assert.Equal(t, 1, ExitCode(err))
}

// syncBuffer guards a bytes.Buffer shared with the polling loop.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCheckSignal_PrintsUntilAborted(t *testing.T) {
	opener := &tunertest.Opener{Quality: 21.5}
	r := newRecorder(t, opener)
	stdout := &syncBuffer{}
	r.Stdout = stdout

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	rep, err := r.Run(ctx, CheckSignal{Device: "/dev/pt3video0", Channel: channel.Parse("BS03_1")})

	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusAborted, rep.Outcome.Status)
	assert.True(t, opener.Device.Closed())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.NotEmpty(t, lines)
	for _, l := range lines {
		assert.Equal(t, `{"signal_quality": 21.5}`, l)
	}
	assert.Equal(t, len(lines), opener.Device.Polls())
}

func TestCheckSignal_AbortedBeforeFirstPoll(t *testing.T) {
	sig := abort.NewSignal()
	sig.Trigger(abort.ReasonInterrupt)

	opener := &tunertest.Opener{Quality: 3}
	r := newRecorder(t, opener, abort.WithSignal(sig))
	var stdout bytes.Buffer
	r.Stdout = &stdout

	_, err := r.Run(context.Background(), CheckSignal{Device: "/dev/pt3video0", Channel: channel.Parse("CS4")})

	require.NoError(t, err)
	assert.Empty(t, stdout.String())
	assert.Zero(t, opener.Device.Polls())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(&SetupError{}))
	assert.Equal(t, 1, ExitCode(&TransferError{Err: io.ErrUnexpectedEOF}))
}
