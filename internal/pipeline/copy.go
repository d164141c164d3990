// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pipeline moves a transport stream from a source to a sink in
// large chunks, stopping cleanly at a chunk boundary when asked to.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/ManuGH/tsrec/internal/abort"
	"github.com/ManuGH/tsrec/internal/log"
	"github.com/ManuGH/tsrec/internal/metrics"
)

const (
	DefaultChunkSize   = 20000
	DefaultBatchFactor = 40
)

// Flusher is implemented by sinks that buffer internally.
type Flusher interface {
	Flush() error
}

// Progress is handed to the observer after every written chunk.
type Progress struct {
	Bytes   int64
	Chunks  int64
	Elapsed time.Duration
}

type options struct {
	chunkSize        int
	batchFactor      int
	mode             string
	progress         func(Progress)
	progressInterval time.Duration
}

type Option func(*options)

// WithChunkSize sets the base chunk size. Non-positive values are ignored.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithBatchFactor sets how many base chunks make up one read buffer.
func WithBatchFactor(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchFactor = n
		}
	}
}

// WithMode labels metrics and log lines.
func WithMode(mode string) Option {
	return func(o *options) { o.mode = mode }
}

func WithProgress(fn func(Progress)) Option {
	return func(o *options) { o.progress = fn }
}

// WithProgressInterval throttles the progress log line. Zero disables it.
func WithProgressInterval(d time.Duration) Option {
	return func(o *options) { o.progressInterval = d }
}

// BufferSize returns the read buffer size the options resolve to.
func BufferSize(opts ...Option) int {
	o := resolve(opts)
	return o.chunkSize * o.batchFactor
}

func resolve(opts []Option) options {
	o := options{
		chunkSize:        DefaultChunkSize,
		batchFactor:      DefaultBatchFactor,
		mode:             "unknown",
		progressInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Copy reads src into a chunkSize×batchFactor buffer and writes each read
// in full to dst until src ends, an error occurs, or sig is triggered.
// The abort flag is checked before every read, so at most one in-flight
// chunk is written after an abort is requested. A blocking read is not
// interrupted. Sinks implementing Flusher are flushed on abort, on end of
// stream and after a read error. sig may be nil for an unabortable copy.
func Copy(src io.Reader, dst io.Writer, sig *abort.Signal, opts ...Option) Outcome {
	o := resolve(opts)
	buf := make([]byte, o.chunkSize*o.batchFactor)

	logger := log.WithComponent("pipeline")
	progressLog := rate.Sometimes{First: 1, Interval: o.progressInterval}

	start := time.Now()
	var written, chunks int64

	for {
		if sig != nil && sig.Triggered() {
			if err := flush(dst); err != nil {
				return failed(written, err)
			}
			return aborted(written)
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := writeFull(dst, buf[:n])
			written += int64(w)
			if werr != nil {
				metrics.AddBytes(o.mode, w)
				return failed(written, fmt.Errorf("write: %w", werr))
			}
			chunks++
			metrics.AddTransfer(o.mode, w)

			p := Progress{Bytes: written, Chunks: chunks, Elapsed: time.Since(start)}
			if o.progress != nil {
				o.progress(p)
			}
			if o.progressInterval > 0 {
				progressLog.Do(func() {
					logger.Debug().
						Str(log.FieldEvent, "pipeline.progress").
						Str(log.FieldMode, o.mode).
						Int64(log.FieldBytes, p.Bytes).
						Int64(log.FieldChunks, p.Chunks).
						Dur(log.FieldDuration, p.Elapsed).
						Msg("transfer progress")
				})
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				if err := flush(dst); err != nil {
					return failed(written, err)
				}
				return completed(written)
			}
			// bytes already accepted by the sink are flushed, not dropped
			return failed(written, errors.Join(fmt.Errorf("read: %w", rerr), flush(dst)))
		}
	}
}

func writeFull(dst io.Writer, p []byte) (int, error) {
	n, err := dst.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if n > len(p) {
		n = len(p)
	}
	return n, err
}

func flush(dst io.Writer) error {
	f, ok := dst.(Flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
