// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package recorder wires a tuner or file source, an optional descrambler
// and an output sink into one cancellable copy, and reports how it ended.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tsrec/internal/abort"
	"github.com/ManuGH/tsrec/internal/channel"
	"github.com/ManuGH/tsrec/internal/config"
	"github.com/ManuGH/tsrec/internal/descramble"
	"github.com/ManuGH/tsrec/internal/diagnose"
	"github.com/ManuGH/tsrec/internal/log"
	"github.com/ManuGH/tsrec/internal/metrics"
	"github.com/ManuGH/tsrec/internal/pipeline"
	"github.com/ManuGH/tsrec/internal/status"
	"github.com/ManuGH/tsrec/internal/streamio"
	"github.com/ManuGH/tsrec/internal/tsstat"
	"github.com/ManuGH/tsrec/internal/tuner"
)

// Recorder runs one mode at a time.
type Recorder struct {
	Tuner       tuner.Opener
	Descrambler descramble.Wrapper
	Config      config.Config

	// Stdout receives the CheckSignal lines. Nil means os.Stdout.
	Stdout io.Writer
	// Status, when set, mirrors the run for the status endpoint.
	Status *status.Tracker
	// AbortOptions are passed to abort.Arm for every run.
	AbortOptions []abort.Option
}

// New returns a Recorder driving the character device tuner and the
// configured descrambler command.
func New(cfg config.Config) *Recorder {
	return &Recorder{
		Tuner: tuner.Chardev{},
		Descrambler: descramble.Command{
			Bin:         cfg.Descrambler.Bin,
			Args:        cfg.Descrambler.Args,
			KillTimeout: cfg.Descrambler.KillTimeout,
		},
		Config: cfg,
	}
}

// Run executes m until its stream ends, it is aborted or it fails.
// Setup failures are returned as *SetupError, copy failures as
// *TransferError. Cancelling ctx aborts the copy at the next chunk.
func (r *Recorder) Run(ctx context.Context, m Mode) (Report, error) {
	runID := log.RunIDFromContext(ctx)
	if runID == "" {
		runID = log.NewRunID()
		ctx = log.ContextWithRunID(ctx, runID)
	}
	ctx = log.ContextWithMode(ctx, m.Name())
	logger := log.WithComponentFromContext(ctx, "recorder")

	rep := Report{RunID: runID, Mode: m.Name(), StartedAt: time.Now()}
	r.track(func(s *status.Snapshot) {
		*s = status.Snapshot{
			RunID:     runID,
			Mode:      m.Name(),
			State:     status.StateStarting,
			StartedAt: rep.StartedAt,
		}
	})

	var err error
	switch m := m.(type) {
	case Record:
		err = r.record(ctx, logger, m, &rep)
	case Decode:
		err = r.decode(ctx, logger, m, &rep)
	case CheckSignal:
		err = r.checkSignal(ctx, logger, m, &rep)
	default:
		err = fmt.Errorf("recorder: unsupported mode %T", m)
	}
	rep.Duration = time.Since(rep.StartedAt)

	r.finish(logger, &rep, err)
	return rep, err
}

func (r *Recorder) record(ctx context.Context, logger zerolog.Logger, m Record, rep *Report) error {
	if err := r.validateChannel(logger, m.Channel); err != nil {
		return err
	}
	r.logTarget(logger, m.Device, m.Channel)
	if m.DecodeEnabled {
		logger.Info().Str(log.FieldEvent, "recorder.decode").Bool(log.FieldDecode, true).Msg("Decode: Enabled")
	} else {
		logger.Info().Str(log.FieldEvent, "recorder.decode").Bool(log.FieldDecode, false).Msg("Decode: Disabled")
	}
	if m.Duration > 0 {
		logger.Info().
			Str(log.FieldEvent, "recorder.duration").
			Dur(log.FieldDuration, m.Duration).
			Msgf("Recording duration: %g seconds", m.Duration.Seconds())
	} else {
		logger.Info().Str(log.FieldEvent, "recorder.duration").Msg("Recording duration: Infinite")
	}

	dev, err := r.Tuner.Open(ctx, m.Device, m.Channel, m.LNB)
	if err != nil {
		return r.setupFailure(logger, "tune", err)
	}
	defer func() { _ = dev.Close() }()

	out, err := streamio.OpenOutput(m.Output, r.Config.Output.Atomic)
	if err != nil {
		return r.setupFailure(logger, "output", err)
	}
	rep.Output = out.Path()

	var src io.Reader = dev
	if m.DecodeEnabled {
		dec, err := r.Descrambler.Wrap(dev, descramble.DefaultSettings(m.Keys))
		if err != nil {
			_ = out.Discard()
			return r.setupFailure(logger, "descramble", diagnose.Wrap(diagnose.DomainDecode, err))
		}
		// closed before the tuner so the descrambler stops first
		defer func() { _ = dec.Close() }()
		src = dec
	}

	ctl := abort.Arm(m.Duration, r.AbortOptions...)
	defer ctl.Disarm()

	r.track(func(s *status.Snapshot) {
		s.State = status.StateRunning
		s.Channel = m.Channel.String()
		s.Output = out.Path()
	})
	logger.Info().Str(log.FieldEvent, "recorder.start").Str(log.FieldOutput, out.Path()).Msg("Recording...")
	return r.transfer(ctx, logger, src, out, ctl.Signal(), rep)
}

func (r *Recorder) decode(ctx context.Context, logger zerolog.Logger, m Decode, rep *Report) error {
	logger.Info().
		Str(log.FieldEvent, "recorder.source").
		Str(log.FieldSource, m.Source).
		Msgf("Source: %s", m.Source)

	in, err := streamio.OpenInput(m.Source)
	if err != nil {
		return r.setupFailure(logger, "source", err)
	}
	defer func() { _ = in.Close() }()

	out, err := streamio.OpenOutput(m.Output, r.Config.Output.Atomic)
	if err != nil {
		return r.setupFailure(logger, "output", err)
	}
	rep.Output = out.Path()

	dec, err := r.Descrambler.Wrap(in, descramble.DefaultSettings(m.Keys))
	if err != nil {
		_ = out.Discard()
		return r.setupFailure(logger, "descramble", diagnose.Wrap(diagnose.DomainDecode, err))
	}
	defer func() { _ = dec.Close() }()

	ctl := abort.Arm(0, r.AbortOptions...)
	defer ctl.Disarm()

	r.track(func(s *status.Snapshot) {
		s.State = status.StateRunning
		s.Output = out.Path()
	})
	logger.Info().Str(log.FieldEvent, "recorder.start").Str(log.FieldOutput, out.Path()).Msg("Decoding...")
	return r.transfer(ctx, logger, dec, out, ctl.Signal(), rep)
}

// transfer runs the copy loop, publishes the sink and logs the outcome.
func (r *Recorder) transfer(ctx context.Context, logger zerolog.Logger, src io.Reader, out *streamio.Output, sig *abort.Signal, rep *Report) error {
	stop := context.AfterFunc(ctx, func() { sig.Trigger(abort.ReasonManual) })
	defer stop()

	var dst io.Writer = out
	var stats *tsstat.Writer
	if r.Config.Output.Stats {
		stats = tsstat.NewWriter(out)
		dst = stats
	}

	o := pipeline.Copy(src, dst, sig, r.copyOptions(rep.Mode)...)
	if err := out.Commit(); err != nil {
		o = pipeline.Outcome{Status: pipeline.StatusFailed, Bytes: o.Bytes, Err: errors.Join(o.Err, err)}
	}
	rep.Outcome = o
	rep.AbortReason = sig.Reason()

	if stats != nil {
		s := stats.Stats()
		rep.Stats = &s
		metrics.AddStreamStats(s.Packets, s.SyncLosses, s.ContinuityErrors)
		logger.Info().
			Str(log.FieldEvent, "recorder.stats").
			Uint64("packets", s.Packets).
			Uint64("null_packets", s.NullPackets).
			Uint64("sync_losses", s.SyncLosses).
			Uint64("cc_errors", s.ContinuityErrors).
			Ints("top_pids", s.TopPIDs(8)).
			Msg("stream statistics")
	}

	switch o.Status {
	case pipeline.StatusCompleted:
		logger.Info().
			Str(log.FieldEvent, "recorder.outcome").
			Str(log.FieldOutcome, o.Status.String()).
			Int64(log.FieldBytes, o.Bytes).
			Msg("Stream has gracefully reached its end.")
		return nil
	case pipeline.StatusAborted:
		logger.Info().
			Str(log.FieldEvent, "recorder.outcome").
			Str(log.FieldOutcome, o.Status.String()).
			Str(log.FieldReason, rep.AbortReason.String()).
			Int64(log.FieldBytes, o.Bytes).
			Msg("Recording aborted.")
		return nil
	default:
		logger.Error().
			Err(o.Err).
			Str(log.FieldEvent, "recorder.outcome").
			Str(log.FieldOutcome, o.Status.String()).
			Int64(log.FieldBytes, o.Bytes).
			Msg("Transfer failed.")
		return &TransferError{Bytes: o.Bytes, Err: o.Err}
	}
}

func (r *Recorder) copyOptions(mode string) []pipeline.Option {
	p := r.Config.Pipeline
	return []pipeline.Option{
		pipeline.WithMode(mode),
		pipeline.WithChunkSize(p.ChunkSize),
		pipeline.WithBatchFactor(p.BatchFactor),
		pipeline.WithProgressInterval(p.ProgressInterval),
		pipeline.WithProgress(func(pr pipeline.Progress) {
			now := time.Now()
			r.track(func(s *status.Snapshot) {
				s.Bytes = pr.Bytes
				s.Chunks = pr.Chunks
				s.LastProgress = now
			})
		}),
	}
}

func (r *Recorder) validateChannel(logger zerolog.Logger, ch channel.Spec) error {
	if err := ch.Validate(); err != nil {
		d := diagnose.Diagnostic{Message: diagnose.MsgChannelInvalid, Actionable: true, Fatal: true}
		logger.Error().
			Str(log.FieldEvent, "recorder.channel.invalid").
			Str(log.FieldChannel, ch.Raw).
			Msg(d.Message)
		return &SetupError{
			Stage:      "validate",
			Domain:     diagnose.DomainTune,
			Diagnostic: d,
			Err:        fmt.Errorf("%w %q: %w", ErrInvalidChannel, ch.Raw, err),
		}
	}
	return nil
}

func (r *Recorder) logTarget(logger zerolog.Logger, device string, ch channel.Spec) {
	logger.Info().
		Str(log.FieldEvent, "recorder.tuner").
		Str(log.FieldDevice, device).
		Msgf("Tuner: %s", device)
	logger.Info().
		Str(log.FieldEvent, "recorder.channel").
		Str(log.FieldChannel, ch.Raw).
		Str(log.FieldChannelType, ch.Type.String()).
		Msgf("Channel: %s", ch)
}

// setupFailure classifies err, counts it and logs the operator message.
func (r *Recorder) setupFailure(logger zerolog.Logger, stage string, err error) *SetupError {
	d := diagnose.Classify(err)
	domain := diagnose.DomainUnknown
	var tagged *diagnose.Error
	if errors.As(err, &tagged) {
		domain = tagged.Domain
	}
	metrics.IncSetupFailure(domain.String())

	logger.Error().
		Err(err).
		Str(log.FieldEvent, "recorder.setup.failed").
		Str("stage", stage).
		Str("domain", domain.String()).
		Bool("actionable", d.Actionable).
		Msg(d.Message)
	return &SetupError{Stage: stage, Domain: domain, Diagnostic: d, Err: err}
}

func (r *Recorder) finish(logger zerolog.Logger, rep *Report, err error) {
	label := rep.OutcomeLabel(err)
	metrics.ObserveRun(rep.Mode, label, rep.Duration)

	r.track(func(s *status.Snapshot) {
		s.State = status.StateFinished
		s.Outcome = label
		s.Bytes = rep.Outcome.Bytes
		if err != nil {
			s.Error = err.Error()
		}
	})

	if path := r.Config.Metrics.Textfile; path != "" {
		if werr := metrics.WriteTextfile(path); werr != nil {
			logger.Warn().
				Err(werr).
				Str(log.FieldEvent, "metrics.textfile.failed").
				Str(log.FieldPath, path).
				Msg("failed to write metrics textfile")
		}
	}

	logger.Info().
		Str(log.FieldEvent, "recorder.finished").
		Str(log.FieldOutcome, label).
		Int64(log.FieldBytes, rep.Outcome.Bytes).
		Dur(log.FieldDuration, rep.Duration).
		Msg("Finished.")
}

func (r *Recorder) track(fn func(*status.Snapshot)) {
	if r.Status != nil {
		r.Status.Update(fn)
	}
}

func (r *Recorder) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}
