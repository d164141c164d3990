// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recorder

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tsrec/internal/abort"
	"github.com/ManuGH/tsrec/internal/log"
	"github.com/ManuGH/tsrec/internal/metrics"
	"github.com/ManuGH/tsrec/internal/pipeline"
	"github.com/ManuGH/tsrec/internal/status"
)

const defaultPollInterval = time.Second

// checkSignal polls the tuned device until interrupted. Each poll prints
// one JSON line to stdout.
func (r *Recorder) checkSignal(ctx context.Context, logger zerolog.Logger, m CheckSignal, rep *Report) error {
	if err := r.validateChannel(logger, m.Channel); err != nil {
		return err
	}
	r.logTarget(logger, m.Device, m.Channel)

	dev, err := r.Tuner.Open(ctx, m.Device, m.Channel, m.LNB)
	if err != nil {
		return r.setupFailure(logger, "tune", err)
	}
	defer func() { _ = dev.Close() }()

	interval := r.Config.Signal.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	// no deadline: only an interrupt or ctx ends the loop
	ctl := abort.Arm(0, r.AbortOptions...)
	defer ctl.Disarm()
	sig := ctl.Signal()
	stop := context.AfterFunc(ctx, func() { sig.Trigger(abort.ReasonManual) })
	defer stop()

	r.track(func(s *status.Snapshot) {
		s.State = status.StateRunning
		s.Channel = m.Channel.String()
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	out := r.stdout()
	for {
		select {
		case <-sig.Done():
		case <-ticker.C:
		}
		if sig.Triggered() {
			rep.Outcome = pipeline.Outcome{Status: pipeline.StatusAborted}
			rep.AbortReason = sig.Reason()
			logger.Info().
				Str(log.FieldEvent, "recorder.outcome").
				Str(log.FieldReason, rep.AbortReason.String()).
				Msg("Signal check stopped.")
			return nil
		}

		q, err := dev.SignalQuality()
		if err != nil {
			rep.Outcome = pipeline.Outcome{Status: pipeline.StatusFailed, Err: err}
			logger.Error().
				Err(err).
				Str(log.FieldEvent, "recorder.signal.failed").
				Msg("Failed to read signal quality.")
			return &TransferError{Err: err}
		}
		metrics.SetSignalQuality(q)
		r.track(func(s *status.Snapshot) { s.SignalQuality = &q })
		logger.Debug().
			Str(log.FieldEvent, "recorder.signal").
			Float64(log.FieldSignalQuality, q).
			Msg("signal quality")

		if _, err := fmt.Fprintf(out, "{\"signal_quality\": %s}\n", strconv.FormatFloat(q, 'f', -1, 64)); err != nil {
			rep.Outcome = pipeline.Outcome{Status: pipeline.StatusFailed, Err: err}
			return &TransferError{Err: fmt.Errorf("stdout: %w", err)}
		}
	}
}
