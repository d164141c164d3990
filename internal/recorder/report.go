// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recorder

import (
	"errors"
	"time"

	"github.com/ManuGH/tsrec/internal/abort"
	"github.com/ManuGH/tsrec/internal/pipeline"
	"github.com/ManuGH/tsrec/internal/tsstat"
)

// Outcome labels beyond the pipeline statuses.
const (
	OutcomeSetupFailed = "setup_failed"
)

// Report summarises one run.
type Report struct {
	RunID       string
	Mode        string
	Output      string
	StartedAt   time.Time
	Duration    time.Duration
	Outcome     pipeline.Outcome
	AbortReason abort.Reason
	// Stats is set when stream statistics were enabled.
	Stats *tsstat.Stats
}

// OutcomeLabel returns the metric label for the run.
func (r Report) OutcomeLabel(err error) string {
	var setup *SetupError
	if errors.As(err, &setup) {
		return OutcomeSetupFailed
	}
	return r.Outcome.Status.String()
}
