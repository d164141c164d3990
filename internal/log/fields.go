// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRunID = "run_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldMode      = "mode"
	FieldOutcome   = "outcome"
	FieldReason    = "reason"
	FieldPID       = "pid"

	// Tuner fields
	FieldDevice        = "device"
	FieldChannel       = "channel"
	FieldChannelType   = "channel_type"
	FieldLNB           = "lnb"
	FieldSignalQuality = "signal_quality"

	// Transfer fields
	FieldBytes    = "bytes"
	FieldChunks   = "chunks"
	FieldDuration = "duration"
	FieldDecode   = "decode"

	// Path fields
	FieldSource = "source"
	FieldOutput = "output"
	FieldPath   = "path"
)
