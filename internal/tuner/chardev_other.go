// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !linux

package tuner

import (
	"context"

	"github.com/ManuGH/tsrec/internal/channel"
	"github.com/ManuGH/tsrec/internal/diagnose"
)

// Chardev is unavailable outside Linux.
type Chardev struct{}

func (Chardev) Open(ctx context.Context, path string, ch channel.Spec, lnb LNB) (Device, error) {
	return nil, diagnose.Wrap(diagnose.DomainDevice, ErrUnsupported)
}
