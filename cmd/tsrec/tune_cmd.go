// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/tsrec/internal/channel"
	"github.com/ManuGH/tsrec/internal/descramble"
	"github.com/ManuGH/tsrec/internal/recorder"
	"github.com/ManuGH/tsrec/internal/streamio"
	"github.com/ManuGH/tsrec/internal/tuner"
)

type tuneFlags struct {
	device   string
	channel  string
	seconds  float64
	noDecode bool
	lnb      string
	key0     string
	key1     string
}

func (c *cli) tuneCmd() *cobra.Command {
	var f tuneFlags
	cmd := &cobra.Command{
		Use:   "tune -c CHANNEL [-i DEVICE] [-t SECONDS] [OUTPUT]",
		Short: "Tune a device and record its stream",
		Long: `Tune a character device tuner to CHANNEL and write the stream to OUTPUT,
descrambling it on the way unless --no-decode is given. Recording runs for
--time seconds, or until interrupted when no time is given.

OUTPUT "-" or no OUTPUT writes to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.recordMode(f, args)
			if err != nil {
				return err
			}
			return c.runMode(cmd.Context(), m)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.device, "device", "i", "", "tuner device path (defaults to tuner.device)")
	fl.StringVarP(&f.channel, "channel", "c", "", "channel, e.g. T27, C13, BS01_0, CS4")
	fl.Float64VarP(&f.seconds, "time", "t", 0, "recording duration in seconds (0 records until interrupted)")
	fl.BoolVar(&f.noDecode, "no-decode", false, "write the scrambled stream as received")
	fl.StringVar(&f.lnb, "lnb", "", "LNB power for satellite channels: off, 11v or 15v (defaults to tuner.lnb)")
	fl.StringVarP(&f.key0, "key0", "k", "", "working key 0 (hex)")
	fl.StringVarP(&f.key1, "key1", "K", "", "working key 1 (hex)")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}

func (c *cli) recordMode(f tuneFlags, args []string) (recorder.Record, error) {
	device := f.device
	if device == "" {
		device = c.cfg.Tuner.Device
	}
	if device == "" {
		return recorder.Record{}, fmt.Errorf("%w: --device is required (no tuner.device configured)", errUsage)
	}
	if f.seconds < 0 || math.IsNaN(f.seconds) || math.IsInf(f.seconds, 0) {
		return recorder.Record{}, fmt.Errorf("%w: --time must be a non-negative number of seconds", errUsage)
	}
	lnb, err := c.resolveLNB(f.lnb)
	if err != nil {
		return recorder.Record{}, err
	}
	keys, err := descramble.ParseKeyPair(f.key0, f.key1)
	if err != nil {
		return recorder.Record{}, fmt.Errorf("%w: %w", errUsage, err)
	}

	return recorder.Record{
		Device:        device,
		Channel:       channel.Parse(f.channel),
		LNB:           lnb,
		Duration:      time.Duration(f.seconds * float64(time.Second)),
		DecodeEnabled: !f.noDecode,
		Keys:          keys,
		Output:        outputArg(args),
	}, nil
}

func (c *cli) resolveLNB(flag string) (tuner.LNB, error) {
	v := flag
	if v == "" {
		v = c.cfg.Tuner.LNB
	}
	lnb, err := tuner.ParseLNB(v)
	if err != nil {
		return tuner.LNBOff, fmt.Errorf("%w: %w", errUsage, err)
	}
	return lnb, nil
}

func outputArg(args []string) string {
	if len(args) == 0 {
		return streamio.Stdio
	}
	return args[0]
}
