// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/tsrec/internal/channel"
	"github.com/ManuGH/tsrec/internal/recorder"
)

func (c *cli) checkSignalCmd() *cobra.Command {
	var device, ch, lnb string
	cmd := &cobra.Command{
		Use:   "checksignal -c CHANNEL [-i DEVICE]",
		Short: "Print the signal quality of a channel once per second",
		Long: `Tune DEVICE to CHANNEL and print {"signal_quality": <dB>} to stdout once per
signal.pollInterval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if device == "" {
				device = c.cfg.Tuner.Device
			}
			if device == "" {
				return fmt.Errorf("%w: --device is required (no tuner.device configured)", errUsage)
			}
			l, err := c.resolveLNB(lnb)
			if err != nil {
				return err
			}
			return c.runMode(cmd.Context(), recorder.CheckSignal{
				Device:  device,
				Channel: channel.Parse(ch),
				LNB:     l,
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&device, "device", "i", "", "tuner device path (defaults to tuner.device)")
	fl.StringVarP(&ch, "channel", "c", "", "channel, e.g. T27, BS01_0, CS4")
	fl.StringVar(&lnb, "lnb", "", "LNB power for satellite channels: off, 11v or 15v")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}
