// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/tsrec/internal/descramble"
	"github.com/ManuGH/tsrec/internal/recorder"
)

func (c *cli) decodeCmd() *cobra.Command {
	var source, key0, key1 string
	cmd := &cobra.Command{
		Use:   "decode -i SOURCE [OUTPUT]",
		Short: "Descramble a recorded stream",
		Long: `Descramble SOURCE ("-" for stdin) and write the clear stream to OUTPUT.
OUTPUT "-" or no OUTPUT writes to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := descramble.ParseKeyPair(key0, key1)
			if err != nil {
				return fmt.Errorf("%w: %w", errUsage, err)
			}
			return c.runMode(cmd.Context(), recorder.Decode{
				Source: source,
				Keys:   keys,
				Output: outputArg(args),
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&source, "input", "i", "", "recorded stream to descramble")
	fl.StringVarP(&key0, "key0", "k", "", "working key 0 (hex)")
	fl.StringVarP(&key1, "key1", "K", "", "working key 1 (hex)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
