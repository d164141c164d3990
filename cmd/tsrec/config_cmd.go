// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/tsrec/internal/config"
)

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate defaults, --config and TSREC_* environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// loading already validated
			source := c.configPath
			if source == "" {
				source = "built-in defaults"
			}
			fmt.Fprintf(c.stdout, "✓ %s is valid\n", source)
			return nil
		},
	}

	var format string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "yaml", "yml":
				out, err := config.Marshal(c.cfg)
				if err != nil {
					c.exitCode = 1
					return fmt.Errorf("encode YAML: %w", err)
				}
				_, err = c.stdout.Write(out)
				return err
			case "json":
				enc := json.NewEncoder(c.stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(c.cfg); err != nil {
					c.exitCode = 1
					return fmt.Errorf("encode JSON: %w", err)
				}
				return nil
			default:
				return fmt.Errorf("%w: unsupported format %q (use yaml or json)", errUsage, format)
			}
		},
	}
	dump.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")

	cmd.AddCommand(validate, dump)
	return cmd
}
