// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/tsrec/internal/config"
	"github.com/ManuGH/tsrec/internal/health"
	"github.com/ManuGH/tsrec/internal/log"
	"github.com/ManuGH/tsrec/internal/recorder"
	"github.com/ManuGH/tsrec/internal/status"
	"github.com/ManuGH/tsrec/internal/version"
)

const (
	exitOK    = 0
	exitUsage = 2
)

// errUsage marks flag combinations cobra cannot check on its own.
var errUsage = errors.New("usage")

// cli carries the state shared by all subcommands of one invocation.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string

	cfg      config.Config
	exitCode int

	// newRecorder is swapped in tests.
	newRecorder func(config.Config) *recorder.Recorder
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{
		stdout:      stdout,
		stderr:      stderr,
		newRecorder: recorder.New,
	}
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string, c *cli) int {
	root := c.rootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(c.stderr, "Error:", err)
		if c.exitCode != exitOK {
			return c.exitCode
		}
		return exitUsage
	}
	return c.exitCode
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tsrec",
		Short:         "Record and descramble ISDB transport streams",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.loadConfig()
		},
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "path to YAML configuration file")
	pf.StringVar(&c.logLevel, "log-level", "", "log level (overrides config)")
	pf.StringVar(&c.logFormat, "log-format", "", "log format: json or console (overrides config)")

	root.AddCommand(
		c.tuneCmd(),
		c.decodeCmd(),
		c.checkSignalCmd(),
		c.configCmd(),
		c.versionCmd(),
	)
	return root
}

// loadConfig resolves defaults, file and env, then applies the log flags.
func (c *cli) loadConfig() error {
	cfg, err := config.NewLoader(strings.TrimSpace(c.configPath)).Load()
	if err != nil {
		c.exitCode = 1
		return fmt.Errorf("configuration: %w", err)
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.logFormat != "" {
		cfg.LogFormat = c.logFormat
	}
	c.cfg = cfg

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  c.stderr,
		Version: version.Version,
	})
	return nil
}

// runMode executes m with the optional status listener around it and
// records the exit status.
func (c *cli) runMode(ctx context.Context, m recorder.Mode) error {
	rec := c.newRecorder(c.cfg)
	if rec.Stdout == nil {
		rec.Stdout = c.stdout
	}
	logger := log.WithComponent("cli")

	if addr := c.cfg.Metrics.Listen; addr != "" {
		tracker := &status.Tracker{}
		srv, err := status.Start(addr, tracker, c.healthManager(m, tracker))
		if err != nil {
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "status.server.failed").
				Msg("status server unavailable, continuing without it")
		} else {
			rec.Status = tracker
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}
	}

	_, err := rec.Run(ctx, m)
	c.exitCode = recorder.ExitCode(err)
	// the recorder already logged the failure
	return nil
}

// healthManager checks the input of m and the progress of the copy.
func (c *cli) healthManager(m recorder.Mode, tracker *status.Tracker) *health.Manager {
	h := health.NewManager(version.Version)
	switch m := m.(type) {
	case recorder.Record:
		h.RegisterChecker(health.NewPathChecker("tuner_device", m.Device))
		h.RegisterChecker(health.NewStallChecker(health.DefaultStallThreshold, tracker.Progress))
	case recorder.CheckSignal:
		h.RegisterChecker(health.NewPathChecker("tuner_device", m.Device))
	case recorder.Decode:
		h.RegisterChecker(health.NewPathChecker("source", m.Source))
		h.RegisterChecker(health.NewStallChecker(health.DefaultStallThreshold, tracker.Progress))
	}
	return h
}
