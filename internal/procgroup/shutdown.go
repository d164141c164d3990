// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"os/exec"
	"time"

	"github.com/ManuGH/tsrec/internal/log"
	"github.com/ManuGH/tsrec/internal/metrics"
)

// Terminate stops a process group: SIGTERM, wait up to grace on waitCh,
// then SIGKILL and drain waitCh. The wait result is returned.
// A nil or unstarted cmd returns nil.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	logger := log.WithComponent("procgroup")
	pid := cmd.Process.Pid

	metrics.IncProcTerminate("SIGTERM", signalResult(Kill(cmd, sigTerm)))

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case err := <-waitCh:
		metrics.IncProcWait(waitResult("", err))
		return err
	case <-timer.C:
	}

	logger.Warn().
		Str(log.FieldEvent, "proc.kill").
		Int(log.FieldPID, pid).
		Dur("grace", grace).
		Msg("SIGTERM grace period exceeded, sending SIGKILL to process group")
	metrics.IncProcTerminate("SIGKILL", signalResult(Kill(cmd, sigKill)))

	err := <-waitCh
	metrics.IncProcWait(waitResult("forced_", err))
	return err
}

func signalResult(err error) string {
	if err != nil {
		return "error"
	}
	return "sent"
}

func waitResult(prefix string, err error) string {
	if err == nil {
		return prefix + "exit0"
	}
	return prefix + "exit_nonzero"
}
