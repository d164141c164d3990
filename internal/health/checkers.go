// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"os"
	"time"
)

// PathChecker checks that a device node or input file is present.
type PathChecker struct {
	name string
	path string
}

func NewPathChecker(name, path string) *PathChecker {
	return &PathChecker{name: name, path: path}
}

func (c *PathChecker) Name() string {
	return c.name
}

func (c *PathChecker) Check(_ context.Context) CheckResult {
	if c.path == "" || c.path == "-" {
		return CheckResult{Status: StatusHealthy, Message: "standard stream"}
	}

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected file or device, got directory"}
	}
	return CheckResult{Status: StatusHealthy, Message: c.path}
}

// Progress is what StallChecker needs to know about the run.
type Progress struct {
	Running      bool
	StartedAt    time.Time
	LastProgress time.Time
}

// StallChecker reports a running copy that has not written for longer
// than its threshold. Degraded after half the threshold.
type StallChecker struct {
	threshold time.Duration
	progress  func() Progress
	now       func() time.Time
}

const DefaultStallThreshold = 30 * time.Second

func NewStallChecker(threshold time.Duration, progress func() Progress) *StallChecker {
	if threshold <= 0 {
		threshold = DefaultStallThreshold
	}
	return &StallChecker{threshold: threshold, progress: progress, now: time.Now}
}

func (c *StallChecker) Name() string {
	return "stream_progress"
}

func (c *StallChecker) Check(_ context.Context) CheckResult {
	p := c.progress()
	if !p.Running {
		return CheckResult{Status: StatusHealthy, Message: "not transferring"}
	}

	last := p.LastProgress
	if last.IsZero() {
		last = p.StartedAt
	}
	idle := c.now().Sub(last)
	switch {
	case idle > c.threshold:
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   "stream stalled",
			Message: "no data for " + idle.Truncate(time.Second).String(),
		}
	case idle > c.threshold/2:
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no data for " + idle.Truncate(time.Second).String(),
		}
	default:
		return CheckResult{Status: StatusHealthy, Message: "receiving data"}
	}
}
