// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package abort

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ManuGH/tsrec/internal/log"
)

// Controller owns the deadline timer and the interrupt handler feeding one
// Signal. At most one controller holds the interrupt handler per process.
type Controller struct {
	sig      *Signal
	duration time.Duration
	signals  []os.Signal

	timer  *time.Timer
	sigCh  chan os.Signal
	stop   chan struct{}
	unhook chan struct{}
	wg     sync.WaitGroup
	disarm sync.Once
}

// Option customises Arm.
type Option func(*Controller)

// WithSignal feeds an existing Signal instead of allocating one.
func WithSignal(s *Signal) Option {
	return func(c *Controller) {
		if s != nil {
			c.sig = s
		}
	}
}

// WithSignals overrides the OS signals treated as an interrupt.
func WithSignals(sigs ...os.Signal) Option {
	return func(c *Controller) {
		if len(sigs) > 0 {
			c.signals = sigs
		}
	}
}

var (
	activeMu sync.Mutex
	active   *Controller
)

// Arm starts the cancellation sources and returns immediately. A positive
// duration schedules a one-shot deadline; zero or negative means unbounded.
// The interrupt handler is always installed and replaces the handler of any
// previously armed controller.
func Arm(duration time.Duration, opts ...Option) *Controller {
	c := &Controller{
		duration: duration,
		signals:  []os.Signal{os.Interrupt, syscall.SIGTERM},
		stop:     make(chan struct{}),
		unhook:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sig == nil {
		c.sig = NewSignal()
	}

	activeMu.Lock()
	if active != nil {
		active.release()
	}
	active = c
	activeMu.Unlock()

	logger := log.WithComponent("abort")

	if duration > 0 {
		c.timer = time.AfterFunc(duration, func() {
			if c.sig.Trigger(ReasonTimer) {
				logger.Info().
					Str(log.FieldEvent, "abort.timer").
					Dur(log.FieldDuration, duration).
					Msg("recording duration elapsed")
			}
		})
	}

	c.sigCh = make(chan os.Signal, 1)
	signal.Notify(c.sigCh, c.signals...)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		// Once aborting, a repeated interrupt gets the default behaviour
		// so a wedged read can still be killed from the terminal.
		defer close(c.unhook)
		defer signal.Stop(c.sigCh)
		select {
		case s := <-c.sigCh:
			if c.sig.Trigger(ReasonInterrupt) {
				logger.Info().
					Str(log.FieldEvent, "abort.interrupt").
					Str("signal", s.String()).
					Msg("interrupt received, stopping after the current chunk")
			}
		case <-c.sig.Done():
		case <-c.stop:
		}
	}()

	return c
}

// Signal returns the flag this controller feeds.
func (c *Controller) Signal() *Signal {
	return c.sig
}

// Duration returns the armed deadline; zero means unbounded.
func (c *Controller) Duration() time.Duration {
	return c.duration
}

// Disarm stops the timer and releases the interrupt handler. The Signal
// keeps its state. Safe to call more than once.
func (c *Controller) Disarm() {
	activeMu.Lock()
	if active == c {
		active = nil
	}
	activeMu.Unlock()
	c.release()
}

func (c *Controller) release() {
	c.disarm.Do(func() {
		if c.timer != nil {
			c.timer.Stop()
		}
		signal.Stop(c.sigCh)
		close(c.stop)
		c.wg.Wait()
	})
}
