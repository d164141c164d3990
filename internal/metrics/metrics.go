// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the process-wide Prometheus collectors for a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AbortTotal counts running → abort-requested transitions by trigger source.
	AbortTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsrec_abort_total",
		Help: "Total number of abort transitions by reason",
	}, []string{"reason"})

	// BytesTransferredTotal counts bytes fully written to the sink.
	BytesTransferredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsrec_bytes_transferred_total",
		Help: "Total bytes written to the sink by mode",
	}, []string{"mode"})

	// ChunksTotal counts completed copy iterations.
	ChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsrec_chunks_total",
		Help: "Total copy chunks processed by mode",
	}, []string{"mode"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsrec_runs_total",
		Help: "Total runs by mode and outcome",
	}, []string{"mode", "outcome"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tsrec_run_duration_seconds",
		Help:    "Wall-clock duration of a run by mode",
		Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600, 7200, 14400},
	}, []string{"mode"})

	SetupFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsrec_setup_failures_total",
		Help: "Total setup failures by boundary domain",
	}, []string{"domain"})

	// SignalQuality is the last CNR reading in dB.
	SignalQuality = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tsrec_signal_quality_db",
		Help: "Last observed tuner signal quality (CNR, dB)",
	})

	TSPacketsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsrec_ts_packets_total",
		Help: "Total transport stream packets observed at the sink",
	})

	TSSyncLossTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsrec_ts_sync_loss_total",
		Help: "Total resynchronisations on the 0x47 sync byte",
	})

	TSContinuityErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsrec_ts_continuity_errors_total",
		Help: "Total continuity counter discontinuities",
	})

	ProcTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsrec_proc_terminate_total",
		Help: "Signals sent to child process groups by signal and result",
	}, []string{"signal", "result"})

	ProcWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsrec_proc_wait_total",
		Help: "Child process exits by result",
	}, []string{"result"})
)

// IncAbort records one abort transition.
func IncAbort(reason string) {
	AbortTotal.WithLabelValues(reason).Inc()
}

// AddTransfer records one chunk of n written bytes.
func AddTransfer(mode string, n int) {
	ChunksTotal.WithLabelValues(mode).Inc()
	if n > 0 {
		BytesTransferredTotal.WithLabelValues(mode).Add(float64(n))
	}
}

// AddBytes records n written bytes of an incomplete chunk.
func AddBytes(mode string, n int) {
	if n > 0 {
		BytesTransferredTotal.WithLabelValues(mode).Add(float64(n))
	}
}

// ObserveRun records the terminal outcome of a run.
func ObserveRun(mode, outcome string, d time.Duration) {
	RunsTotal.WithLabelValues(mode, outcome).Inc()
	RunDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func IncSetupFailure(domain string) {
	SetupFailuresTotal.WithLabelValues(domain).Inc()
}

func SetSignalQuality(db float64) {
	SignalQuality.Set(db)
}

// AddStreamStats records packet-level counters from a stats pass.
func AddStreamStats(packets, syncLoss, ccErrors uint64) {
	TSPacketsTotal.Add(float64(packets))
	TSSyncLossTotal.Add(float64(syncLoss))
	TSContinuityErrorsTotal.Add(float64(ccErrors))
}

func IncProcTerminate(signal, result string) {
	ProcTerminateTotal.WithLabelValues(signal, result).Inc()
}

func IncProcWait(result string) {
	ProcWaitTotal.WithLabelValues(result).Inc()
}
