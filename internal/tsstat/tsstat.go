// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tsstat counts transport stream packets on their way to the sink.
// It observes bytes after they are written and never changes them.
package tsstat

import (
	"bytes"
	"io"
	"sort"
	"sync"

	"github.com/Comcast/gots/packet"
)

const (
	syncByte = 0x47
	nullPID  = 0x1FFF
)

// Stats is a snapshot of the observed stream.
type Stats struct {
	Packets          uint64
	NullPackets      uint64
	SyncLosses       uint64
	ContinuityErrors uint64
	PIDs             map[int]uint64
}

// TopPIDs returns up to n PIDs ordered by packet count, busiest first.
func (s Stats) TopPIDs(n int) []int {
	pids := make([]int, 0, len(s.PIDs))
	for pid := range s.PIDs {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool {
		if s.PIDs[pids[i]] != s.PIDs[pids[j]] {
			return s.PIDs[pids[i]] > s.PIDs[pids[j]]
		}
		return pids[i] < pids[j]
	})
	if len(pids) > n {
		pids = pids[:n]
	}
	return pids
}

// Writer forwards writes to the wrapped sink and parses what was accepted.
type Writer struct {
	w io.Writer

	mu      sync.Mutex
	pending []byte
	inSync  bool
	lastCC  map[int]int
	stats   Stats
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:      w,
		inSync: true,
		lastCC: make(map[int]int),
		stats:  Stats{PIDs: make(map[int]uint64)},
	}
}

func (sw *Writer) Write(p []byte) (int, error) {
	n, err := sw.w.Write(p)
	if n > 0 {
		sw.observe(p[:n])
	}
	return n, err
}

// Flush forwards to the wrapped sink when it buffers.
func (sw *Writer) Flush() error {
	if f, ok := sw.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Stats returns a copy of the counters so far.
func (sw *Writer) Stats() Stats {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	out := sw.stats
	out.PIDs = make(map[int]uint64, len(sw.stats.PIDs))
	for k, v := range sw.stats.PIDs {
		out.PIDs[k] = v
	}
	return out
}

func (sw *Writer) observe(p []byte) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	buf := append(sw.pending, p...)
	for len(buf) >= packet.PacketSize {
		if buf[0] != syncByte {
			if sw.inSync {
				sw.stats.SyncLosses++
				sw.inSync = false
			}
			i := bytes.IndexByte(buf[1:], syncByte)
			if i < 0 {
				buf = buf[:0]
				break
			}
			buf = buf[i+1:]
			continue
		}
		// resync only once the next packet boundary agrees
		if !sw.inSync && len(buf) > packet.PacketSize && buf[packet.PacketSize] != syncByte {
			buf = buf[1:]
			continue
		}
		sw.inSync = true

		var pkt packet.Packet
		copy(pkt[:], buf[:packet.PacketSize])
		sw.count(&pkt)
		buf = buf[packet.PacketSize:]
	}
	sw.pending = append(sw.pending[:0], buf...)
}

func (sw *Writer) count(pkt *packet.Packet) {
	sw.stats.Packets++
	pid := pkt.PID()
	sw.stats.PIDs[pid]++
	if pid == nullPID {
		sw.stats.NullPackets++
		return
	}
	if !pkt.HasPayload() {
		return
	}
	cc := pkt.ContinuityCounter()
	if last, ok := sw.lastCC[pid]; ok {
		// a repeated counter is a legal duplicate packet
		if cc != (last+1)&0x0F && cc != last {
			sw.stats.ContinuityErrors++
		}
	}
	sw.lastCC[pid] = cc
}
