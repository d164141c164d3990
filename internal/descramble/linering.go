// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package descramble

import (
	"bytes"
	"sync"
)

// maxPartial bounds an unterminated line before it is pushed as is.
const maxPartial = 4 << 10

// lineRing keeps the last lines written to it. Both '\n' and '\r' end a
// line. Partial lines are held until their terminator arrives.
type lineRing struct {
	mu      sync.Mutex
	lines   []string
	head    int
	n       int
	partial []byte
}

func newLineRing(capacity int) *lineRing {
	if capacity < 1 {
		capacity = 32
	}
	return &lineRing{lines: make([]string, capacity)}
}

func (r *lineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := append(r.partial, p...)
	for {
		i := bytes.IndexAny(buf, "\r\n")
		if i < 0 {
			break
		}
		r.push(string(buf[:i]))
		buf = buf[i+1:]
	}
	for len(buf) > maxPartial {
		r.push(string(buf[:maxPartial]))
		buf = buf[maxPartial:]
	}
	r.partial = append(r.partial[:0], buf...)
	return len(p), nil
}

func (r *lineRing) push(line string) {
	if line == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.n < len(r.lines) {
		r.n++
	}
}

// Last returns up to n lines, oldest first, including a trailing partial line.
func (r *lineRing) Last(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, r.n+1)
	start := (r.head - r.n + len(r.lines)) % len(r.lines)
	for i := 0; i < r.n; i++ {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	if len(r.partial) > 0 {
		out = append(out, string(r.partial))
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
