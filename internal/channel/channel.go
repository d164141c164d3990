// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package channel parses operator channel strings into a typed Spec.
package channel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUndefined is returned when a Spec cannot be used for tuning.
var ErrUndefined = errors.New("channel type is undefined")

// Type is the broadcast network a channel belongs to.
type Type int

const (
	Undefined Type = iota
	Terrestrial
	BS
	CS
)

func (t Type) String() string {
	switch t {
	case Terrestrial:
		return "Terrestrial"
	case BS:
		return "BS"
	case CS:
		return "CS"
	default:
		return "Undefined"
	}
}

// Satellite reports whether the channel is received through an LNB.
func (t Type) Satellite() bool {
	return t == BS || t == CS
}

// Spec identifies a channel as typed by the operator.
type Spec struct {
	Raw  string
	Type Type

	number int // physical channel (terrestrial), transponder (BS/CS)
	slot   int // TS slot within a BS transponder
	catv   bool
}

// Frequency is the (frequency number, slot) pair understood by chardev tuners.
type Frequency struct {
	No   int
	Slot int
}

// Parse classifies raw. It never fails: unrecognised input yields an Undefined spec
// so callers can reject it with a single check before touching hardware.
func Parse(raw string) Spec {
	s := Spec{Raw: raw}
	v := strings.ToUpper(strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(v, "BS"):
		s.parseBS(v[2:])
	case strings.HasPrefix(v, "CS"):
		s.parseCS(v[2:])
	case strings.HasPrefix(v, "C"):
		if n, ok := atoiRange(v[1:], 13, 63); ok {
			s.Type, s.number, s.catv = Terrestrial, n, true
		}
	case strings.HasPrefix(v, "T"):
		if n, ok := atoiRange(v[1:], 13, 62); ok {
			s.Type, s.number = Terrestrial, n
		}
	default:
		if n, ok := atoiRange(v, 13, 62); ok {
			s.Type, s.number = Terrestrial, n
		}
	}
	return s
}

// BSxx_y where xx is an odd transponder 1..23 and y the slot 0..3.
func (s *Spec) parseBS(rest string) {
	tp, slot, found := strings.Cut(rest, "_")
	if !found {
		return
	}
	n, ok := atoiRange(tp, 1, 23)
	if !ok || n%2 == 0 {
		return
	}
	sl, ok := atoiRange(slot, 0, 3)
	if !ok {
		return
	}
	s.Type, s.number, s.slot = BS, n, sl
}

// CSn where n is an even transponder 2..24.
func (s *Spec) parseCS(rest string) {
	n, ok := atoiRange(rest, 2, 24)
	if !ok || n%2 != 0 {
		return
	}
	s.Type, s.number = CS, n
}

// Validate returns ErrUndefined for specs that must never reach a tuner.
func (s Spec) Validate() error {
	if s.Type == Undefined {
		return fmt.Errorf("%q: %w", s.Raw, ErrUndefined)
	}
	return nil
}

// Frequency maps the spec onto the chardev frequency table
// (BS 0-11, CS 12-23, CATV 3-53, terrestrial 63-112).
func (s Spec) Frequency() (Frequency, error) {
	switch s.Type {
	case BS:
		return Frequency{No: (s.number - 1) / 2, Slot: s.slot}, nil
	case CS:
		return Frequency{No: s.number/2 + 11}, nil
	case Terrestrial:
		if s.catv {
			return Frequency{No: s.number - 10}, nil
		}
		return Frequency{No: s.number + 50}, nil
	default:
		return Frequency{}, s.Validate()
	}
}

func (s Spec) String() string {
	return fmt.Sprintf("%s / %s", s.Raw, s.Type)
}

func atoiRange(v string, lo, hi int) (int, bool) {
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}
