// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package descramble

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingKeyPair is returned when only one half of a working key is given.
var ErrMissingKeyPair = errors.New("working key requires both key0 and key1")

// KeyPair is a pre-shared 64-bit working key pair.
type KeyPair struct {
	Key0 uint64
	Key1 uint64
}

// ParseKeyPair parses two hexadecimal keys (optional 0x prefix).
// Both empty means no working key; exactly one empty is an error.
func ParseKeyPair(key0, key1 string) (*KeyPair, error) {
	key0, key1 = strings.TrimSpace(key0), strings.TrimSpace(key1)
	if key0 == "" && key1 == "" {
		return nil, nil
	}
	if key0 == "" || key1 == "" {
		return nil, ErrMissingKeyPair
	}
	k0, err := parseKey(key0)
	if err != nil {
		return nil, fmt.Errorf("key0: %w", err)
	}
	k1, err := parseKey(key1)
	if err != nil {
		return nil, fmt.Errorf("key1: %w", err)
	}
	return &KeyPair{Key0: k0, Key1: k1}, nil
}

func parseKey(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex key %q", s)
	}
	return v, nil
}

// Settings configures one descrambling stage.
type Settings struct {
	WorkingKey *KeyPair
	Round      uint32
	Strip      bool // drop null packets
	EMM        bool // process EMM
	SIMD       bool
	Verbose    bool
}

// DefaultSettings returns the settings every mode uses: 4 rounds, null
// packet stripping and EMM processing on, SIMD and verbose off.
func DefaultSettings(key *KeyPair) Settings {
	return Settings{
		WorkingKey: key,
		Round:      4,
		Strip:      true,
		EMM:        true,
	}
}

// vars exposes the settings to the argument template.
func (s Settings) vars() map[string]string {
	v := map[string]string{
		"round":   strconv.FormatUint(uint64(s.Round), 10),
		"strip":   flag01(s.Strip),
		"emm":     flag01(s.EMM),
		"simd":    flag01(s.SIMD),
		"verbose": flag01(s.Verbose),
		"key0":    "",
		"key1":    "",
	}
	if s.WorkingKey != nil {
		v["key0"] = fmt.Sprintf("%016x", s.WorkingKey.Key0)
		v["key1"] = fmt.Sprintf("%016x", s.WorkingKey.Key1)
	}
	return v
}

func flag01(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
