// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package descramble

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyPair(t *testing.T) {
	tests := []struct {
		name    string
		k0, k1  string
		want    *KeyPair
		wantErr error
	}{
		{name: "neither", want: nil},
		{name: "both", k0: "0123456789abcdef", k1: "0xFEDCBA9876543210", want: &KeyPair{Key0: 0x0123456789abcdef, Key1: 0xfedcba9876543210}},
		{name: "only key0", k0: "01", wantErr: ErrMissingKeyPair},
		{name: "only key1", k1: "01", wantErr: ErrMissingKeyPair},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeyPair(tt.k0, tt.k1)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeyPair_InvalidHex(t *testing.T) {
	_, err := ParseKeyPair("xyz", "01")
	assert.ErrorContains(t, err, "key0")

	_, err = ParseKeyPair("01", "1ffffffffffffffff")
	assert.ErrorContains(t, err, "key1")
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings(nil)
	assert.Equal(t, uint32(4), s.Round)
	assert.True(t, s.Strip)
	assert.True(t, s.EMM)
	assert.False(t, s.SIMD)
	assert.False(t, s.Verbose)
	assert.Nil(t, s.WorkingKey)
}

func TestCommand_Argv(t *testing.T) {
	s := DefaultSettings(nil)

	got := Command{}.Argv(s)
	want := []string{"-r", "4", "-s", "1", "-m", "1", "-v", "0", "/dev/stdin", "/dev/stdout"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("default argv mismatch (-want +got):\n%s", diff)
	}

	// empty expansions are dropped
	c := Command{Args: []string{"--round=${round}", "${key0}", "${key1}", "-"}}
	if diff := cmp.Diff([]string{"--round=4", "-"}, c.Argv(s)); diff != "" {
		t.Errorf("argv without key mismatch (-want +got):\n%s", diff)
	}

	s.WorkingKey = &KeyPair{Key0: 1, Key1: 0xff}
	if diff := cmp.Diff([]string{"--round=4", "0000000000000001", "00000000000000ff", "-"}, c.Argv(s)); diff != "" {
		t.Errorf("argv with key mismatch (-want +got):\n%s", diff)
	}
}

func TestLineRing(t *testing.T) {
	r := newLineRing(3)
	_, _ = r.Write([]byte("one\ntwo\n"))
	_, _ = r.Write([]byte("thr"))
	_, _ = r.Write([]byte("ee\r\nfour\n\nfive"))

	assert.Equal(t, []string{"three", "four", "five"}, r.Last(3))
	assert.Equal(t, []string{"two", "three", "four", "five"}, r.Last(10), "capacity bounds complete lines")
}

func TestLineRing_CarriageReturnProgress(t *testing.T) {
	r := newLineRing(2)
	_, _ = r.Write([]byte("10%\r20%\r30%\r"))

	assert.Equal(t, []string{"20%", "30%"}, r.Last(5))
	assert.Empty(t, r.partial)
}

func TestLineRing_UnterminatedOutputIsBounded(t *testing.T) {
	r := newLineRing(4)
	chunk := bytes.Repeat([]byte("x"), 1024)
	for i := 0; i < 10; i++ {
		_, _ = r.Write(chunk)
	}

	assert.LessOrEqual(t, len(r.partial), maxPartial)
	last := r.Last(4)
	require.NotEmpty(t, last)
	for _, line := range last {
		assert.LessOrEqual(t, len(line), maxPartial)
	}
}
