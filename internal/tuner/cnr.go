// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tuner

import (
	"math"

	"github.com/ManuGH/tsrec/internal/channel"
)

// CNR converts a raw GET_SIGNAL_STRENGTH reading into dB for the channel's
// delivery system.
func CNR(t channel.Type, raw int64) float64 {
	if t.Satellite() {
		return cnrSatellite(raw)
	}
	return cnrTerrestrial(raw)
}

// cnrTerrestrial is the ISDB-T polynomial fit used by the PT driver family.
func cnrTerrestrial(raw int64) float64 {
	if raw <= 0 {
		return 0
	}
	p := math.Log10(5505024/float64(raw)) * 10
	cnr := 0.000024*math.Pow(p, 4) - 0.0016*math.Pow(p, 3) + 0.0398*math.Pow(p, 2) + 0.5491*p + 3.0965
	if cnr < 0 {
		return 0
	}
	return round2(cnr)
}

const (
	satCeilingDB = 24.07
	satStrong    = 0x10 // high byte at or below: ceiling
	satWeak      = 0xB0 // high byte at or above: no signal
)

// cnrSatellite linearly interpolates the ISDB-S level table between the
// strong and weak register bounds.
func cnrSatellite(raw int64) float64 {
	hi := (raw >> 8) & 0xFF
	switch {
	case hi <= satStrong:
		return satCeilingDB
	case hi >= satWeak:
		return 0
	}
	v := float64(raw&0xFFFF) / 256
	frac := (v - satStrong) / (satWeak - satStrong)
	return round2(satCeilingDB * (1 - frac))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
