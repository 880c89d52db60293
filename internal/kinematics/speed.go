package kinematics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/wormtrack/internal/config"
	"github.com/banshee-data/wormtrack/internal/monitoring"
	"github.com/banshee-data/wormtrack/internal/units"
)

// Speed is the spike-corrected per-frame speed series (cm/s) with its
// summary statistics and freezing classification.
type Speed struct {
	Raw    []float64
	Values []float64

	Max, Min, Mean float64

	// SlowPct and FastPct are percentages of the configured total frame
	// count, not of len(Values).
	SlowPct float64
	FastPct float64

	Corrections int
}

// CorrectSpikes replaces every value at or above limit with the nearest
// earlier corrected value below limit, scanning back to the first frame.
// A spike with no such predecessor is kept. It returns the corrected
// series and the number of replacements.
func CorrectSpikes(raw []float64, limit float64) ([]float64, int) {
	out := make([]float64, 0, len(raw))
	replaced := 0
	for i, v := range raw {
		if v >= limit {
			for j := i - 1; j >= 0; j-- {
				if out[j] < limit {
					v = out[j]
					replaced++
					break
				}
			}
		}
		out = append(out, v)
	}
	return out, replaced
}

// Speeds converts step distances into speeds, corrects tracking spikes
// and classifies each frame against the freezing threshold.
func Speeds(d Distance, cfg *config.AnalysisConfig) Speed {
	raw := make([]float64, len(d.Values))
	for i, s := range d.Values {
		raw[i] = s / (1 / float64(cfg.FrameRate))
	}

	limit := cfg.SpeedLimit()
	values, replaced := CorrectSpikes(raw, limit)
	if replaced > 0 {
		monitoring.Debugf("speed replaced %d times above %.4f cm/s (fast forward factor %g)", replaced, limit, cfg.FastForwardFactor)
	}

	sp := Speed{Raw: raw, Values: values, Corrections: replaced}
	if len(values) == 0 {
		return sp
	}

	sp.Max = units.Round(floats.Max(values), cfg.Decimals)
	sp.Min = units.Round(floats.Min(values), cfg.Decimals)
	sp.Mean = units.Round(stat.Mean(values, nil), cfg.Decimals)

	slow := 0
	for _, v := range values {
		if v < cfg.FreezingThreshold {
			slow++
		}
	}
	fast := len(values) - slow
	total := float64(cfg.TotalFrames)
	sp.SlowPct = units.Round(float64(slow)/total*100, cfg.Decimals)
	sp.FastPct = units.Round(float64(fast)/total*100, cfg.Decimals)
	return sp
}
