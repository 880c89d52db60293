package fractal

import (
	"math"
)

// referenceThreshold is the index of r = 0.9, the largest threshold whose
// log is strictly negative.
const referenceThreshold = 8

// MinFrames is the shortest trajectory that fills the regression window.
func MinFrames() int {
	return referenceThreshold + WindowRadius + 1
}

// Thresholds returns r_i = (i+1)/10 for i in [0, n), with r = 1 replaced
// by 1.01 so log10(r) is never zero.
func Thresholds(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i+1) / 10
		if out[i] == 1 {
			out[i] = 1.01
		}
	}
	return out
}

// ReferenceIndex returns the index of the value closest to zero from
// below, or -1 when no value is negative.
func ReferenceIndex(logR []float64) int {
	best := -1
	closest := math.Inf(-1)
	for i, v := range logR {
		if v < 0 && v > closest {
			closest = v
			best = i
		}
	}
	return best
}

// Window returns the WindowSize indices centred on the reference index,
// from offset -WindowRadius to +WindowRadius. It fails with
// ErrInsufficientData when the window does not fit inside logR.
func Window(logR []float64) ([]int, error) {
	ref := ReferenceIndex(logR)
	if ref < 0 || ref-WindowRadius < 0 || ref+WindowRadius >= len(logR) {
		return nil, ErrInsufficientData
	}
	idx := make([]int, 0, WindowSize)
	for off := -WindowRadius; off <= WindowRadius; off++ {
		idx = append(idx, ref+off)
	}
	return idx, nil
}

// Entropy is the binary Shannon entropy (bits) of the split between
// angles of at least 90 degrees and the rest. Empty input has zero
// entropy.
func Entropy(thetas []float64) float64 {
	if len(thetas) == 0 {
		return 0
	}
	sharp := 0
	for _, th := range thetas {
		if th >= sharpTurn {
			sharp++
		}
	}
	p := float64(sharp) / float64(len(thetas))
	return -plog2(p) - plog2(1-p)
}

func plog2(p float64) float64 {
	if p <= 0 {
		return 0
	}
	return p * math.Log2(p)
}
