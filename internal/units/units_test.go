package units

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		decimals int
		expected float64
	}{
		{"four places", 1.234567, 4, 1.2346},
		{"already short", 1.5, 4, 1.5},
		{"negative", -2.34567, 4, -2.3457},
		{"zero places", 2.4, 0, 2},
		{"negative decimals untouched", 1.23, -1, 1.23},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(tt.value, tt.decimals)
			if math.Abs(result-tt.expected) > 1e-12 {
				t.Errorf("Round(%f, %d) = %f, want %f", tt.value, tt.decimals, result, tt.expected)
			}
		})
	}
}

func TestRoundNonFinite(t *testing.T) {
	if !math.IsNaN(Round(math.NaN(), 4)) {
		t.Error("Round(NaN) should stay NaN")
	}
	if !math.IsInf(Round(math.Inf(1), 4), 1) {
		t.Error("Round(+Inf) should stay +Inf")
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		unit     string
		expected bool
	}{
		{Centimetre, true},
		{DegreePerMetre, true},
		{Dimensionless, true},
		{"mph", false},
		{"CM", false},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			if got := IsValid(tt.unit); got != tt.expected {
				t.Errorf("IsValid(%q) = %v, want %v", tt.unit, got, tt.expected)
			}
		})
	}
}
