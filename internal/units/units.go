// Package units provides shared unit labels and rounding for reported metrics
package units

import "math"

// Unit labels
const (
	Centimetre       = "cm"
	CentimetrePerSec = "cm/s"
	Degree           = "degree"
	DegreePerSec     = "degree/s"
	DegreePerMetre   = "degree/m"
	Percent          = "%"
	Times            = "times"
	Frames           = "frames"
	Dimensionless    = ""
)

// DefaultDecimals is the precision metrics are rounded to before reporting
const DefaultDecimals = 4

// ValidUnits contains all unit labels a metric may carry
var ValidUnits = []string{
	Centimetre, CentimetrePerSec, Degree, DegreePerSec, DegreePerMetre,
	Percent, Times, Frames, Dimensionless,
}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, decimals int) float64 {
	if decimals < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
