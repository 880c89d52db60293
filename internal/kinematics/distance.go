package kinematics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/wormtrack/internal/trajectory"
	"github.com/banshee-data/wormtrack/internal/units"
)

// Distance is a series of distances in cm with its total and mean.
type Distance struct {
	Values []float64
	Total float64
	Mean  float64
}

func newDistance(steps []float64, decimals int) Distance {
	d := Distance{Values: steps}
	if len(steps) > 0 {
		d.Total = units.Round(floats.Sum(steps), decimals)
		d.Mean = units.Round(stat.Mean(steps, nil), decimals)
	}
	return d
}

// StepDistances returns the Euclidean distance between consecutive frames
// over every axis of the table, divided by conversion (raw units per cm)
// and rounded to decimals places.
func StepDistances(t *trajectory.Table, conversion float64, decimals int) Distance {
	n := t.Len()
	if n < 2 {
		return newDistance(nil, decimals)
	}
	steps := make([]float64, n-1)
	for i := 1; i < n; i++ {
		a, b := t.At(i-1), t.At(i)
		sq := (b.X-a.X)*(b.X-a.X) + (b.Y-a.Y)*(b.Y-a.Y)
		if t.Is3D() {
			sq += (b.Z - a.Z) * (b.Z - a.Z)
		}
		steps[i-1] = units.Round(math.Sqrt(sq)/conversion, decimals)
	}
	return newDistance(steps, decimals)
}
