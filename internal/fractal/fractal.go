// Package fractal estimates a correlation-dimension style fractal
// dimension of a path and the binary entropy of its turning behaviour.
//
// Step magnitudes Δr between consecutive frames are compared against the
// thresholds r_i = (i+1)/10. The fraction C(r) of steps shorter than r is
// regressed on r in log-log space over an 11-point window whose centre is
// the largest threshold below 1; the slope is the fractal dimension.
package fractal

import (
	"errors"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/wormtrack/internal/monitoring"
	"github.com/banshee-data/wormtrack/internal/trajectory"
)

const (
	// epsilon keeps the inter-step angle defined for zero-length steps.
	epsilon = 1e-10

	// crFloor replaces a zero occupation fraction before taking its log.
	crFloor = 1e-9

	// WindowRadius is the number of thresholds on each side of the
	// reference index used by the regression.
	WindowRadius = 5

	// WindowSize is the number of regression points.
	WindowSize = 2*WindowRadius + 1

	// sharpTurn splits inter-step angles into the two entropy bins.
	sharpTurn = 90.0
)

// ErrInsufficientData is returned when the trajectory is too short to
// fill the regression window.
var ErrInsufficientData = errors.New("fractal: trajectory too short for the regression window")

// Result is the estimator output for one trajectory.
type Result struct {
	// Dimension is the regression slope.
	Dimension float64
	// Entropy is in bits, within [0, 1].
	Entropy float64

	Intercept   float64
	ResidualSE  float64
	SlopeSE     float64
	InterceptSE float64
	RSquared    float64

	// Window holds the log10(r) and log10(C(r)) points used.
	LogR  []float64
	LogCr []float64
}

// Estimate2D runs the estimator on the XY plane.
func Estimate2D(t *trajectory.Table) (*Result, error) {
	return estimate(t, false)
}

// Estimate3D runs the estimator on XYZ. A 2D table is rejected.
func Estimate3D(t *trajectory.Table) (*Result, error) {
	if !t.Is3D() {
		return nil, errors.New("fractal: 3D estimate needs a Z column")
	}
	return estimate(t, true)
}

func estimate(t *trajectory.Table, use3D bool) (*Result, error) {
	n := t.Len()
	if n < MinFrames() {
		return nil, ErrInsufficientData
	}

	steps, thetas := stepsAndAngles(t, use3D)

	thresholds := Thresholds(n)
	logR := make([]float64, n)
	for i, r := range thresholds {
		logR[i] = math.Log10(r)
	}
	idx, err := Window(logR)
	if err != nil {
		return nil, err
	}

	sorted := slices.Clone(steps)
	slices.Sort(sorted)

	x := make([]float64, len(idx))
	y := make([]float64, len(idx))
	floored := 0
	for k, i := range idx {
		cr := float64(countBelow(sorted, thresholds[i])) / float64(n-1)
		if cr == 0 {
			cr = crFloor
			floored++
		}
		x[k] = logR[i]
		y[k] = math.Log10(cr)
	}
	if floored > 0 {
		monitoring.Debugf("fractal: C(r) floored to %g at %d thresholds", crFloor, floored)
	}

	res := regress(x, y)
	res.Entropy = Entropy(thetas)
	return res, nil
}

// stepsAndAngles returns Δr for frames 1..n-1 and the angle between each
// pair of consecutive steps.
func stepsAndAngles(t *trajectory.Table, use3D bool) (steps, thetas []float64) {
	n := t.Len()
	steps = make([]float64, 0, n-1)
	thetas = make([]float64, 0, max(n-2, 0))

	var pdx, pdy, pdz, pr float64
	for i := 1; i < n; i++ {
		a, b := t.At(i-1), t.At(i)
		dx, dy := b.X-a.X, b.Y-a.Y
		dz := 0.0
		if use3D {
			dz = b.Z - a.Z
		}
		r := math.Sqrt(dx*dx + dy*dy + dz*dz)
		steps = append(steps, r)

		if i > 1 {
			v := (dx*pdx + dy*pdy + dz*pdz) / (r*pr + epsilon)
			v = math.Max(-1, math.Min(1, v))
			thetas = append(thetas, math.Acos(v)*180/math.Pi)
		}
		pdx, pdy, pdz, pr = dx, dy, dz, r
	}
	return steps, thetas
}

// countBelow returns how many of the ascending values are strictly less
// than r.
func countBelow(sorted []float64, r float64) int {
	return sort.SearchFloat64s(sorted, r)
}

// regress fits y = a + b·x by ordinary least squares and fills in the
// standard errors and R².
func regress(x, y []float64) *Result {
	a, b := stat.LinearRegression(x, y, nil, false)

	xbar := stat.Mean(x, nil)
	var sxx, ssr float64
	for i := range x {
		sxx += (x[i] - xbar) * (x[i] - xbar)
		e := y[i] - (a + b*x[i])
		ssr += e * e
	}
	n := float64(len(x))
	s := math.Sqrt(ssr / (n - 2))

	r2 := stat.RSquared(x, y, nil, a, b)
	if math.IsNaN(r2) {
		// Constant y is fitted exactly by a flat line.
		r2 = 1
	}

	return &Result{
		Dimension:   b,
		Intercept:   a,
		ResidualSE:  s,
		SlopeSE:     s / math.Sqrt(sxx),
		InterceptSE: s * math.Sqrt(1/n+xbar*xbar/sxx),
		RSquared:    r2,
		LogR:        x,
		LogCr:       y,
	}
}
