package kinematics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/wormtrack/internal/config"
	"github.com/banshee-data/wormtrack/internal/trajectory"
	"github.com/banshee-data/wormtrack/internal/units"
)

// MaxAngularVelocity is the upper bound of a valid angular velocity
// sample. Samples are reduced modulo 180, so anything above this bound
// means the input was corrupt.
const MaxAngularVelocity = 181.0

// TurnAngle returns the signed turn at b for the path a -> b -> c, in
// degrees, using the XY plane only. Positive is a right turn and negative
// a left turn (the angle is negated when AB x BC > 0). A zero-length
// segment yields a 90 degree turn.
func TurnAngle(a, b, c trajectory.Point) float64 {
	d1x, d1y := b.X-a.X, b.Y-a.Y
	d2x, d2y := c.X-b.X, c.Y-b.Y

	if math.Hypot(d1x, d1y) == 0 || math.Hypot(d2x, d2y) == 0 {
		return 90
	}

	dot := d1x*d2x + d1y*d2y
	cross := d1x*d2y - d1y*d2x

	// Collinear steps give exactly 0 and a reversal gives 180.
	deg := math.Atan2(math.Abs(cross), dot) * 180 / math.Pi
	if cross > 0 {
		deg = -deg
	}
	return deg
}

// TurningAngles samples every interval-th frame and returns the turn angle
// at each interior vertex of the sampled path.
func TurningAngles(t *trajectory.Table, interval int) ([]float64, error) {
	s := t.Stride(interval)
	if s.Len() < 3 {
		return nil, &IntegrityError{
			Metric: "turning angle",
			Index:  -1,
			Reason: fmt.Sprintf("need at least 3 sampled points, got %d (%d frames at interval %d)", s.Len(), t.Len(), interval),
		}
	}
	out := make([]float64, s.Len()-2)
	for i := range out {
		out[i] = TurnAngle(s.At(i), s.At(i+1), s.At(i+2))
	}
	return out, nil
}

// AngularVelocity is one sample per chunk of turning angles, in degree/s.
type AngularVelocity struct {
	Samples []float64

	Max, Min, Mean float64

	// SlowPct and FastPct are percentages of len(Samples).
	SlowPct float64
	FastPct float64
}

// Turning bundles the turning angles of a trajectory with their angular
// velocity.
type Turning struct {
	Interval int
	Angles   []float64

	// TotalAbs is the rounded sum of absolute angles; MeanAbs their mean.
	TotalAbs float64
	MeanAbs  float64

	Velocity AngularVelocity
}

// ChunkAngularVelocity groups angles into chunks of chunkSize and reduces
// each chunk to |sum| mod 180. The final chunk may be short.
func ChunkAngularVelocity(angles []float64, chunkSize int) []float64 {
	if chunkSize < 1 {
		chunkSize = 1
	}
	out := make([]float64, 0, (len(angles)+chunkSize-1)/chunkSize)
	for i := 0; i < len(angles); i += chunkSize {
		end := min(i+chunkSize, len(angles))
		out = append(out, math.Mod(math.Abs(floats.Sum(angles[i:end])), 180))
	}
	return out
}

// ClassifyAngularVelocity validates every sample and classifies it as slow
// (<= threshold) or fast.
func ClassifyAngularVelocity(samples []float64, threshold float64, decimals int) (AngularVelocity, error) {
	av := AngularVelocity{Samples: samples}
	if len(samples) == 0 {
		return av, nil
	}

	slow := 0
	for i, v := range samples {
		if v < 0 || v > MaxAngularVelocity || math.IsNaN(v) {
			return AngularVelocity{}, &IntegrityError{
				Metric: "angular velocity",
				Index:  i,
				Value:  v,
				Reason: fmt.Sprintf("outside [0, %g]", MaxAngularVelocity),
			}
		}
		if v <= threshold {
			slow++
		}
	}

	n := float64(len(samples))
	av.Max = units.Round(floats.Max(samples), decimals)
	av.Min = units.Round(floats.Min(samples), decimals)
	av.Mean = units.Round(stat.Mean(samples, nil), decimals)
	av.SlowPct = units.Round(float64(slow)/n*100, decimals)
	av.FastPct = units.Round(float64(len(samples)-slow)/n*100, decimals)
	return av, nil
}

// Turn computes turning angles at cfg.Interval and the derived angular
// velocity. The interval is validated before anything is computed.
func Turn(t *trajectory.Table, cfg *config.AnalysisConfig) (Turning, error) {
	if err := config.ValidateInterval(cfg.FrameRate, cfg.Interval); err != nil {
		return Turning{}, err
	}

	angles, err := TurningAngles(t, cfg.Interval)
	if err != nil {
		return Turning{}, err
	}

	abs := make([]float64, len(angles))
	for i, a := range angles {
		abs[i] = math.Abs(a)
	}

	av, err := ClassifyAngularVelocity(ChunkAngularVelocity(angles, cfg.ChunkSize()), cfg.AVThreshold, cfg.Decimals)
	if err != nil {
		return Turning{}, err
	}

	return Turning{
		Interval: cfg.Interval,
		Angles:   angles,
		TotalAbs: units.Round(floats.Sum(abs), cfg.Decimals),
		MeanAbs:  units.Round(stat.Mean(abs, nil), cfg.Decimals),
		Velocity: av,
	}, nil
}
