package kinematics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/wormtrack/internal/config"
	"github.com/banshee-data/wormtrack/internal/trajectory"
	"github.com/banshee-data/wormtrack/internal/units"
)

// Run is a contiguous stretch of frames inside a region, inclusive.
type Run struct {
	Start int
	End   int
}

// Len is the run duration in frames.
func (r Run) Len() int { return r.End - r.Start + 1 }

// Occupancy summarises the per-frame inside/outside flags.
type Occupancy struct {
	Inside []bool

	// Frames is the number of inside frames; Pct its share of len(Inside).
	Frames int
	Pct    float64
}

// Events summarises the inside runs. Pct is the longest run as a
// percentage of the configured total frame count.
type Events struct {
	Runs    []Run
	Count   int
	Longest int
	Pct     float64
}

// Region is the full region analysis for one well.
type Region struct {
	Name      string
	Distance  Distance
	Occupancy Occupancy
	Events    Events
}

// DistanceTo returns the per-frame distance (cm) from the trajectory to
// center, using exactly the axes named in center. An axis missing from
// the table is a ConfigError.
func DistanceTo(t *trajectory.Table, center config.Point, conversion float64, decimals int) (Distance, error) {
	axes := make([]string, 0, len(center))
	for a := range center {
		axes = append(axes, a)
	}
	sort.Strings(axes)

	for _, a := range axes {
		if !t.HasAxis(trajectory.Axis(a)) {
			return Distance{}, &config.ConfigError{
				Field:  a,
				Reason: fmt.Sprintf("axis not present in %dD trajectory", t.Dims()),
			}
		}
	}

	out := make([]float64, t.Len())
	for i := range out {
		p := t.At(i)
		sq := 0.0
		for _, a := range axes {
			v, _ := p.Coord(trajectory.Axis(a))
			d := v - center[a]
			sq += d * d
		}
		out[i] = units.Round(math.Sqrt(sq)/conversion, decimals)
	}
	return newDistance(out, decimals), nil
}

// Within flags each distance that is at most rng.
func Within(distances []float64, rng float64) []bool {
	out := make([]bool, len(distances))
	for i, d := range distances {
		out[i] = d <= rng
	}
	return out
}

// ExtractRuns returns the contiguous true runs of flags in one pass. No
// true flag yields an empty (nil) slice.
func ExtractRuns(flags []bool) []Run {
	var runs []Run
	start := -1
	for i, f := range flags {
		switch {
		case f && start < 0:
			start = i
		case !f && start >= 0:
			runs = append(runs, Run{Start: start, End: i - 1})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, Run{Start: start, End: len(flags) - 1})
	}
	return runs
}

func newOccupancy(inside []bool, decimals int) Occupancy {
	o := Occupancy{Inside: inside}
	for _, f := range inside {
		if f {
			o.Frames++
		}
	}
	if len(inside) > 0 {
		o.Pct = units.Round(float64(o.Frames)/float64(len(inside))*100, decimals)
	}
	return o
}

func newEvents(runs []Run, totalFrames, decimals int) Events {
	e := Events{Runs: runs, Count: len(runs)}
	for _, r := range runs {
		e.Longest = max(e.Longest, r.Len())
	}
	if totalFrames > 0 {
		e.Pct = units.Round(float64(e.Longest)/float64(totalFrames)*100, decimals)
	}
	return e
}

// AnalyzeRegion measures occupancy of region name around the well's
// configured centre. A missing region, well or axis is a ConfigError.
func AnalyzeRegion(t *trajectory.Table, name, well string, cfg *config.AnalysisConfig) (Region, error) {
	center, err := cfg.RegionCenter(name, well)
	if err != nil {
		return Region{}, err
	}

	dist, err := DistanceTo(t, center, cfg.ConversionRate, cfg.Decimals)
	if err != nil {
		var ce *config.ConfigError
		if errors.As(err, &ce) {
			ce.Field = name + "." + well + "." + ce.Field
		}
		return Region{}, err
	}

	inside := Within(dist.Values, cfg.ThigmotaxisRange)
	return Region{
		Name:      name,
		Distance:  dist,
		Occupancy: newOccupancy(inside, cfg.Decimals),
		Events:    newEvents(ExtractRuns(inside), cfg.TotalFrames, cfg.Decimals),
	}, nil
}
