// Package report assembles the ordered endpoint table of one analysed
// well from kinematic and fractal results.
package report

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/banshee-data/wormtrack/internal/fractal"
	"github.com/banshee-data/wormtrack/internal/kinematics"
	"github.com/banshee-data/wormtrack/internal/units"
)

// Endpoint names, in report order.
const (
	TotalDistance         = "Total Distance"
	AverageSpeed          = "Average Speed"
	TotalAbsoluteTurn     = "Total Absolute Turn Angle"
	AverageAngularVel     = "Average Angular Velocity"
	SlowAngularVelPct     = "Slow Angular Velocity Percentage"
	FastAngularVelPct     = "Fast Angular Velocity Percentage"
	Meandering            = "Meandering"
	FreezingTime          = "Freezing Time"
	MovingTime            = "Moving Time"
	AverageCenterDistance = "Average distance to Center of the Tank"
	TimeInCenter          = "Time spent in Center"
	CenterEntries         = "Total entries to the Center"
	FractalDimension      = "Fractal Dimension"
	Entropy               = "Entropy"

	MaxSpeed         = "Max Speed"
	MinSpeed         = "Min Speed"
	AverageTurnAngle = "Average Turn Angle"
	LongestInCenter  = "Longest Time in Center"
	SpeedCorrections = "Speed Corrections"
)

// Metric is one named endpoint.
type Metric struct {
	Name  string
	Value float64
	Unit  string
}

// Key renders the column header: "Name (unit)", or just the name for a
// dimensionless metric.
func (m Metric) Key() string {
	if m.Unit == units.Dimensionless {
		return m.Name
	}
	return fmt.Sprintf("%s (%s)", m.Name, m.Unit)
}

// Identity locates a well within a project.
type Identity struct {
	Day       string
	Treatment string
	Batch     int
	Well      string
}

// Label is the row label used by exports, e.g. "Batch 1 - Well 2".
func (id Identity) Label() string {
	return fmt.Sprintf("Batch %d - Well %s", id.Batch, id.Well)
}

func (id Identity) String() string {
	return fmt.Sprintf("day %s treatment %s %s", id.Day, id.Treatment, id.Label())
}

// Report is the ordered endpoint table of one well.
type Report struct {
	Identity Identity
	Metrics  []Metric
}

// Build collects endpoints from already-computed results. It performs no
// computation of its own.
func Build(id Identity, k *kinematics.Result, f *fractal.Result) (*Report, error) {
	if k == nil || f == nil {
		return nil, errors.New("report: missing kinematic or fractal result")
	}

	m := []Metric{
		{TotalDistance, k.Distance.Total, units.Centimetre},
		{AverageSpeed, k.Speed.Mean, units.CentimetrePerSec},
		{TotalAbsoluteTurn, k.Turning.TotalAbs, units.Degree},
		{AverageAngularVel, k.Turning.Velocity.Mean, units.DegreePerSec},
		{SlowAngularVelPct, k.Turning.Velocity.SlowPct, units.Percent},
		{FastAngularVelPct, k.Turning.Velocity.FastPct, units.Percent},
		{Meandering, k.Meandering, units.DegreePerMetre},
		{FreezingTime, k.Speed.SlowPct, units.Percent},
		{MovingTime, k.Speed.FastPct, units.Percent},
		{AverageCenterDistance, k.Center.Distance.Mean, units.Centimetre},
		{TimeInCenter, k.Center.Occupancy.Pct, units.Percent},
		{CenterEntries, float64(k.Center.Events.Count), units.Times},
		{FractalDimension, f.Dimension, units.Dimensionless},
		{Entropy, f.Entropy, units.Dimensionless},

		{MaxSpeed, k.Speed.Max, units.CentimetrePerSec},
		{MinSpeed, k.Speed.Min, units.CentimetrePerSec},
		{AverageTurnAngle, k.Turning.MeanAbs, units.Degree},
		{LongestInCenter, float64(k.Center.Events.Longest), units.Frames},
		{SpeedCorrections, float64(k.Speed.Corrections), units.Times},
	}
	return &Report{Identity: id, Metrics: m}, nil
}

// Get returns the metric with the given name.
func (r *Report) Get(name string) (Metric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// Keys returns the column headers in report order.
func (r *Report) Keys() []string {
	keys := make([]string, len(r.Metrics))
	for i, m := range r.Metrics {
		keys[i] = m.Key()
	}
	return keys
}

// MarshalJSON writes the metrics as a JSON object whose keys keep report
// order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range r.Metrics {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(m.Key())
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.Value)
		if err != nil {
			return nil, fmt.Errorf("report: %s: %w", m.Name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
