// Package trajectory holds the per-frame coordinate table for one tracked
// organism and the CSV reader that produces it.
package trajectory

import (
	"fmt"
	"math"
)

// Axis names a coordinate column.
type Axis string

const (
	AxisX Axis = "X"
	AxisY Axis = "Y"
	AxisZ Axis = "Z"
)

// Point is one frame's position. Z is ignored for 2D tables.
type Point struct {
	X, Y, Z float64
}

// Coord returns the coordinate for the named axis.
func (p Point) Coord(a Axis) (float64, bool) {
	switch a {
	case AxisX:
		return p.X, true
	case AxisY:
		return p.Y, true
	case AxisZ:
		return p.Z, true
	}
	return 0, false
}

// Table is an immutable, ordered sequence of frames. The frame index is
// the position in the sequence.
type Table struct {
	dims   int
	points []Point
}

// NewTable builds a table with the given dimensionality (2 or 3).
// The points slice is copied.
func NewTable(dims int, points []Point) (*Table, error) {
	if dims != 2 && dims != 3 {
		return nil, fmt.Errorf("trajectory: unsupported dimensionality %d", dims)
	}
	for i, p := range points {
		if !finite(p.X) || !finite(p.Y) || (dims == 3 && !finite(p.Z)) {
			return nil, fmt.Errorf("trajectory: non-finite coordinate at frame %d", i)
		}
	}
	cp := make([]Point, len(points))
	copy(cp, points)
	if dims == 2 {
		for i := range cp {
			cp[i].Z = 0
		}
	}
	return &Table{dims: dims, points: cp}, nil
}

// New2D is a convenience constructor for XY pairs.
func New2D(xy ...[2]float64) *Table {
	pts := make([]Point, len(xy))
	for i, v := range xy {
		pts[i] = Point{X: v[0], Y: v[1]}
	}
	return &Table{dims: 2, points: pts}
}

// New3D is a convenience constructor for XYZ triples.
func New3D(xyz ...[3]float64) *Table {
	pts := make([]Point, len(xyz))
	for i, v := range xyz {
		pts[i] = Point{X: v[0], Y: v[1], Z: v[2]}
	}
	return &Table{dims: 3, points: pts}
}

// Len returns the number of frames.
func (t *Table) Len() int { return len(t.points) }

// Dims returns 2 or 3.
func (t *Table) Dims() int { return t.dims }

// Is3D reports whether the table carries a Z column.
func (t *Table) Is3D() bool { return t.dims == 3 }

// Axes lists the axes present in the table.
func (t *Table) Axes() []Axis {
	if t.dims == 3 {
		return []Axis{AxisX, AxisY, AxisZ}
	}
	return []Axis{AxisX, AxisY}
}

// HasAxis reports whether the table carries the named axis.
func (t *Table) HasAxis(a Axis) bool {
	switch a {
	case AxisX, AxisY:
		return true
	case AxisZ:
		return t.dims == 3
	}
	return false
}

// At returns frame i.
func (t *Table) At(i int) Point { return t.points[i] }

// Points returns a copy of all frames.
func (t *Table) Points() []Point {
	cp := make([]Point, len(t.points))
	copy(cp, t.points)
	return cp
}

// Column returns a copy of one axis as a series.
func (t *Table) Column(a Axis) ([]float64, error) {
	if !t.HasAxis(a) {
		return nil, fmt.Errorf("trajectory: axis %q not present", a)
	}
	out := make([]float64, len(t.points))
	for i, p := range t.points {
		out[i], _ = p.Coord(a)
	}
	return out, nil
}

// Stride returns every n-th frame starting at frame 0. n <= 1 returns
// the table itself.
func (t *Table) Stride(n int) *Table {
	if n <= 1 {
		return t
	}
	pts := make([]Point, 0, (len(t.points)+n-1)/n)
	for i := 0; i < len(t.points); i += n {
		pts = append(pts, t.points[i])
	}
	return &Table{dims: t.dims, points: pts}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
