// Package testutil provides shared test fixtures: synthetic trajectories
// and on-disk (or in-memory) project layouts.
package testutil

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/wormtrack/internal/fsutil"
)

// TrajectoryCSV renders points in the tracker export format: a header row
// followed by "frame,X,Y[,Z]" rows. All points must have the same length
// (2 or 3).
func TrajectoryCSV(points [][]float64) string {
	var b strings.Builder
	dims := 2
	if len(points) > 0 {
		dims = len(points[0])
	}
	b.WriteString("frame,X,Y")
	if dims == 3 {
		b.WriteString(",Z")
	}
	b.WriteByte('\n')
	for i, p := range points {
		fmt.Fprintf(&b, "%d", i)
		for _, v := range p {
			fmt.Fprintf(&b, ",%g", v)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Circle returns n points on a circle of radius r around (cx, cy),
// advancing step radians per frame.
func Circle(n int, cx, cy, r, step float64) [][]float64 {
	pts := make([][]float64, n)
	for i := range pts {
		a := float64(i) * step
		pts[i] = []float64{cx + r*math.Cos(a), cy + r*math.Sin(a)}
	}
	return pts
}

// Line returns n points moving by (dx, dy) per frame from (x0, y0).
func Line(n int, x0, y0, dx, dy float64) [][]float64 {
	pts := make([][]float64, n)
	for i := range pts {
		pts[i] = []float64{x0 + float64(i)*dx, y0 + float64(i)*dy}
	}
	return pts
}

// Zigzag returns n points alternating between two rows, which produces
// sharp turns at every interior vertex.
func Zigzag(n int, dx, amp float64) [][]float64 {
	pts := make([][]float64, n)
	for i := range pts {
		y := 0.0
		if i%2 == 1 {
			y = amp
		}
		pts[i] = []float64{float64(i) * dx, y}
	}
	return pts
}

// WriteBatch seeds a batch directory with one file per well, named
// "<prefix>Well <id>-position.csv".
func WriteBatch(t testing.TB, fs *fsutil.MemoryFileSystem, dir, prefix string, wells map[string][][]float64) {
	t.Helper()
	for id, pts := range wells {
		name := fmt.Sprintf("%sWell %s-position.csv", prefix, id)
		if err := fs.WriteFile(filepath.Join(dir, name), []byte(TrajectoryCSV(pts)), 0644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
}
