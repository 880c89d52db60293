// Package plots renders per-well figures: the swim path as a PNG
// (gonum/plot) and the angular-velocity distribution as an HTML bar chart
// (go-echarts).
package plots

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/wormtrack/internal/config"
	"github.com/banshee-data/wormtrack/internal/trajectory"
)

// circleSegments is the polygon resolution of the region outline.
const circleSegments = 72

var (
	pathColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	regionColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Region is an optional circular zone drawn over the path, in raw
// tracker units.
type Region struct {
	Center config.Point
	Radius float64
}

// TrajectoryPlot draws the XY path of t, with start and end markers and
// an optional region outline.
func TrajectoryPlot(t *trajectory.Table, title string, region *Region) (*plot.Plot, error) {
	if t.Len() == 0 {
		return nil, fmt.Errorf("plot %q: empty trajectory", title)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"

	pts := make(plotter.XYs, t.Len())
	for i := range pts {
		pt := t.At(i)
		pts[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("plot %q: %w", title, err)
	}
	line.Width = vg.Points(1)
	line.Color = pathColor
	p.Add(line)

	ends, err := plotter.NewScatter(plotter.XYs{pts[0], pts[len(pts)-1]})
	if err != nil {
		return nil, fmt.Errorf("plot %q: %w", title, err)
	}
	ends.GlyphStyle.Shape = draw.CircleGlyph{}
	ends.GlyphStyle.Radius = vg.Points(3)
	p.Add(ends)

	if region != nil {
		outline, err := regionOutline(region)
		if err != nil {
			return nil, fmt.Errorf("plot %q: %w", title, err)
		}
		p.Add(outline)
	}

	p.Add(plotter.NewGrid())
	return p, nil
}

func regionOutline(r *Region) (*plotter.Line, error) {
	cx, okX := r.Center["X"]
	cy, okY := r.Center["Y"]
	if !okX || !okY {
		return nil, fmt.Errorf("region centre needs X and Y")
	}
	pts := make(plotter.XYs, circleSegments+1)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = plotter.XY{X: cx + r.Radius*math.Cos(a), Y: cy + r.Radius*math.Sin(a)}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = regionColor
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	return line, nil
}

// WritePNG encodes p at width x height pixels.
func WritePNG(w io.Writer, p *plot.Plot, width, height int) error {
	wt, err := p.WriterTo(pixels(width), pixels(height), "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// pixels converts a pixel count at the default 96 dpi to a vg.Length.
func pixels(n int) vg.Length {
	return vg.Length(n) * vg.Inch / 96
}
