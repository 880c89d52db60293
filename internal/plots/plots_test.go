package plots

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wormtrack/internal/config"
	"github.com/banshee-data/wormtrack/internal/fsutil"
	"github.com/banshee-data/wormtrack/internal/kinematics"
	"github.com/banshee-data/wormtrack/internal/report"
	"github.com/banshee-data/wormtrack/internal/testutil"
	"github.com/banshee-data/wormtrack/internal/trajectory"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func circleTable(t *testing.T, n int) *trajectory.Table {
	t.Helper()
	pts := testutil.Circle(n, 252, 209, 60, 0.05)
	table, err := trajectory.ParseCSV(bytes.NewBufferString(testutil.TrajectoryCSV(pts)), "circle.csv")
	require.NoError(t, err)
	return table
}

func TestHistogramBins(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		want    []int
	}{
		{"empty", nil, []int{0, 0, 0, 0}},
		{"edges", []float64{0, 9.99, 10, 29.5, 30}, []int{2, 1, 1, 1}},
		{"clamped", []float64{-1, 45}, []int{1, 0, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HistogramBins(tt.samples, 10, 30))
		})
	}
}

func TestAngularVelocityHistogram(t *testing.T) {
	var buf bytes.Buffer
	err := AngularVelocityHistogram(&buf, "Batch 1 - Well 1", []float64{5, 15, 95, 170}, 90, kinematics.MaxAngularVelocity)
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Batch 1 - Well 1")
	assert.Contains(t, html, "slow")
	assert.Contains(t, html, "fast")
}

func TestTrajectoryPlot(t *testing.T) {
	table := circleTable(t, 50)

	p, err := TrajectoryPlot(table, "circle", &Region{Center: config.Point{"X": 252, "Y": 209}, Radius: 30})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, p, 200, 150))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestTrajectoryPlot_Errors(t *testing.T) {
	empty, err := trajectory.NewTable(2, nil)
	require.NoError(t, err)
	_, err = TrajectoryPlot(empty, "empty", nil)
	assert.Error(t, err)

	_, err = TrajectoryPlot(circleTable(t, 10), "bad region", &Region{Center: config.Point{"X": 1}, Radius: 1})
	assert.ErrorContains(t, err, "X and Y")
}

func TestWriterWriteWell(t *testing.T) {
	cfg, err := config.DefaultParameters().Analysis(0)
	require.NoError(t, err)
	table := circleTable(t, 120)
	k, err := kinematics.Analyze(table, "1", cfg)
	require.NoError(t, err)

	fs := fsutil.NewMemoryFileSystem()
	w := NewWriter(fs, config.PlotsConfig{Dir: "/out", Width: 300, Height: 300, Histogram: true})
	id := report.Identity{Day: "1", Treatment: "Control", Batch: 2, Well: "1"}

	paths, err := w.WriteWell(id, table, k, cfg)
	require.NoError(t, err)

	dir := filepath.Join("/out", "Day 1", "Control")
	assert.Equal(t, []string{
		filepath.Join(dir, "Batch 2 - Well 1.png"),
		filepath.Join(dir, "Batch 2 - Well 1 - angular velocity.html"),
	}, paths)

	png, err := fs.ReadFile(paths[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	html, err := fs.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(html), "degree/s")
}

func TestWriterWriteWell_NoHistogram(t *testing.T) {
	cfg, err := config.DefaultParameters().Analysis(0)
	require.NoError(t, err)
	table := circleTable(t, 120)
	k, err := kinematics.Analyze(table, "1", cfg)
	require.NoError(t, err)

	fs := fsutil.NewMemoryFileSystem()
	w := NewWriter(fs, config.PlotsConfig{Dir: "/out", Width: 300, Height: 300})
	paths, err := w.WriteWell(report.Identity{Day: "1", Treatment: "T", Batch: 1, Well: "1"}, table, k, cfg)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestWriterWellDir_Sanitised(t *testing.T) {
	w := NewWriter(fsutil.NewMemoryFileSystem(), config.PlotsConfig{Dir: "/out"})
	dir := w.WellDir(report.Identity{Day: "../1", Treatment: "../../etc", Batch: 1, Well: "1"})
	assert.Equal(t, filepath.Join("/out", "Day .._1", ".._.._etc"), dir)
}
