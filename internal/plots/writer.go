package plots

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/wormtrack/internal/config"
	"github.com/banshee-data/wormtrack/internal/fsutil"
	"github.com/banshee-data/wormtrack/internal/kinematics"
	"github.com/banshee-data/wormtrack/internal/report"
	"github.com/banshee-data/wormtrack/internal/security"
	"github.com/banshee-data/wormtrack/internal/trajectory"
)

// Writer saves per-well figures under Dir/Day <d>/<treatment>/.
type Writer struct {
	FS        fsutil.FileSystem
	Dir       string
	Width     int
	Height    int
	Histogram bool
}

// NewWriter returns a Writer configured from the run's plot settings.
func NewWriter(fs fsutil.FileSystem, cfg config.PlotsConfig) *Writer {
	return &Writer{
		FS:        fs,
		Dir:       cfg.Dir,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Histogram: cfg.Histogram,
	}
}

// WellDir is the directory figures for id are written to. Labels are
// sanitised into single path segments.
func (w *Writer) WellDir(id report.Identity) string {
	return filepath.Join(w.Dir,
		security.SanitizeSegment("Day "+id.Day),
		security.SanitizeSegment(id.Treatment))
}

// WriteWell renders the figures of one analysed well and returns the
// paths written.
func (w *Writer) WriteWell(id report.Identity, t *trajectory.Table, k *kinematics.Result, cfg *config.AnalysisConfig) ([]string, error) {
	dir := w.WellDir(id)
	if err := w.FS.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create plot dir %s: %w", dir, err)
	}

	var region *Region
	if center, err := cfg.RegionCenter(config.KeyCenter, id.Well); err == nil {
		region = &Region{Center: center, Radius: cfg.ThigmotaxisRange * cfg.ConversionRate}
	}

	p, err := TrajectoryPlot(t, id.String(), region)
	if err != nil {
		return nil, err
	}

	base := security.SanitizeSegment(id.Label())
	pngPath := filepath.Join(dir, base+".png")
	if err := w.write(pngPath, func(out io.Writer) error {
		return WritePNG(out, p, w.Width, w.Height)
	}); err != nil {
		return nil, err
	}
	written := []string{pngPath}

	if w.Histogram {
		htmlPath := filepath.Join(dir, base+" - angular velocity.html")
		if err := w.write(htmlPath, func(out io.Writer) error {
			return AngularVelocityHistogram(out, id.String(), k.Turning.Velocity.Samples, cfg.AVThreshold, kinematics.MaxAngularVelocity)
		}); err != nil {
			return nil, err
		}
		written = append(written, htmlPath)
	}

	return written, nil
}

func (w *Writer) write(path string, render func(io.Writer) error) (err error) {
	if err := security.ValidatePathWithinDirectory(path, w.Dir); err != nil {
		return err
	}
	f, err := w.FS.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := render(f); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return nil
}
