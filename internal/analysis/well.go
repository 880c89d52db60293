// Package analysis runs the per-well pipeline (load, kinematics, fractal
// estimate, report) and fans it out over a batch with a worker pool.
package analysis

import (
	"fmt"
	"time"

	"github.com/banshee-data/wormtrack/internal/config"
	"github.com/banshee-data/wormtrack/internal/fractal"
	"github.com/banshee-data/wormtrack/internal/kinematics"
	"github.com/banshee-data/wormtrack/internal/monitoring"
	"github.com/banshee-data/wormtrack/internal/report"
	"github.com/banshee-data/wormtrack/internal/trajectory"
)

// WellError attaches the identity of the failing well to any pipeline
// error. The cause stays reachable through errors.As / errors.Is.
type WellError struct {
	ID   report.Identity
	Path string
	Err  error
}

func (e *WellError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s (%s): %v", e.ID, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.ID, e.Err)
}

func (e *WellError) Unwrap() error { return e.Err }

// WellResult is the outcome of one well. Exactly one of Report, Err or
// Skipped is set.
type WellResult struct {
	ID         report.Identity
	Path       string
	Report     *report.Report
	Kinematics *kinematics.Result
	Fractal    *fractal.Result
	Plots      []string
	Elapsed    time.Duration
	Skipped    bool
	Err        error
}

// Analyze runs kinematics and the fractal estimator over one trajectory
// and assembles its report. The 3D estimator is used only when use3D is
// set and the table carries a Z column.
func Analyze(id report.Identity, t *trajectory.Table, cfg *config.AnalysisConfig, use3D bool) (*WellResult, error) {
	k, err := kinematics.Analyze(t, id.Well, cfg)
	if err != nil {
		return nil, &WellError{ID: id, Err: err}
	}

	var f *fractal.Result
	switch {
	case use3D && t.Is3D():
		f, err = fractal.Estimate3D(t)
	default:
		if use3D {
			monitoring.Debugf("%s: no Z column, using the 2D estimator", id)
		}
		f, err = fractal.Estimate2D(t)
	}
	if err != nil {
		return nil, &WellError{ID: id, Err: err}
	}

	rep, err := report.Build(id, k, f)
	if err != nil {
		return nil, &WellError{ID: id, Err: err}
	}

	return &WellResult{ID: id, Report: rep, Kinematics: k, Fractal: f}, nil
}
