package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wormtrack/internal/config"
	"github.com/banshee-data/wormtrack/internal/fractal"
	"github.com/banshee-data/wormtrack/internal/fsutil"
	"github.com/banshee-data/wormtrack/internal/kinematics"
	"github.com/banshee-data/wormtrack/internal/loader"
	"github.com/banshee-data/wormtrack/internal/report"
	"github.com/banshee-data/wormtrack/internal/testutil"
	"github.com/banshee-data/wormtrack/internal/timeutil"
	"github.com/banshee-data/wormtrack/internal/trajectory"
)

const treatmentDir = "/proj/Day 1/Control - wild type"

func analysisConfig(t *testing.T) *config.AnalysisConfig {
	t.Helper()
	cfg, err := config.DefaultParameters().Analysis(0)
	require.NoError(t, err)
	return cfg
}

func swim(cx, cy float64) [][]float64 {
	return testutil.Circle(120, cx, cy, 40, 0.05)
}

// seedProject writes two batches: batch 1 with wells 1 and 2, batch 2
// with well 1 and a malformed well 3.
func seedProject(t *testing.T) (*fsutil.MemoryFileSystem, *loader.Loader) {
	t.Helper()
	fs := fsutil.NewMemoryFileSystem()
	testutil.WriteBatch(t, fs, filepath.Join(treatmentDir, "Batch 1"), "Track", map[string][][]float64{
		"1": swim(252, 209),
		"2": swim(765, 210),
	})
	testutil.WriteBatch(t, fs, filepath.Join(treatmentDir, "Batch 2"), "Track", map[string][][]float64{
		"1": swim(252, 209),
	})
	bad := filepath.Join(treatmentDir, "Batch 2", "TrackWell 3-position.csv")
	require.NoError(t, fs.WriteFile(bad, []byte("frame,X,Y\n0,1,2\n1,oops,3\n"), 0644))
	return fs, loader.New(fs, loader.DefaultConvention())
}

func plan(t *testing.T, l *loader.Loader) []Job {
	t.Helper()
	batches, err := l.ListBatches(treatmentDir)
	require.NoError(t, err)
	jobs, err := Plan(l, "1", "Control", batches)
	require.NoError(t, err)
	return jobs
}

type memStore struct {
	mu      sync.Mutex
	reports map[report.Identity]*report.Report
	runIDs  map[report.Identity]string
}

func newMemStore() *memStore {
	return &memStore{reports: map[report.Identity]*report.Report{}, runIDs: map[report.Identity]string{}}
}

func (s *memStore) HasReport(id report.Identity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reports[id]
	return ok, nil
}

func (s *memStore) SaveReport(runID string, rep *report.Report, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[rep.Identity] = rep
	s.runIDs[rep.Identity] = runID
	return nil
}

type countingPlotter struct {
	mu    sync.Mutex
	wells []report.Identity
}

func (p *countingPlotter) WriteWell(id report.Identity, _ *trajectory.Table, _ *kinematics.Result, _ *config.AnalysisConfig) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wells = append(p.wells, id)
	return []string{id.Label() + ".png"}, nil
}

func TestAnalyze(t *testing.T) {
	t.Parallel()
	cfg := analysisConfig(t)
	tbl, err := trajectory.NewTable(2, toPoints(swim(252, 209)))
	require.NoError(t, err)
	id := report.Identity{Day: "1", Treatment: "Control", Batch: 1, Well: "1"}

	res, err := Analyze(id, tbl, cfg, false)
	require.NoError(t, err)
	assert.Equal(t, id, res.Report.Identity)
	assert.Len(t, res.Report.Metrics, 19)
	assert.NotNil(t, res.Kinematics)
	assert.NotNil(t, res.Fractal)

	fd, ok := res.Report.Get(report.FractalDimension)
	require.True(t, ok)
	assert.Equal(t, res.Fractal.Dimension, fd.Value)
}

func TestAnalyze_Use3D(t *testing.T) {
	t.Parallel()
	cfg := analysisConfig(t)
	id := report.Identity{Day: "1", Treatment: "Control", Batch: 1, Well: "1"}

	small := testutil.Circle(120, 252, 209, 4, 0.05)
	flat, err := trajectory.NewTable(2, toPoints(small))
	require.NoError(t, err)
	res2D, err := Analyze(id, flat, cfg, true)
	require.NoError(t, err, "2D table falls back to the 2D estimator")

	pts := toPoints(small)
	for i := range pts {
		pts[i].Z = float64(i%2) * 0.5
	}
	deep, err := trajectory.NewTable(3, pts)
	require.NoError(t, err)
	res3D, err := Analyze(id, deep, cfg, true)
	require.NoError(t, err)
	assert.NotEqual(t, res2D.Fractal.Dimension, res3D.Fractal.Dimension)
}

func TestAnalyze_Errors(t *testing.T) {
	t.Parallel()
	cfg := analysisConfig(t)

	tests := []struct {
		name  string
		well  string
		pts   [][]float64
		check func(t *testing.T, err error)
	}{
		{
			name: "too short for turning",
			well: "1",
			pts:  testutil.Line(20, 0, 0, 1, 0),
			check: func(t *testing.T, err error) {
				var ie *kinematics.IntegrityError
				assert.ErrorAs(t, err, &ie)
			},
		},
		{
			name: "well without centre",
			well: "9",
			pts:  swim(0, 0),
			check: func(t *testing.T, err error) {
				var ce *config.ConfigError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, "CENTER.9", ce.Field)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := trajectory.NewTable(2, toPoints(tt.pts))
			require.NoError(t, err)
			id := report.Identity{Day: "2", Treatment: "Drug", Batch: 4, Well: tt.well}

			_, err = Analyze(id, tbl, cfg, false)
			require.Error(t, err)

			var we *WellError
			require.ErrorAs(t, err, &we)
			assert.Equal(t, id, we.ID)
			assert.Contains(t, err.Error(), "day 2 treatment Drug Batch 4 - Well "+tt.well)
			tt.check(t, err)
		})
	}
}

func TestAnalyze_InsufficientFractalData(t *testing.T) {
	t.Parallel()
	params := config.DefaultParameters()
	cfg, err := params.Analysis(1)
	require.NoError(t, err)

	tbl, err := trajectory.NewTable(2, toPoints(testutil.Line(10, 252, 209, 1, 0)))
	require.NoError(t, err)
	_, err = Analyze(report.Identity{Day: "1", Treatment: "T", Batch: 1, Well: "1"}, tbl, cfg, false)
	assert.ErrorIs(t, err, fractal.ErrInsufficientData)
}

func TestPlan(t *testing.T) {
	t.Parallel()
	_, l := seedProject(t)
	jobs := plan(t, l)

	var labels []string
	for _, j := range jobs {
		labels = append(labels, j.ID.Label())
	}
	assert.Equal(t, []string{
		"Batch 1 - Well 1", "Batch 1 - Well 2",
		"Batch 2 - Well 1", "Batch 2 - Well 3",
	}, labels)
	assert.Equal(t, filepath.Join(treatmentDir, "Batch 1", "TrackWell 2-position.csv"), jobs[1].Path)
}

func TestPlan_MissingBatch(t *testing.T) {
	t.Parallel()
	_, l := seedProject(t)
	batches := []loader.BatchDir{
		{Number: 1, Path: filepath.Join(treatmentDir, "Batch 1")},
		{Number: 7, Path: filepath.Join(treatmentDir, "Batch 7")},
	}
	jobs, err := Plan(l, "1", "Control", batches)
	assert.Len(t, jobs, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch 7")
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()
	_, l := seedProject(t)
	jobs := plan(t, l)

	var progress []int
	plotter := &countingPlotter{}
	r := NewRunner(l, analysisConfig(t), Options{
		Workers: 3,
		Plotter: plotter,
		Progress: func(done, total int, _ WellResult) {
			assert.Equal(t, 4, total)
			progress = append(progress, done)
		},
	})

	results, err := r.Run(context.Background(), jobs)
	require.Error(t, err)
	require.Len(t, results, 4)

	for i, res := range results {
		assert.Equal(t, jobs[i].ID, res.ID, "results keep job order")
	}
	for _, res := range results[:3] {
		require.NoError(t, res.Err)
		assert.NotNil(t, res.Report)
		assert.Len(t, res.Plots, 1)
	}

	bad := results[3]
	require.Error(t, bad.Err)
	var we *WellError
	require.ErrorAs(t, bad.Err, &we)
	assert.Equal(t, "3", we.ID.Well)
	assert.Equal(t, jobs[3].Path, we.Path)
	var fe *trajectory.FormatError
	assert.ErrorAs(t, err, &fe, "joined error exposes the cause")

	assert.Equal(t, []int{1, 2, 3, 4}, progress)
	assert.Len(t, plotter.wells, 3)

	state := r.GetState()
	assert.Equal(t, StatusComplete, state.Status)
	assert.Equal(t, 4, state.Total)
	assert.Equal(t, 4, state.Completed)
	assert.Equal(t, 1, state.Failed)
	assert.Len(t, state.Errors, 1)
	require.NotNil(t, state.StartedAt)
	require.NotNil(t, state.CompletedAt)
}

func TestRunner_StoreSkipsExisting(t *testing.T) {
	t.Parallel()
	_, l := seedProject(t)
	jobs := plan(t, l)[:3]
	store := newMemStore()

	first := NewRunner(l, analysisConfig(t), Options{Workers: 2, Store: store, RunID: "run-1"})
	_, err := first.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Len(t, store.reports, 3)

	second := NewRunner(l, analysisConfig(t), Options{Workers: 2, Store: store, RunID: "run-2"})
	results, err := second.Run(context.Background(), jobs)
	require.NoError(t, err)
	for _, res := range results {
		assert.True(t, res.Skipped)
		assert.Nil(t, res.Report)
	}
	assert.Equal(t, 3, second.GetState().Skipped)
	assert.Equal(t, "run-1", store.runIDs[jobs[0].ID])

	third := NewRunner(l, analysisConfig(t), Options{Workers: 2, Store: store, RunID: "run-3", Overwrite: true})
	_, err = third.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Zero(t, third.GetState().Skipped)
	assert.Equal(t, "run-3", store.runIDs[jobs[0].ID])
}

type failingStore struct {
	*memStore
	err error
}

func (s *failingStore) SaveReport(string, *report.Report, time.Duration) error { return s.err }

type failingPlotter struct{ err error }

func (p failingPlotter) WriteWell(report.Identity, *trajectory.Table, *kinematics.Result, *config.AnalysisConfig) ([]string, error) {
	return nil, p.err
}

func TestRunner_LateFailureDropsReport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"store", Options{Workers: 1, Store: &failingStore{memStore: newMemStore(), err: errors.New("disk full")}}, "store: disk full"},
		{"plot", Options{Workers: 1, Plotter: failingPlotter{err: errors.New("no font")}}, "plot: no font"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, l := seedProject(t)
			jobs := plan(t, l)[:1]

			r := NewRunner(l, analysisConfig(t), tt.opts)
			results, err := r.Run(context.Background(), jobs)
			require.Error(t, err)
			require.Len(t, results, 1)

			res := results[0]
			var we *WellError
			require.ErrorAs(t, res.Err, &we)
			assert.Contains(t, we.Error(), tt.want)
			assert.Equal(t, jobs[0].Path, we.Path)
			assert.Nil(t, res.Report)
			assert.Nil(t, res.Kinematics)
			assert.Nil(t, res.Fractal)
			assert.Empty(t, res.Plots)
			assert.False(t, res.Skipped)

			state := r.GetState()
			assert.Equal(t, 1, state.Failed)
			assert.Len(t, state.Errors, 1)
		})
	}
}

func TestRunner_Cancelled(t *testing.T) {
	t.Parallel()
	_, l := seedProject(t)
	jobs := plan(t, l)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(l, analysisConfig(t), Options{Workers: 2})
	results, err := r.Run(ctx, jobs)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, len(jobs))
	for _, res := range results {
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
	assert.Equal(t, StatusCancelled, r.GetState().Status)
}

func TestRunner_Elapsed(t *testing.T) {
	t.Parallel()
	_, l := seedProject(t)
	jobs := plan(t, l)[:1]

	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	clock.AutoAdvance(250 * time.Millisecond)
	r := NewRunner(l, analysisConfig(t), Options{Workers: 1, Clock: clock})
	results, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, results[0].Elapsed)
}

func TestRunner_Busy(t *testing.T) {
	t.Parallel()
	_, l := seedProject(t)
	r := NewRunner(l, analysisConfig(t), Options{})
	r.state.Status = StatusRunning

	_, err := r.Run(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrRunning))
}

func toPoints(pts [][]float64) []trajectory.Point {
	out := make([]trajectory.Point, len(pts))
	for i, p := range pts {
		out[i] = trajectory.Point{X: p[0], Y: p[1]}
	}
	return out
}
