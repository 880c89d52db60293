package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/wormtrack/internal/config"
	"github.com/banshee-data/wormtrack/internal/kinematics"
	"github.com/banshee-data/wormtrack/internal/loader"
	"github.com/banshee-data/wormtrack/internal/metrics"
	"github.com/banshee-data/wormtrack/internal/monitoring"
	"github.com/banshee-data/wormtrack/internal/report"
	"github.com/banshee-data/wormtrack/internal/timeutil"
	"github.com/banshee-data/wormtrack/internal/trajectory"
)

// ErrRunning is returned when Run is called on a busy runner.
var ErrRunning = errors.New("analysis already running")

// Status is the lifecycle state of a Runner.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// Job is one well to analyse.
type Job struct {
	ID   report.Identity
	Path string
}

// Store persists reports. *db.DB satisfies it.
type Store interface {
	HasReport(id report.Identity) (bool, error)
	SaveReport(runID string, rep *report.Report, elapsed time.Duration) error
}

// Plotter renders figures for an analysed well. *plots.Writer satisfies it.
type Plotter interface {
	WriteWell(id report.Identity, t *trajectory.Table, k *kinematics.Result, cfg *config.AnalysisConfig) ([]string, error)
}

// ProgressFunc is called once per finished well, never concurrently.
type ProgressFunc func(done, total int, res WellResult)

// Options tune a Runner. Store, Plotter and Progress are optional.
type Options struct {
	Workers   int
	Use3D     bool
	Overwrite bool
	RunID     string
	Store     Store
	Plotter   Plotter
	Progress  ProgressFunc
	Clock     timeutil.Clock
}

// State is a snapshot of a run.
type State struct {
	Status      Status     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	Errors      []string   `json:"errors,omitempty"`
}

// Runner analyses wells concurrently. Every worker shares the same
// read-only AnalysisConfig.
type Runner struct {
	loader *loader.Loader
	cfg    *config.AnalysisConfig
	opts   Options

	mu    sync.RWMutex
	state State

	done       atomic.Int64
	progressMu sync.Mutex
}

// NewRunner creates a runner. Workers below one are treated as one.
func NewRunner(l *loader.Loader, cfg *config.AnalysisConfig, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Runner{
		loader: l,
		cfg:    cfg,
		opts:   opts,
		state:  State{Status: StatusIdle},
	}
}

// GetState returns a copy of the current run state.
func (r *Runner) GetState() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := r.state
	state.Errors = append([]string(nil), r.state.Errors...)
	return state
}

// Plan lists the jobs of the given batches in batch then well order. A
// batch whose files cannot be discovered contributes an error and no
// jobs; the remaining batches are still planned.
func Plan(l *loader.Loader, day, treatment string, batches []loader.BatchDir) ([]Job, error) {
	var jobs []Job
	var errs []error
	for _, b := range batches {
		files, err := l.Discover(b.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("batch %d: %w", b.Number, err))
			continue
		}
		metrics.BatchesDiscovered.Inc()
		for _, f := range files {
			jobs = append(jobs, Job{
				ID:   report.Identity{Day: day, Treatment: treatment, Batch: b.Number, Well: f.Well},
				Path: f.Path,
			})
		}
	}
	return jobs, errors.Join(errs...)
}

// Run analyses every job and returns one result per job, in job order.
// Failed wells carry a *WellError and do not stop the others; the
// returned error joins all of them. Cancelling ctx abandons wells that
// have not started yet, which are reported with the context error.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]WellResult, error) {
	r.mu.Lock()
	if r.state.Status == StatusRunning {
		r.mu.Unlock()
		return nil, ErrRunning
	}
	now := r.opts.Clock.Now()
	r.state = State{Status: StatusRunning, StartedAt: &now, Total: len(jobs)}
	r.mu.Unlock()
	r.done.Store(0)

	monitoring.Logf("[analysis] starting %d wells with %d workers", len(jobs), r.opts.Workers)

	results := make([]WellResult, len(jobs))
	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < r.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				results[i] = r.process(ctx, jobs[i])
				r.record(results[i])
			}
		}()
	}
	for i := range jobs {
		idx <- i
	}
	close(idx)
	wg.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}

	r.mu.Lock()
	end := r.opts.Clock.Now()
	r.state.CompletedAt = &end
	r.state.Status = StatusComplete
	if ctx.Err() != nil {
		r.state.Status = StatusCancelled
	}
	final := r.state
	r.mu.Unlock()

	monitoring.Logf("[analysis] %s: %d ok, %d failed, %d skipped",
		final.Status, final.Completed-final.Failed-final.Skipped, final.Failed, final.Skipped)
	return results, errors.Join(errs...)
}

// process runs one job. It never panics on bad data and always returns a
// result for the job.
func (r *Runner) process(ctx context.Context, job Job) WellResult {
	res := WellResult{ID: job.ID, Path: job.Path}
	fail := func(err error) WellResult {
		var we *WellError
		if !errors.As(err, &we) {
			we = &WellError{ID: job.ID, Err: err}
		}
		we.Path = job.Path
		res.Err = we
		res.Report, res.Kinematics, res.Fractal, res.Plots = nil, nil, nil, nil
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	metrics.WellsInFlight.Inc()
	defer metrics.WellsInFlight.Dec()
	start := r.opts.Clock.Now()

	if r.opts.Store != nil && !r.opts.Overwrite {
		has, err := r.opts.Store.HasReport(job.ID)
		if err != nil {
			return fail(err)
		}
		if has {
			res.Skipped = true
			return res
		}
	}

	well, err := r.loader.LoadWell(loader.WellFile{Well: job.ID.Well, Path: job.Path})
	if err != nil {
		return fail(err)
	}

	out, err := Analyze(job.ID, well.Table, r.cfg, r.opts.Use3D)
	if err != nil {
		return fail(err)
	}
	res.Report, res.Kinematics, res.Fractal = out.Report, out.Kinematics, out.Fractal

	if r.opts.Plotter != nil {
		paths, err := r.opts.Plotter.WriteWell(job.ID, well.Table, out.Kinematics, r.cfg)
		if err != nil {
			return fail(fmt.Errorf("plot: %w", err))
		}
		res.Plots = paths
	}

	res.Elapsed = r.opts.Clock.Since(start)

	if r.opts.Store != nil {
		if err := r.opts.Store.SaveReport(r.opts.RunID, res.Report, res.Elapsed); err != nil {
			return fail(fmt.Errorf("store: %w", err))
		}
	}
	return res
}

// record folds one result into the shared state, metrics and progress
// sink.
func (r *Runner) record(res WellResult) {
	status := metrics.StatusOK
	log := monitoring.Logger()
	switch {
	case res.Err != nil:
		status = metrics.StatusFailed
		log.Error().Err(res.Err).
			Str("day", res.ID.Day).Str("treatment", res.ID.Treatment).
			Int("batch", res.ID.Batch).Str("well", res.ID.Well).
			Msg("well failed")
	case res.Skipped:
		status = metrics.StatusSkipped
		log.Info().Int("batch", res.ID.Batch).Str("well", res.ID.Well).Msg("well already analysed, skipping")
	default:
		log.Debug().Int("batch", res.ID.Batch).Str("well", res.ID.Well).
			Dur("elapsed", res.Elapsed).Msg("well analysed")
	}

	corrections := 0
	if res.Kinematics != nil {
		corrections = res.Kinematics.Speed.Corrections
	}
	metrics.ObserveWell(status, res.Elapsed, corrections)

	r.mu.Lock()
	r.state.Completed++
	switch status {
	case metrics.StatusFailed:
		r.state.Failed++
		r.state.Errors = append(r.state.Errors, res.Err.Error())
	case metrics.StatusSkipped:
		r.state.Skipped++
	}
	total := r.state.Total
	r.mu.Unlock()

	r.progressMu.Lock()
	done := int(r.done.Add(1))
	if r.opts.Progress != nil {
		r.opts.Progress(done, total, res)
	}
	r.progressMu.Unlock()
}
