// Command wormtrack analyses the per-well trajectory files of a treatment
// (every batch) or of a single batch and prints one JSON report per well.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/banshee-data/wormtrack/internal/analysis"
	"github.com/banshee-data/wormtrack/internal/config"
	"github.com/banshee-data/wormtrack/internal/db"
	"github.com/banshee-data/wormtrack/internal/fsutil"
	"github.com/banshee-data/wormtrack/internal/loader"
	"github.com/banshee-data/wormtrack/internal/metrics"
	"github.com/banshee-data/wormtrack/internal/monitoring"
	"github.com/banshee-data/wormtrack/internal/plots"
	"github.com/banshee-data/wormtrack/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath   string
	projectDir   string
	treatmentDir string
	batchDir     string
	showVersion  bool
}

// run is main without the process exit, returning the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("wormtrack", flag.ContinueOnError)
	fset.SetOutput(stderr)

	var opts options
	fset.StringVar(&opts.configPath, "config", "", "YAML run configuration file")
	fset.StringVar(&opts.projectDir, "project", "", "Project directory containing \"Day N\" folders (with -name)")
	fset.StringVar(&opts.treatmentDir, "treatment", "", "Treatment directory; every \"Batch N\" folder is analysed")
	fset.StringVar(&opts.batchDir, "batch", "", "Single batch directory to analyse")
	fset.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	params := fset.String("params", "", "parameters.json (default: <treatment>/parameters.json, then built-in defaults)")
	day := fset.String("day", "", "Day label")
	name := fset.String("name", "", "Treatment label (default: taken from the treatment directory name)")
	interval := fset.Int("interval", 0, "Turning-angle interval in frames; must divide the frame rate (0 = frame rate)")
	workers := fset.Int("workers", 0, "Concurrent wells")
	dbPath := fset.String("db", "", "SQLite database for runs and reports")
	plotDir := fset.String("plots", "", "Directory for per-well plots")
	use3D := fset.Bool("3d", false, "Use the 3D fractal estimator when trajectories carry a Z column")
	overwrite := fset.Bool("overwrite", false, "Re-analyse wells already stored in -db")
	metricsOut := fset.String("metrics-out", "", "Write Prometheus metrics to this textfile after the run")
	logLevel := fset.String("log-level", "", "debug, info, warn or error")

	if err := fset.Parse(args); err != nil {
		return 2
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "wormtrack %s\n", version.String())
		return 0
	}

	cfg, err := config.LoadRunConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "wormtrack: %v\n", err)
		return 2
	}

	// Flags given on the command line override the file and environment.
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "params":
			cfg.ParamsPath = *params
		case "day":
			cfg.Day = *day
		case "name":
			cfg.Treatment = *name
		case "interval":
			cfg.Interval = *interval
		case "workers":
			cfg.Workers = *workers
		case "db":
			cfg.DB.Path = *dbPath
		case "plots":
			cfg.Plots.Dir = *plotDir
		case "3d":
			cfg.Use3D = *use3D
		case "overwrite":
			cfg.Overwrite = *overwrite
		case "metrics-out":
			cfg.Metrics.OutPath = *metricsOut
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "wormtrack: %v\n", err)
		return 2
	}

	monitoring.Init(monitoring.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: stderr})

	code, err := analyse(ctx, cfg, opts, stdout)
	if err != nil {
		monitoring.Logger().Error().Err(err).Msg("run failed")
	}

	if cfg.Metrics.OutPath != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.OutPath); err != nil {
			monitoring.Logger().Warn().Err(err).Str("path", cfg.Metrics.OutPath).Msg("failed to write metrics")
		}
	}
	return code
}

// analyse resolves the input, runs every well and writes the reports.
// The exit code is 1 if any well or batch failed.
func analyse(ctx context.Context, cfg *config.RunConfig, opts options, stdout io.Writer) (int, error) {
	fs := fsutil.OSFileSystem{}
	l := loader.New(fs, loader.Convention{
		Indicator:   cfg.Loader.Indicator,
		Separator:   cfg.Loader.Separator,
		BatchFormat: cfg.Loader.BatchFormat,
	})

	treatmentDir, batches, err := resolveInput(l, cfg, opts)
	if err != nil {
		return 1, err
	}
	if cfg.Treatment == "" {
		cfg.Treatment = treatmentLabel(treatmentDir)
	}

	params, err := loadParameters(fs, cfg.ParamsPath, treatmentDir)
	if err != nil {
		return 1, err
	}
	acfg, err := params.Analysis(cfg.Interval)
	if err != nil {
		return 1, err
	}

	ropts := analysis.Options{
		Workers:   cfg.Workers,
		Use3D:     cfg.Use3D,
		Overwrite: cfg.Overwrite,
		Progress: func(done, total int, res analysis.WellResult) {
			monitoring.Logf("[analysis] %d/%d %s", done, total, res.ID.Label())
		},
	}

	if cfg.DB.Path != "" {
		store, err := db.NewDB(cfg.DB.Path)
		if err != nil {
			return 1, err
		}
		defer store.Close()
		run, err := store.CreateRun(cfg.Day, cfg.Treatment, params)
		if err != nil {
			return 1, err
		}
		monitoring.Logger().Info().Str("run", run.ID).Str("db", cfg.DB.Path).Msg("recording run")
		ropts.Store = store
		ropts.RunID = run.ID
	}
	if cfg.Plots.Dir != "" {
		ropts.Plotter = plots.NewWriter(fs, cfg.Plots)
	}

	jobs, planErr := analysis.Plan(l, cfg.Day, cfg.Treatment, batches)
	if planErr != nil {
		monitoring.Logger().Error().Err(planErr).Msg("some batches could not be read")
	}

	runner := analysis.NewRunner(l, acfg, ropts)
	results, runErr := runner.Run(ctx, jobs)

	if err := writeResults(stdout, results); err != nil {
		return 1, err
	}

	state := runner.GetState()
	monitoring.Logger().Info().
		Str("day", cfg.Day).Str("treatment", cfg.Treatment).
		Int("wells", state.Total).Int("failed", state.Failed).Int("skipped", state.Skipped).
		Msg("run finished")

	if planErr != nil || runErr != nil {
		return 1, nil
	}
	return 0, nil
}

// resolveInput turns the location flags into a treatment directory and
// the batches to analyse.
func resolveInput(l *loader.Loader, cfg *config.RunConfig, opts options) (string, []loader.BatchDir, error) {
	switch {
	case opts.batchDir != "":
		dir := filepath.Clean(opts.batchDir)
		var n int
		if _, err := fmt.Sscanf(filepath.Base(dir), cfg.Loader.BatchFormat, &n); err != nil {
			n = 1
		}
		return filepath.Dir(dir), []loader.BatchDir{{Number: n, Name: filepath.Base(dir), Path: dir}}, nil

	case opts.treatmentDir != "" || opts.projectDir != "":
		dir := opts.treatmentDir
		if dir == "" {
			if cfg.Treatment == "" {
				return "", nil, errors.New("-project needs -name to pick the treatment")
			}
			var err error
			dir, err = l.TreatmentDir(opts.projectDir, cfg.Day, cfg.Treatment)
			if err != nil {
				return "", nil, err
			}
		}
		batches, err := l.ListBatches(dir)
		if err != nil {
			return "", nil, err
		}
		return dir, batches, nil

	default:
		return "", nil, errors.New("one of -batch, -treatment or -project is required")
	}
}

// loadParameters reads path, or parameters.json beside the treatment, or
// falls back to the built-in defaults.
func loadParameters(fs fsutil.FileSystem, path, treatmentDir string) (*config.Parameters, error) {
	if path != "" {
		return config.LoadParameters(fs, path)
	}
	local := filepath.Join(treatmentDir, config.DefaultParamsFileName)
	if fs.Exists(local) {
		return config.LoadParameters(fs, local)
	}
	monitoring.Logger().Warn().Str("searched", local).Msg("no parameters file, using built-in defaults")
	return config.DefaultParameters(), nil
}

// treatmentLabel takes "<T> - description" to "<T>".
func treatmentLabel(dir string) string {
	base := filepath.Base(dir)
	if i := strings.Index(base, " - "); i > 0 {
		return base[:i]
	}
	return base
}
