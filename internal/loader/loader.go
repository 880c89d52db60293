// Package loader discovers per-well trajectory files inside batch
// directories and parses them into trajectory tables.
//
// A project is laid out as
//
//	<project>/Day <n>/<T> - <label>/Batch <k>/<...>Well <m>-position.csv
//
// where the treatment directory is matched by its "<T> - " prefix and
// every batch directory holds one trajectory file per well.
package loader

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/wormtrack/internal/fsutil"
	"github.com/banshee-data/wormtrack/internal/monitoring"
	"github.com/banshee-data/wormtrack/internal/trajectory"
)

// Convention describes how trajectory files and batch folders are named.
type Convention struct {
	// Indicator is a glob suffix every trajectory file name ends with.
	Indicator string
	// Separator precedes the well number; used when a batch has one file.
	Separator string
	// BatchFormat is a printf pattern with one %d, e.g. "Batch %d".
	BatchFormat string
}

// DefaultConvention matches the tracker's standard export names.
func DefaultConvention() Convention {
	return Convention{
		Indicator:   "-position*.csv",
		Separator:   "Well",
		BatchFormat: "Batch %d",
	}
}

// NotFoundError reports a directory without any matching trajectory file.
type NotFoundError struct {
	Dir     string
	Pattern string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no trajectory files matching %q in %s", e.Pattern, e.Dir)
}

// WellFile is one discovered trajectory file.
type WellFile struct {
	Well string
	Path string
}

// Well is a loaded trajectory.
type Well struct {
	ID    string
	Path  string
	Table *trajectory.Table
}

// BatchDir is a batch folder inside a treatment directory.
type BatchDir struct {
	Number int
	Name   string
	Path   string
	Files  int
}

// Loader reads trajectories through a FileSystem.
type Loader struct {
	fs   fsutil.FileSystem
	conv Convention
}

// New creates a Loader. Zero-valued convention fields take their defaults.
func New(fs fsutil.FileSystem, conv Convention) *Loader {
	def := DefaultConvention()
	if conv.Indicator == "" {
		conv.Indicator = def.Indicator
	}
	if conv.BatchFormat == "" {
		conv.BatchFormat = def.BatchFormat
	}
	return &Loader{fs: fs, conv: conv}
}

// Pattern is the glob used to find trajectory files.
func (l *Loader) Pattern() string {
	return "*" + l.conv.Indicator
}

// candidates lists file names in dir that match the pattern, sorted.
func (l *Loader) candidates(dir string) ([]string, error) {
	entries, err := l.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := filepath.Match(l.Pattern(), e.Name())
		if err != nil {
			return nil, fmt.Errorf("bad indicator %q: %w", l.conv.Indicator, err)
		}
		if ok {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Discover lists the trajectory files of a batch, keyed by well. Wells
// are sorted numerically when their IDs are numbers.
func (l *Loader) Discover(batchDir string) ([]WellFile, error) {
	names, err := l.candidates(batchDir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, &NotFoundError{Dir: batchDir, Pattern: l.Pattern()}
	}

	ids, err := WellIDs(names, l.conv.Separator, l.conv.Indicator)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", batchDir, err)
	}

	files := make([]WellFile, 0, len(names))
	for _, name := range names {
		files = append(files, WellFile{Well: ids[name], Path: filepath.Join(batchDir, name)})
	}
	sort.Slice(files, func(i, j int) bool { return lessID(files[i].Well, files[j].Well) })

	monitoring.Debugf("discovered %d trajectory files in %s", len(files), batchDir)
	return files, nil
}

// LoadWell parses one discovered file.
func (l *Loader) LoadWell(f WellFile) (*Well, error) {
	tbl, err := trajectory.Load(l.fs, f.Path)
	if err != nil {
		return nil, err
	}
	return &Well{ID: f.Well, Path: f.Path, Table: tbl}, nil
}

// LoadBatch discovers and parses every well of a batch. The first
// unreadable file aborts the batch.
func (l *Loader) LoadBatch(batchDir string) ([]*Well, error) {
	files, err := l.Discover(batchDir)
	if err != nil {
		return nil, err
	}
	wells := make([]*Well, 0, len(files))
	for _, f := range files {
		w, err := l.LoadWell(f)
		if err != nil {
			return nil, fmt.Errorf("well %s: %w", f.Well, err)
		}
		wells = append(wells, w)
	}
	return wells, nil
}

// ListBatches returns the batch folders of a treatment directory that hold
// at least one trajectory file, ordered by batch number.
func (l *Loader) ListBatches(treatmentDir string) ([]BatchDir, error) {
	entries, err := l.fs.ReadDir(treatmentDir)
	if err != nil {
		return nil, fmt.Errorf("read treatment directory %s: %w", treatmentDir, err)
	}

	var batches []BatchDir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, ok := l.batchNumber(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(treatmentDir, e.Name())
		names, err := l.candidates(path)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			monitoring.Debugf("skipping %s: no trajectory files", path)
			continue
		}
		batches = append(batches, BatchDir{Number: n, Name: e.Name(), Path: path, Files: len(names)})
	}
	if len(batches) == 0 {
		return nil, &NotFoundError{Dir: treatmentDir, Pattern: filepath.Join(strings.Replace(l.conv.BatchFormat, "%d", "*", 1), l.Pattern())}
	}

	sort.Slice(batches, func(i, j int) bool { return batches[i].Number < batches[j].Number })
	return batches, nil
}

func (l *Loader) batchNumber(name string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(name, l.conv.BatchFormat, &n); err != nil {
		return 0, false
	}
	return n, fmt.Sprintf(l.conv.BatchFormat, n) == name
}

// TreatmentDir finds "<project>/Day <day>/<treatment> - *".
func (l *Loader) TreatmentDir(projectDir, day, treatment string) (string, error) {
	dayDir := filepath.Join(projectDir, "Day "+day)
	entries, err := l.fs.ReadDir(dayDir)
	if err != nil {
		return "", fmt.Errorf("read day directory: %w", err)
	}
	prefix := treatment + " - "
	for _, e := range entries {
		if e.IsDir() && (strings.HasPrefix(e.Name(), prefix) || e.Name() == treatment) {
			return filepath.Join(dayDir, e.Name()), nil
		}
	}
	return "", &NotFoundError{Dir: dayDir, Pattern: prefix + "*"}
}

func lessID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
