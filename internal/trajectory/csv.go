package trajectory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/wormtrack/internal/fsutil"
)

// FormatError reports a trajectory file that cannot be interpreted.
type FormatError struct {
	Path   string
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("trajectory %s line %d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("trajectory %s: %s", e.Path, e.Reason)
}

// ParseCSV reads a trajectory: a header row, then one row per frame whose
// first column is a frame index (ignored) followed by exactly 2 (X, Y) or
// 3 (X, Y, Z) numeric columns. Blank lines are skipped.
func ParseCSV(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &FormatError{Path: name, Reason: "empty file"}
	}
	if err != nil {
		return nil, fmt.Errorf("read trajectory %s header: %w", name, err)
	}

	dims := len(header) - 1
	if dims != 2 && dims != 3 {
		return nil, &FormatError{Path: name, Line: 1, Reason: fmt.Sprintf("expected 2 or 3 coordinate columns, got %d", dims)}
	}

	var points []Point
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &FormatError{Path: name, Line: pe.Line, Reason: pe.Err.Error()}
			}
			return nil, fmt.Errorf("read trajectory %s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != dims+1 {
			return nil, &FormatError{Path: name, Line: line, Reason: fmt.Sprintf("expected %d columns, got %d", dims+1, len(rec))}
		}

		var vals [3]float64
		for i := 0; i < dims; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, &FormatError{Path: name, Line: line, Reason: fmt.Sprintf("column %q: %q is not numeric", header[i+1], rec[i+1])}
			}
			vals[i] = v
		}
		points = append(points, Point{X: vals[0], Y: vals[1], Z: vals[2]})
	}

	t, err := NewTable(dims, points)
	if err != nil {
		return nil, &FormatError{Path: name, Reason: err.Error()}
	}
	return t, nil
}

// Load opens and parses a trajectory file through fs.
func Load(fs fsutil.FileSystem, path string) (*Table, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trajectory: %w", err)
	}
	defer f.Close()
	return ParseCSV(f, path)
}
