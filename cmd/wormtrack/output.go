package main

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/banshee-data/wormtrack/internal/analysis"
	"github.com/banshee-data/wormtrack/internal/report"
)

type wellOutput struct {
	Day       string         `json:"day"`
	Treatment string         `json:"treatment"`
	Batch     int            `json:"batch"`
	Well      string         `json:"well"`
	Label     string         `json:"label"`
	Path      string         `json:"path"`
	ElapsedMs int64          `json:"elapsed_ms"`
	Skipped   bool           `json:"skipped,omitempty"`
	Plots     []string       `json:"plots,omitempty"`
	Metrics   *report.Report `json:"metrics,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func toOutput(res analysis.WellResult) wellOutput {
	out := wellOutput{
		Day:       res.ID.Day,
		Treatment: res.ID.Treatment,
		Batch:     res.ID.Batch,
		Well:      res.ID.Well,
		Label:     res.ID.Label(),
		Path:      res.Path,
		ElapsedMs: res.Elapsed.Milliseconds(),
		Skipped:   res.Skipped,
		Plots:     res.Plots,
		Metrics:   res.Report,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// writeResults prints every result, failed and skipped wells included, as
// an indented JSON array.
func writeResults(w io.Writer, results []analysis.WellResult) error {
	out := make([]wellOutput, len(results))
	for i, res := range results {
		out[i] = toOutput(res)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
