package db

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/banshee-data/wormtrack/internal/config"
	"github.com/banshee-data/wormtrack/internal/report"
	"github.com/banshee-data/wormtrack/internal/version"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// Run is one invocation of the analysis over a treatment.
type Run struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Day       string          `json:"day"`
	Treatment string          `json:"treatment"`
	Params    json.RawMessage `json:"params"`
	Version   string          `json:"version"`
}

// StoredReport is a report row together with its provenance.
type StoredReport struct {
	RunID   string
	Elapsed time.Duration
	Report  *report.Report
}

// CreateRun records a new run and snapshots the parameters it used.
func (db *DB) CreateRun(day, treatment string, params *config.Parameters) (*Run, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}

	run := &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Day:       day,
		Treatment: treatment,
		Params:    raw,
		Version:   version.String(),
	}

	_, err = db.DB.Exec(`
		INSERT INTO analysis_runs (run_id, created_at, day, treatment, params_json, version)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Unix(), run.Day, run.Treatment, string(run.Params), run.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(id string) (*Run, error) {
	var run Run
	var createdAt int64
	var params string
	err := db.DB.QueryRow(`
		SELECT run_id, created_at, day, treatment, params_json, version
		FROM analysis_runs WHERE run_id = ?`, id,
	).Scan(&run.ID, &createdAt, &run.Day, &run.Treatment, &params, &run.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	run.Params = json.RawMessage(params)
	return &run, nil
}

// HasReport reports whether a well already has a stored report.
func (db *DB) HasReport(id report.Identity) (bool, error) {
	var n int
	err := db.DB.QueryRow(`
		SELECT COUNT(*) FROM well_reports
		WHERE day = ? AND treatment = ? AND batch = ? AND well = ?`,
		id.Day, id.Treatment, id.Batch, id.Well,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check report for %s: %w", id, err)
	}
	return n > 0, nil
}

// SaveReport stores a well's report under runID, replacing any report
// previously stored for the same well.
func (db *DB) SaveReport(runID string, rep *report.Report, elapsed time.Duration) error {
	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := rep.Identity
	if _, err := tx.Exec(`
		DELETE FROM well_reports
		WHERE day = ? AND treatment = ? AND batch = ? AND well = ?`,
		id.Day, id.Treatment, id.Batch, id.Well,
	); err != nil {
		return fmt.Errorf("failed to replace report for %s: %w", id, err)
	}

	res, err := tx.Exec(`
		INSERT INTO well_reports (run_id, day, treatment, batch, well, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, id.Day, id.Treatment, id.Batch, id.Well,
		elapsed.Milliseconds(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report for %s: %w", id, err)
	}
	reportID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO report_metrics (report_id, position, name, unit, value)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare metric insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range rep.Metrics {
		if _, err := stmt.Exec(reportID, i, m.Name, m.Unit, nullFloat(m.Value)); err != nil {
			return fmt.Errorf("failed to insert metric %q for %s: %w", m.Name, id, err)
		}
	}

	return tx.Commit()
}

// ListReports returns the stored reports of a treatment ordered by batch
// and well.
func (db *DB) ListReports(day, treatment string) ([]StoredReport, error) {
	rows, err := db.DB.Query(`
		SELECT r.report_id, r.run_id, r.batch, r.well, r.elapsed_ms,
		       m.name, m.unit, m.value
		FROM well_reports r
		JOIN report_metrics m ON m.report_id = r.report_id
		WHERE r.day = ? AND r.treatment = ?
		ORDER BY r.batch, length(r.well), r.well, m.position`,
		day, treatment,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []StoredReport
	lastID := int64(-1)
	for rows.Next() {
		var (
			reportID  int64
			runID     string
			batch     int
			well      string
			elapsedMs int64
			m         report.Metric
			value     sql.NullFloat64
		)
		if err := rows.Scan(&reportID, &runID, &batch, &well, &elapsedMs, &m.Name, &m.Unit, &value); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		m.Value = math.NaN()
		if value.Valid {
			m.Value = value.Float64
		}

		if reportID != lastID {
			out = append(out, StoredReport{
				RunID:   runID,
				Elapsed: time.Duration(elapsedMs) * time.Millisecond,
				Report: &report.Report{Identity: report.Identity{
					Day: day, Treatment: treatment, Batch: batch, Well: well,
				}},
			})
			lastID = reportID
		}
		cur := out[len(out)-1].Report
		cur.Metrics = append(cur.Metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return out, nil
}

// nullFloat maps values SQLite cannot represent to NULL.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
