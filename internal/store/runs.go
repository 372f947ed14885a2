package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/btar/internal/lang"
	"github.com/blackwell-systems/btar/internal/metrics"
	"github.com/blackwell-systems/btar/internal/scoring"
	"github.com/blackwell-systems/btar/internal/suggest"
)

// timeLayout is fixed width so taken_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// NewRun assembles a run from the results of one analysis. Metric rows are
// ordered by the report's languages, then type, lint and coverage.
func NewRun(dir, version string, score scoring.Result, report metrics.Report, recs []suggest.Recommendation) *Run {
	r := &Run{
		Directory:       dir,
		Score:           score.Score,
		Breakdown:       score.Breakdown,
		Interpretation:  score.Interpretation,
		Version:         version,
		Recommendations: recs,
	}
	for _, l := range report.Languages {
		for _, m := range []metrics.ByLanguage{report.Metrics.TypeStrictness, report.Metrics.LintErrors, report.Metrics.Coverage} {
			if res, ok := m[l]; ok {
				r.Metrics = append(r.Metrics, MetricRow{Language: l, Result: res})
			}
		}
	}
	return r
}

// RecordRun inserts a run with its metrics and recommendations in one
// transaction. A missing ID or timestamp is filled in.
func (db *DB) RecordRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.TakenAt.IsZero() {
		r.TakenAt = time.Now().UTC()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO runs
		(id, taken_at, directory, score, type_points, lint_points, coverage_points, interpretation, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TakenAt.UTC().Format(timeLayout), r.Directory, r.Score,
		r.Breakdown.TypeStrictness, r.Breakdown.LintErrors, r.Breakdown.Coverage,
		string(r.Interpretation), r.Version,
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, m := range r.Metrics {
		if _, err := tx.Exec(
			`INSERT INTO metric_results (run_id, language, metric, tool, value, success, raw)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, string(m.Language), string(m.Metric), m.Tool, m.Value, m.Success, m.Raw,
		); err != nil {
			return fmt.Errorf("inserting metric result: %w", err)
		}
	}

	for i, rec := range r.Recommendations {
		if _, err := tx.Exec(
			`INSERT INTO recommendations (run_id, position, tier, category, impact, message, tool)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, i, string(rec.Tier), string(rec.Category), string(rec.Impact), rec.Message, rec.Tool,
		); err != nil {
			return fmt.Errorf("inserting recommendation: %w", err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, taken_at, directory, score, type_points, lint_points, coverage_points, interpretation, version`

// ListRuns returns the most recent runs for a directory, newest first.
// A non-positive limit returns all of them. Metrics and recommendations are
// not loaded.
func (db *DB) ListRuns(dir string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(
		`SELECT `+runColumns+` FROM runs WHERE directory = ?
		ORDER BY taken_at DESC, rowid DESC LIMIT ?`,
		dir, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns a run by ID with its metrics and recommendations, or nil
// if it does not exist.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return db.loadRun(row)
}

// RunN returns the Nth most recent run for a directory (1 = latest,
// 2 = previous, etc.), or nil if there are fewer runs.
func (db *DB) RunN(dir string, n int) (*Run, error) {
	if n < 1 {
		return nil, fmt.Errorf("run index must be at least 1, got %d", n)
	}
	row := db.conn.QueryRow(
		`SELECT `+runColumns+` FROM runs WHERE directory = ?
		ORDER BY taken_at DESC, rowid DESC LIMIT 1 OFFSET ?`,
		dir, n-1,
	)
	return db.loadRun(row)
}

func (db *DB) loadRun(row *sql.Row) (*Run, error) {
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.Metrics, err = db.metricRows(r.ID); err != nil {
		return nil, err
	}
	if r.Recommendations, err = db.recommendations(r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*Run, error) {
	var r Run
	var takenAt, interpretation string
	if err := s.Scan(
		&r.ID, &takenAt, &r.Directory, &r.Score,
		&r.Breakdown.TypeStrictness, &r.Breakdown.LintErrors, &r.Breakdown.Coverage,
		&interpretation, &r.Version,
	); err != nil {
		return nil, err
	}
	r.TakenAt, _ = time.Parse(timeLayout, takenAt)
	r.Interpretation = scoring.Interpretation(interpretation)
	return &r, nil
}

func (db *DB) metricRows(runID string) ([]MetricRow, error) {
	rows, err := db.conn.Query(
		`SELECT language, metric, tool, value, success, raw
		FROM metric_results WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []MetricRow
	for rows.Next() {
		var m MetricRow
		var language, metric string
		var raw sql.NullString
		if err := rows.Scan(&language, &metric, &m.Tool, &m.Value, &m.Success, &raw); err != nil {
			return nil, err
		}
		m.Language = lang.Language(language)
		m.Metric = metrics.Kind(metric)
		m.Raw = raw.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (db *DB) recommendations(runID string) ([]suggest.Recommendation, error) {
	rows, err := db.conn.Query(
		`SELECT tier, category, impact, message, tool
		FROM recommendations WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []suggest.Recommendation
	for rows.Next() {
		var tier, category, impact string
		var tool sql.NullString
		var rec suggest.Recommendation
		if err := rows.Scan(&tier, &category, &impact, &rec.Message, &tool); err != nil {
			return nil, err
		}
		rec.Tier = suggest.Tier(tier)
		rec.Category = suggest.Category(category)
		rec.Impact = suggest.Impact(impact)
		rec.Tool = tool.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteRuns removes every run of a directory older than the keep most
// recent ones and returns how many were removed.
func (db *DB) DeleteRuns(dir string, keep int) (int64, error) {
	res, err := db.conn.Exec(
		`DELETE FROM runs WHERE directory = ? AND id NOT IN (
			SELECT id FROM runs WHERE directory = ?
			ORDER BY taken_at DESC, rowid DESC LIMIT ?
		)`,
		dir, dir, max(keep, 0),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Diff compares two runs dimension by dimension. Every dimension is
// higher-is-better.
func Diff(prev, cur *Run) *RunDiff {
	d := &RunDiff{Previous: prev, Current: cur}
	pairs := []struct {
		name       string
		prev, curr int
	}{
		{"score", prev.Score, cur.Score},
		{"type_strictness", prev.Breakdown.TypeStrictness, cur.Breakdown.TypeStrictness},
		{"lint_errors", prev.Breakdown.LintErrors, cur.Breakdown.LintErrors},
		{"coverage", prev.Breakdown.Coverage, cur.Breakdown.Coverage},
	}
	for _, p := range pairs {
		delta := p.curr - p.prev
		dir := Unchanged
		switch {
		case delta > 0:
			dir = Improved
		case delta < 0:
			dir = Regressed
		}
		d.Deltas = append(d.Deltas, ScoreDelta{
			Name:      p.name,
			Previous:  p.prev,
			Current:   p.curr,
			Delta:     delta,
			Direction: dir,
		})
	}
	return d
}
