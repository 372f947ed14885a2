package store

import "fmt"

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 1

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}
	return nil
}

// SchemaVersion returns the applied schema version, 0 for a fresh database.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// migrateV1 creates the run history tables.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id              TEXT PRIMARY KEY,
			taken_at        TEXT NOT NULL,
			directory       TEXT NOT NULL,
			score           INTEGER NOT NULL,
			type_points     INTEGER NOT NULL,
			lint_points     INTEGER NOT NULL,
			coverage_points INTEGER NOT NULL,
			interpretation  TEXT NOT NULL,
			version         TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS metric_results (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			language TEXT NOT NULL,
			metric   TEXT NOT NULL,
			tool     TEXT NOT NULL,
			value    REAL NOT NULL,
			success  BOOLEAN NOT NULL,
			raw      TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS recommendations (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			tier     TEXT NOT NULL,
			category TEXT NOT NULL,
			impact   TEXT NOT NULL,
			message  TEXT NOT NULL,
			tool     TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_directory ON runs(directory, taken_at)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_results_run ON metric_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_run ON recommendations(run_id)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}
	return tx.Commit()
}
