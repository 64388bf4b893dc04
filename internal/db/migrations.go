package db

import (
	"fmt"
)

type migration struct {
	version int
	sql     string
}

// migrations are applied in order; each runs once in its own transaction.
var migrations = []migration{
	{1, migration001},
	{2, migration002},
}

// Migrate brings the schema up to the newest version.
func (db *DB) Migrate() error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version > current {
			if err := db.apply(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// SchemaVersion returns the newest applied migration, 0 for a fresh file.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}

func (db *DB) apply(m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.sql); err != nil {
		return fmt.Errorf("migration %d failed: %w", m.version, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("migration %d not recorded: %w", m.version, err)
	}
	return tx.Commit()
}

const migration001 = `
-- One row per engine call
CREATE TABLE hash_runs (
    id TEXT PRIMARY KEY,
    target TEXT NOT NULL,
    path TEXT NOT NULL,
    algorithm TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'running',
    hash TEXT NOT NULL DEFAULT '',
    time_taken TEXT NOT NULL DEFAULT '',
    folder_count INTEGER NOT NULL DEFAULT 0,
    file_count INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    started_at INTEGER NOT NULL,
    completed_at INTEGER
);

CREATE INDEX idx_hash_runs_started_at ON hash_runs(started_at);
CREATE INDEX idx_hash_runs_status ON hash_runs(status);

-- Report entries in engine order
CREATE TABLE file_hashes (
    run_id TEXT NOT NULL REFERENCES hash_runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    path TEXT NOT NULL,
    hash TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, seq)
);
`

const migration002 = `
-- Lookup of earlier runs for the same folder
CREATE INDEX idx_hash_runs_path ON hash_runs(path, started_at);
`
