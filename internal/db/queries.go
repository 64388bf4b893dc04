package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lyallcooper/hashmaker/internal/types"
)

const runColumns = `id, target, path, algorithm, status, hash, time_taken,
	folder_count, file_count, error_message, started_at, completed_at`

// BeginRun records the start of an engine call and returns its ID.
func (db *DB) BeginRun(target, path string, algorithm types.Algorithm) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO hash_runs (id, target, path, algorithm, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, target, path, string(algorithm), RunStatusRunning, time.Now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun stores the report of a finished run.
func (db *DB) CompleteRun(id string, report *types.HashReport) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE hash_runs SET status = ?, hash = ?, time_taken = ?, folder_count = ?,
			file_count = ?, path = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		RunStatusCompleted, report.Hash, report.TimeTaken, report.FolderCount,
		report.FileCount, report.Path, time.Now().UnixMilli(), id, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	stmt, err := tx.Prepare("INSERT INTO file_hashes (run_id, seq, path, hash) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, fh := range report.FileHashes {
		if _, err := stmt.Exec(id, i, fh.Path, fh.Hash); err != nil {
			return fmt.Errorf("failed to store file hash %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// FailRun marks a run as failed.
func (db *DB) FailRun(id, message string) error {
	res, err := db.Exec(`
		UPDATE hash_runs SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		RunStatusFailed, message, time.Now().UnixMilli(), id, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to fail run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow("SELECT "+runColumns+" FROM hash_runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// ListRuns returns runs newest first with pagination
func (db *DB) ListRuns(limit, offset int) ([]*Run, error) {
	rows, err := db.Query("SELECT "+runColumns+`
		FROM hash_runs ORDER BY started_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountRuns returns the number of stored runs
func (db *DB) CountRuns() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM hash_runs").Scan(&n)
	return n, err
}

// GetFileHashes returns the report entries of a run in engine order.
func (db *DB) GetFileHashes(id string) ([]types.FileHash, error) {
	rows, err := db.Query("SELECT path, hash FROM file_hashes WHERE run_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []types.FileHash{}
	for rows.Next() {
		var fh types.FileHash
		if err := rows.Scan(&fh.Path, &fh.Hash); err != nil {
			return nil, err
		}
		files = append(files, fh)
	}
	return files, rows.Err()
}

// GetReport rebuilds the report of a completed run.
func (db *DB) GetReport(id string) (*types.HashReport, error) {
	r, err := db.GetRun(id)
	if err != nil {
		return nil, err
	}
	if r.Status != RunStatusCompleted {
		return nil, fmt.Errorf("%w: run %s is %s", ErrNotFound, id, r.Status)
	}
	files, err := db.GetFileHashes(id)
	if err != nil {
		return nil, err
	}
	return r.Report(files), nil
}

// DeleteRun removes a run and its entries.
func (db *DB) DeleteRun(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM file_hashes WHERE run_id = ?", id); err != nil {
		return err
	}
	res, err := tx.Exec("DELETE FROM hash_runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

// CleanupOldData removes finished runs older than the retention period and
// returns how many were removed. Running entries are kept.
func (db *DB) CleanupOldData(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM file_hashes WHERE run_id IN (
			SELECT id FROM hash_runs WHERE completed_at < ? AND status != ?
		)`, cutoff, RunStatusRunning)
	if err != nil {
		return 0, err
	}

	res, err := tx.Exec("DELETE FROM hash_runs WHERE completed_at < ? AND status != ?", cutoff, RunStatusRunning)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var algorithm string
	var startedAt int64
	var completedAt sql.NullInt64
	var errorMsg sql.NullString

	err := row.Scan(&r.ID, &r.Target, &r.Path, &algorithm, &r.Status, &r.Hash, &r.TimeTaken,
		&r.FolderCount, &r.FileCount, &errorMsg, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	r.Algorithm = types.Algorithm(algorithm)
	r.StartedAt = time.UnixMilli(startedAt)
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64)
		r.CompletedAt = &t
	}
	if errorMsg.Valid {
		r.ErrorMessage = &errorMsg.String
	}
	return &r, nil
}
