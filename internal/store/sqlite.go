package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS runs (
    run_id      TEXT PRIMARY KEY,
    owner_id    TEXT NOT NULL,
    folder      TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    uploaded    INTEGER NOT NULL DEFAULT 0,
    error_kind  TEXT NOT NULL DEFAULT '',
    error       TEXT NOT NULL DEFAULT '',
    started_at  INTEGER NOT NULL,
    finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_owner_started ON runs (owner_id, started_at DESC);`

// SQLiteRunStore implements RunStore in a local SQLite file, for
// installations without AWS. Records do not expire.
type SQLiteRunStore struct {
	db *sql.DB
}

var _ RunStore = (*SQLiteRunStore)(nil)

// OpenSQLite opens or creates the run history database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRunStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	log.Debug().Str("path", path).Msg("Run history database opened")
	return &SQLiteRunStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteRunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutRun inserts or replaces run.
func (s *SQLiteRunStore) PutRun(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (
            run_id, owner_id, folder, status, uploaded, error_kind, error, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.OwnerID, run.Folder, run.Status, run.Uploaded,
		run.ErrorKind, run.Error, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns up to limit runs for ownerID, newest first. A limit of
// zero or less returns every run.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, ownerID string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, owner_id, folder, status, uploaded, error_kind, error, started_at, finished_at
        FROM runs WHERE owner_id = ? ORDER BY started_at DESC, run_id LIMIT ?`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.OwnerID, &run.Folder, &run.Status, &run.Uploaded,
			&run.ErrorKind, &run.Error, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
