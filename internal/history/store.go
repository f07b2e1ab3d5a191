// Package history keeps a SQLite record of every startup's per-model load
// outcomes so operators can see what a replica loaded across restarts.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"mlserve/internal/common/fsutil"
	"mlserve/internal/manager"
	"mlserve/pkg/types"
)

// DefaultLimit caps Recent when the caller passes a non-positive limit.
const DefaultLimit = 50

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS model_loads (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  load_run_id TEXT NOT NULL,
  model TEXT NOT NULL,
  version TEXT NOT NULL DEFAULT '',
  run_id TEXT NOT NULL DEFAULT '',
  stage TEXT NOT NULL,
  loaded INTEGER NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT '',
  duration_ms INTEGER NOT NULL DEFAULT 0,
  finished_unix INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS model_loads_run ON model_loads(load_run_id);
`)
	return err
}

// RecordLoad stores one row per outcome of report in a single transaction.
// It satisfies manager.HistoryRecorder.
func (s *Store) RecordLoad(ctx context.Context, report manager.LoadReport) error {
	return s.Insert(ctx, report.Records())
}

// Insert stores records atomically.
func (s *Store) Insert(ctx context.Context, records []types.LoadRecord) (err error) {
	if s.db == nil {
		return errors.New("history store is closed")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO model_loads(load_run_id, model, version, run_id, stage, loaded, error, duration_ms, finished_unix)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);
`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err = stmt.ExecContext(ctx, r.LoadRunID, r.Model, r.Version, r.RunID, r.Stage, r.Loaded, r.Error, r.DurationMS, r.FinishedUnix); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.LoadRecord, error) {
	if s.db == nil {
		return nil, errors.New("history store is closed")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT load_run_id, model, version, run_id, stage, loaded, error, duration_ms, finished_unix
FROM model_loads
ORDER BY id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.LoadRecord{}
	for rows.Next() {
		var r types.LoadRecord
		if err := rows.Scan(&r.LoadRunID, &r.Model, &r.Version, &r.RunID, &r.Stage, &r.Loaded, &r.Error, &r.DurationMS, &r.FinishedUnix); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
