// Package sqlite implements a diagnostics.Sink on top of modernc.org/sqlite,
// mirroring the teacher's internal/infra/persistence/sqlite/store.go: a
// single table of JSON blobs, upserted after every batch, no migration
// framework because there is exactly one DDL statement to run.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"fusioncore/internal/diagnostics"
	fsync "fusioncore/pkg/sync"
)

// Store persists cell snapshots to a sqlite database at path, one row per
// cell id, overwritten on every Record.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// New opens (creating if necessary) a sqlite database at path and ensures
// its snapshot table exists.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("diagnostics/sqlite: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("diagnostics/sqlite: ping %s: %w", path, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cell_snapshots (
		cell_id INTEGER PRIMARY KEY,
		external_id TEXT NOT NULL,
		current_value BLOB,
		previous_value BLOB,
		member_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("diagnostics/sqlite: create table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Record implements diagnostics.Sink, upserting one row per snapshot inside
// a single transaction.
func (s *Store) Record(ctx context.Context, snapshots []fsync.CellSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("diagnostics/sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cell_snapshots
		(cell_id, external_id, current_value, previous_value, member_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cell_id) DO UPDATE SET
			external_id = excluded.external_id,
			current_value = excluded.current_value,
			previous_value = excluded.previous_value,
			member_count = excluded.member_count,
			created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("diagnostics/sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snapshots {
		row := diagnostics.ToRow(snap)
		if _, err := stmt.ExecContext(ctx, row.ID, row.ExternalID, []byte(row.Current), []byte(row.Previous), row.MemberCount, row.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z")); err != nil {
			return fmt.Errorf("diagnostics/sqlite: upsert cell %d: %w", row.ID, err)
		}
	}
	return tx.Commit()
}

// Close implements diagnostics.Sink.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
