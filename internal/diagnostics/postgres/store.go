// Package postgres implements a diagnostics.Sink on top of
// github.com/jackc/pgx/v5, mirroring the teacher's
// internal/infra/persistence/postgres/store.go: open through pgx's
// database/sql driver, ensure a single snapshot table exists, upsert on
// every batch.
package postgres

import (
	"context"
	"fmt"
	"sync"

	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fusioncore/internal/diagnostics"
	fsync "fusioncore/pkg/sync"
)

// Store persists cell snapshots to a PostgreSQL database reachable at dsn.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	dsn string
}

// New opens a connection pool against dsn and ensures the snapshot table
// exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("diagnostics/postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("diagnostics/postgres: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS cell_snapshots (
		cell_id BIGINT PRIMARY KEY,
		external_id TEXT NOT NULL,
		current_value JSONB,
		previous_value JSONB,
		member_count INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("diagnostics/postgres: create table: %w", err)
	}
	return &Store{db: db, dsn: dsn}, nil
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
		return fmt.Errorf("diagnostics/postgres: begin: %w", err)
	}
	defer tx.Rollback()

	for _, snap := range snapshots {
		row := diagnostics.ToRow(snap)
		if _, err := tx.ExecContext(ctx, `INSERT INTO cell_snapshots
			(cell_id, external_id, current_value, previous_value, member_count, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (cell_id) DO UPDATE SET
				external_id = EXCLUDED.external_id,
				current_value = EXCLUDED.current_value,
				previous_value = EXCLUDED.previous_value,
				member_count = EXCLUDED.member_count,
				created_at = EXCLUDED.created_at`,
			row.ID, row.ExternalID, []byte(row.Current), []byte(row.Previous), row.MemberCount, row.CreatedAt); err != nil {
			return fmt.Errorf("diagnostics/postgres: upsert cell %d: %w", row.ID, err)
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
