// Package memory provides a diagnostics.Sink backed by an in-process
// slice, useful for tests and as the default sink before a durable one is
// configured.
package memory

import (
	"context"
	"sync"

	"fusioncore/internal/diagnostics"
	fsync "fusioncore/pkg/sync"
)

// Sink keeps every recorded batch in memory, in the order Record was
// called, up to a configured cap.
type Sink struct {
	mu   sync.Mutex
	cap  int
	rows []diagnostics.Row
}

// New returns a Sink retaining at most capRows rows (oldest dropped first).
// capRows <= 0 means unbounded.
func New(capRows int) *Sink {
	return &Sink{cap: capRows}
}

// Record implements diagnostics.Sink.
func (s *Sink) Record(_ context.Context, snapshots []fsync.CellSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snapshots {
		s.rows = append(s.rows, diagnostics.ToRow(snap))
	}
	if s.cap > 0 && len(s.rows) > s.cap {
		s.rows = s.rows[len(s.rows)-s.cap:]
	}
	return nil
}

// Rows returns a copy of every row currently retained.
func (s *Sink) Rows() []diagnostics.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]diagnostics.Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// Close implements diagnostics.Sink; a memory sink has nothing to release.
func (s *Sink) Close() error { return nil }
