package sync

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// CellSnapshot is a diagnostic, read-only view of a cell's state — the
// shape the internal/diagnostics sinks persist when Record is called. It is never part
// of the commit path itself; taking a snapshot never mutates anything.
type CellSnapshot struct {
	ID          uint64
	ExternalID  uuid.UUID
	Current     any
	Previous    any
	HasValue    bool
	MemberCount int
	CreatedAt   time.Time
}

func snapshotOf(c *cell) CellSnapshot {
	return CellSnapshot{
		ID:          c.id,
		ExternalID:  c.externalID,
		Current:     c.current,
		Previous:    c.previous,
		HasValue:    c.hasValue,
		MemberCount: c.memberCount(),
		CreatedAt:   c.createdAt,
	}
}

// Snapshot returns a diagnostic view of the cell backing this hook.
func (pub *Hook) Snapshot() CellSnapshot {
	pub.h.coord.mu.Lock()
	defer pub.h.coord.mu.Unlock()
	return snapshotOf(pub.h.cell)
}

// Snapshots returns a diagnostic view of every cell still reachable through
// a live hook, ordered by cell id.
func (co *Coordinator) Snapshots() []CellSnapshot {
	co.mu.Lock()
	defer co.mu.Unlock()

	out := make([]CellSnapshot, 0, len(co.cells))
	for id, wp := range co.cells {
		c := wp.Value()
		if c == nil {
			delete(co.cells, id)
			continue
		}
		out = append(out, snapshotOf(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
