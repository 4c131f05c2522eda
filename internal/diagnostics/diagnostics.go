// Package diagnostics defines the shared contract every diagnostics sink
// implements: a one-way, best-effort export of cell snapshots taken after a
// commit. No sink in this tree is, or is meant to become, the engine's
// source of truth — a sink failing never affects a submission's outcome,
// which is why Record runs outside the coordinator's lock entirely (see
// the demo CLI for a worked example of recording Coordinator.Snapshots
// into a sink).
package diagnostics

import (
	"context"
	"encoding/json"
	"time"

	fsync "fusioncore/pkg/sync"
)

// Sink persists a batch of cell snapshots. Implementations must be safe
// for concurrent use; Close releases any held resources (a *sql.DB, an S3
// client) and is idempotent.
type Sink interface {
	Record(ctx context.Context, snapshots []fsync.CellSnapshot) error
	Close() error
}

// Row is the on-disk/on-wire representation of a CellSnapshot: value
// fields are JSON-encoded for storage only. The live engine never
// serializes values on the commit path itself; that only happens here,
// strictly after phase 6, outside the atomicity guarantee.
type Row struct {
	ID          uint64          `json:"id"`
	ExternalID  string          `json:"external_id"`
	Current     json.RawMessage `json:"current"`
	Previous    json.RawMessage `json:"previous"`
	MemberCount int             `json:"member_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToRow marshals a CellSnapshot's value fields to JSON, best-effort: a
// value that fails to marshal (a func, a channel) is recorded as a JSON
// string describing the failure rather than aborting the whole row.
func ToRow(s fsync.CellSnapshot) Row {
	return Row{
		ID:          s.ID,
		ExternalID:  s.ExternalID.String(),
		Current:     marshalBestEffort(s.Current),
		Previous:    marshalBestEffort(s.Previous),
		MemberCount: s.MemberCount,
		CreatedAt:   s.CreatedAt,
	}
}

func marshalBestEffort(v any) json.RawMessage {
	if v == nil {
		return json.RawMessage("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(err.Error())
	}
	return b
}
