package memory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"fusioncore/internal/diagnostics/memory"
	fsync "fusioncore/pkg/sync"
)

func snapshot(id uint64, current any) fsync.CellSnapshot {
	return fsync.CellSnapshot{ID: id, ExternalID: uuid.New(), Current: current, HasValue: true, MemberCount: 1}
}

func TestSinkRecordAppendsRows(t *testing.T) {
	s := memory.New(0)
	ctx := context.Background()

	if err := s.Record(ctx, []fsync.CellSnapshot{snapshot(1, "a"), snapshot(2, "b")}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, []fsync.CellSnapshot{snapshot(3, "c")}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	rows := s.Rows()
	if len(rows) != 3 {
		t.Fatalf("len(Rows()) = %d, want 3", len(rows))
	}
	if rows[0].ID != 1 || rows[1].ID != 2 || rows[2].ID != 3 {
		t.Fatalf("rows out of order: %+v", rows)
	}
}

func TestSinkTrimsToCapacity(t *testing.T) {
	s := memory.New(2)
	ctx := context.Background()

	for i := uint64(1); i <= 5; i++ {
		if err := s.Record(ctx, []fsync.CellSnapshot{snapshot(i, i)}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	rows := s.Rows()
	if len(rows) != 2 {
		t.Fatalf("len(Rows()) = %d, want 2 (capacity)", len(rows))
	}
	if rows[0].ID != 4 || rows[1].ID != 5 {
		t.Fatalf("expected the two most recent rows (4, 5), got %+v", rows)
	}
}

func TestSinkRowsReturnsACopy(t *testing.T) {
	s := memory.New(0)
	ctx := context.Background()
	if err := s.Record(ctx, []fsync.CellSnapshot{snapshot(1, "a")}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	rows := s.Rows()
	rows[0].ID = 999

	again := s.Rows()
	if again[0].ID != 1 {
		t.Fatalf("mutating a returned row leaked into the sink's own state: %+v", again)
	}
}

func TestSinkCloseIsNoop(t *testing.T) {
	s := memory.New(0)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
