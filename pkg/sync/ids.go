package sync

import (
	stdsync "sync/atomic"

	"github.com/google/uuid"
)

var (
	cellIDSeq      uint64
	hookIDSeq      uint64
	compositeIDSeq uint64
)

func nextCellID() uint64 { return stdsync.AddUint64(&cellIDSeq, 1) }
func nextHookID() uint64 { return stdsync.AddUint64(&hookIDSeq, 1) }
func nextCompositeID() uint64 { return stdsync.AddUint64(&compositeIDSeq, 1) }

// newExternalID mints a diagnostic-only identifier. The monotonic counters
// above remain the stable ordering key used throughout the engine (§4.2);
// this uuid exists purely so external diagnostics (logs, snapshot exports)
// have a label that does not leak the process-local counter.
func newExternalID() uuid.UUID { return uuid.New() }
