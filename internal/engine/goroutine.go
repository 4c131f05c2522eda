// Package engine provides the low-level runtime helpers used by the
// synchronization coordinator in pkg/sync: goroutine identification for
// reentrancy bookkeeping, and the default logging/metrics sinks. Of these,
// only the Logger and MetricsRecorder interfaces appear in pkg/sync's public
// API, as the types of CoordinatorOptions fields and of the WithLogger and
// WithMetricsRecorder options.
package engine

import (
	"bytes"
	"runtime"
	"strconv"
)

// GoroutineID returns an identifier for the calling goroutine, parsed out of
// runtime.Stack. Go deliberately exposes no goroutine-local storage; this is
// the same technique used by goroutine-local-storage shims throughout the
// ecosystem. The id is stable for the life of the goroutine and is used only
// to key the coordinator's reentrancy table, never for scheduling decisions.
func GoroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if idx := bytes.IndexByte(buf, ' '); idx >= 0 {
		buf = buf[:idx]
	}
	id, err := strconv.ParseUint(string(buf), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
