// Package sync implements a reactive state-synchronization engine: hooks
// connect to cells through a coordinator that runs every proposed change
// through a six-phase submission protocol (equality filter, fixed-point
// completion, affected-component collection, validation, atomic commit,
// post-commit notification). Hooks can be fused into shared fusion domains
// and later isolated back out, and composite objects bind several hooks
// together behind a shared completion and validation contract.
//
// Callers outside this package only ever see a *Hook, never the cell it is
// fused to; every read and write goes through the coordinator so the
// protocol's invariants — atomic commits, no partial state visible to a
// listener, no cell outliving its last live hook — hold regardless of how
// many goroutines are driving submissions concurrently.
package sync

import (
	"weak"

	"fusioncore/internal/engine"
)

// Coordinator is the reentrant lock and live-cell registry described by
// spec.md §4.4: every mutating operation (Submit, Join, Isolate) holds its
// lock for the duration of the six-phase protocol, and it tracks, per
// goroutine, which cells that goroutine is already mid-commit on, so a
// reentrant call whose working set overlaps is rejected with Reentrant
// rather than deadlocking or letting a listener corrupt half-committed
// state.
type Coordinator struct {
	mu *reentrantLock

	equality  *EqualityRegistry
	logger    engine.Logger
	metrics   engine.MetricsRecorder
	publisher Publisher
	roundCap  int

	// active is the reentrancy table: goroutine id -> set of cells that
	// goroutine currently holds mid-commit. Keyed by goroutine id because
	// Go has no native thread-local storage (spec.md §5).
	active map[uint64]map[*cell]struct{}

	// cells is a weak registry of every live cell, for diagnostics only. A
	// cell's real lifetime is governed entirely by its hooks (§4.2); this
	// registry must never be the thing keeping a cell alive.
	cells map[uint64]weak.Pointer[cell]
}

// NewCoordinator constructs a Coordinator ready to mint hooks and accept
// submissions.
func NewCoordinator(opts ...Option) *Coordinator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Equality == nil {
		o.Equality = NewEqualityRegistry()
	}
	if o.Logger == nil {
		o.Logger = engine.NewNoopLogger()
	}
	if o.Metrics == nil {
		o.Metrics = engine.NewNoopMetricsRecorder()
	}
	if o.RoundCap <= 0 {
		o.RoundCap = 100
	}
	return &Coordinator{
		mu:        newReentrantLock(),
		equality:  o.Equality,
		logger:    o.Logger,
		metrics:   o.Metrics,
		publisher: o.Publisher,
		roundCap:  o.RoundCap,
		active:    make(map[uint64]map[*cell]struct{}),
		cells:     make(map[uint64]weak.Pointer[cell]),
	}
}

// registerCell records c in the diagnostics registry. Callers must hold
// c.mu... there is none; the coordinator's own lock is assumed held by the
// caller (NewFloatingHook/newOwnedHook/isolate all run under it).
func (co *Coordinator) registerCell(c *cell) {
	co.cells[c.id] = weak.Make(c)
}

// NewFloatingHook creates a new, unowned hook fused to a fresh single-member
// cell seeded with initial. hasValue controls whether the cell starts with
// a committed value (false models a hook that has never been written to).
func (co *Coordinator) NewFloatingHook(initial any, hasValue bool) *Hook {
	co.mu.Lock()
	defer co.mu.Unlock()

	c := newCell(co.equality, initial, hasValue)
	co.registerCell(c)
	h := &hook{id: nextHookID(), externalID: newExternalID(), coord: co, cell: c}
	c.addMember(h)
	return &Hook{h: h}
}

// newOwnedHook is used by CompositeBase to create a primary-identifier
// hook; the composite binding is attached later via CompositeBase.Bind.
func (co *Coordinator) newOwnedHook(initial any) *Hook {
	co.mu.Lock()
	defer co.mu.Unlock()

	c := newCell(co.equality, initial, true)
	co.registerCell(c)
	h := &hook{id: nextHookID(), externalID: newExternalID(), coord: co, cell: c}
	c.addMember(h)
	return &Hook{h: h}
}

// enterReentrant records that the calling goroutine is about to commit
// against cells, failing with Reentrant if any of them are already active
// for this goroutine (spec.md §5: nested submissions touching disjoint
// cells are fine; overlapping ones are not).
func (co *Coordinator) enterReentrant(cells []*cell) (func(), error) {
	gid := engine.GoroutineID()
	existing := co.active[gid]
	for _, c := range cells {
		if _, busy := existing[c]; busy {
			return nil, &SubmissionError{
				Kind:    Reentrant,
				Message: "goroutine is already mid-commit on an overlapping cell",
			}
		}
	}
	if existing == nil {
		existing = make(map[*cell]struct{}, len(cells))
		co.active[gid] = existing
	}
	for _, c := range cells {
		existing[c] = struct{}{}
	}
	return func() {
		for _, c := range cells {
			delete(existing, c)
		}
		if len(existing) == 0 {
			delete(co.active, gid)
		}
	}, nil
}

// LiveCellCount returns the number of cells still reachable through some
// hook, for diagnostics.
func (co *Coordinator) LiveCellCount() int {
	co.mu.Lock()
	defer co.mu.Unlock()
	n := 0
	for id, wp := range co.cells {
		if wp.Value() != nil {
			n++
		} else {
			delete(co.cells, id)
		}
	}
	return n
}
