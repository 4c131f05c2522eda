package sync

import (
	"context"
	stdsync "sync"

	"github.com/google/uuid"
)

// compositeBinding marks a hook as owned by a Composite under a primary
// identifier, rather than floating (spec.md §3 Hook attributes).
type compositeBinding struct {
	composite  Composite
	identifier Identifier
	writable   bool
}

// hook is the mutable internal record backing a public Hook handle. It is
// never exported; external code only ever touches a *Hook.
type hook struct {
	id         uint64
	externalID uuid.UUID
	coord      *Coordinator

	cell *cell

	mu             stdsync.Mutex
	listeners      []func(current, previous any)
	listenerIDs    []uint64
	nextListenerID uint64

	isolatedValidator func(value any) (ok bool, reason string)
	reaction          func(current, previous any)

	binding *compositeBinding
}

func (h *hook) notifyListeners(current, previous any) []func() {
	h.mu.Lock()
	fns := make([]func(current, previous any), len(h.listeners))
	copy(fns, h.listeners)
	h.mu.Unlock()

	deferred := make([]func(), 0, len(fns))
	for _, fn := range fns {
		fn := fn
		deferred = append(deferred, func() { fn(current, previous) })
	}
	return deferred
}

// Hook is the public handle through which user code and wrapper libraries
// interact with a connection point in the fusion lattice: reading its
// current value, submitting a new one, and joining or isolating it from
// other hooks (spec.md §3, §4.3).
type Hook struct {
	h *hook
}

// ID returns the hook's stable, process-local ordering key.
func (pub *Hook) ID() uint64 { return pub.h.id }

// ExternalID returns a diagnostic-only identifier stable for the hook's
// lifetime.
func (pub *Hook) ExternalID() uuid.UUID { return pub.h.externalID }

// Value returns the current value of the cell this hook is fused to, and
// whether the cell has ever had a value committed to it.
func (pub *Hook) Value() (any, bool) {
	pub.h.coord.mu.Lock()
	defer pub.h.coord.mu.Unlock()
	return pub.h.cell.current, pub.h.cell.hasValue
}

// Previous returns the value the cell held immediately before its current
// one, and whether such a value exists.
func (pub *Hook) Previous() (any, bool) {
	pub.h.coord.mu.Lock()
	defer pub.h.coord.mu.Unlock()
	c := pub.h.cell
	return c.previous, c.hasValue
}

// Submit proposes a single new value for this hook's cell, running the full
// six-phase protocol (spec.md §4.6) under mode.
func (pub *Hook) Submit(ctx context.Context, value any, mode SubmissionMode) (Result, error) {
	return pub.h.coord.Submit(ctx, map[*Hook]any{pub: value}, mode)
}

// SetIsolatedValidator installs a predicate phase 4 calls against the value
// proposed for this hook's cell, whether the hook is floating or owned by a
// composite. Installing nil removes any existing validator.
func (pub *Hook) SetIsolatedValidator(fn func(value any) (ok bool, reason string)) {
	pub.h.coord.mu.Lock()
	defer pub.h.coord.mu.Unlock()
	pub.h.isolatedValidator = fn
}

// SetReaction installs a callback phase 6 invokes after commit whenever
// this hook's cell changed.
func (pub *Hook) SetReaction(fn func(current, previous any)) {
	pub.h.coord.mu.Lock()
	defer pub.h.coord.mu.Unlock()
	pub.h.reaction = fn
}

// AddListener registers fn to be called after every commit that changes
// this hook's cell. It returns a function that removes the listener.
func (pub *Hook) AddListener(fn func(current, previous any)) (remove func()) {
	h := pub.h
	h.mu.Lock()
	h.nextListenerID++
	lid := h.nextListenerID
	h.listeners = append(h.listeners, fn)
	h.listenerIDs = append(h.listenerIDs, lid)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, id := range h.listenerIDs {
			if id == lid {
				h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
				h.listenerIDs = append(h.listenerIDs[:i], h.listenerIDs[i+1:]...)
				return
			}
		}
	}
}

// IsJoinedWith reports whether pub and other are fused to the same cell
// (i.e. share a fusion domain).
func (pub *Hook) IsJoinedWith(other *Hook) bool {
	pub.h.coord.mu.Lock()
	defer pub.h.coord.mu.Unlock()
	return pub.h.cell == other.h.cell
}

// Join fuses other's cell into pub's fusion domain, per spec.md §4.5. It
// adopts pub's current value as the domain's value unless adoptOther is
// true, in which case other's value is adopted instead.
func (pub *Hook) Join(ctx context.Context, other *Hook, adoptOther bool) error {
	return pub.h.coord.join(ctx, pub.h, other.h, adoptOther)
}

// Isolate removes this hook from its current fusion domain, giving it a
// fresh, single-member cell seeded with the domain's current value.
func (pub *Hook) Isolate(ctx context.Context) error {
	return pub.h.coord.isolate(ctx, pub.h)
}
