package sync

import (
	"time"
	"weak"

	"github.com/google/uuid"
)

// cell is a unit of shared, identity-bearing storage in the fusion lattice
// (spec.md §3). It is never exported: every caller interacts with a cell
// indirectly through the Hook(s) fused to it. Its only mutator,
// setInternal, is called exclusively from phase5Commit while the
// coordinator's lock is held.
type cell struct {
	id         uint64
	externalID uuid.UUID
	createdAt  time.Time

	registry *EqualityRegistry

	current  any
	previous any
	hasValue bool

	// members tracks every hook currently fused to this cell. The
	// reference is weak (weak.Pointer, Go 1.24+) so a cell never keeps a
	// hook alive; dead entries are dropped lazily whenever the set is
	// walked (spec.md §5: "tolerate and transparently drop dead
	// references").
	members map[uint64]weak.Pointer[hook]
}

func newCell(registry *EqualityRegistry, initial any, hasValue bool) *cell {
	return &cell{
		id:         nextCellID(),
		externalID: newExternalID(),
		createdAt:  time.Now(),
		registry:   registry,
		current:    initial,
		previous:   initial,
		hasValue:   hasValue,
		members:    make(map[uint64]weak.Pointer[hook]),
	}
}

// addMember registers h as fused to c. Safe to call repeatedly.
func (c *cell) addMember(h *hook) {
	c.members[h.id] = weak.Make(h)
}

// removeMember drops h's membership eagerly (used by isolate, which must
// take effect immediately rather than waiting on GC).
func (c *cell) removeMember(h *hook) {
	delete(c.members, h.id)
}

// liveMembers returns every hook still reachable through this cell's weak
// set, compacting dead entries it encounters along the way.
func (c *cell) liveMembers() []*hook {
	var live []*hook
	for id, wp := range c.members {
		if h := wp.Value(); h != nil {
			live = append(live, h)
		} else {
			delete(c.members, id)
		}
	}
	return live
}

// memberCount reports the number of live hooks without allocating a slice.
func (c *cell) memberCount() int {
	n := 0
	for id, wp := range c.members {
		if wp.Value() != nil {
			n++
		} else {
			delete(c.members, id)
		}
	}
	return n
}

// setInternal performs the atomic phase-5 write: previous becomes current,
// current becomes value. It must only be called while the coordinator's
// lock is held.
func (c *cell) setInternal(value any) {
	c.previous = c.current
	c.current = value
	c.hasValue = true
}

// equalsCurrent reports whether value is equal to c's current value under
// the cell's equality registry. A cell with no current value is never
// equal to anything, so the first submission always proceeds.
func (c *cell) equalsCurrent(value any) bool {
	if !c.hasValue {
		return false
	}
	return c.registry.Equals(c.current, value)
}
