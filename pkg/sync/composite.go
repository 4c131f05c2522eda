package sync

import "sort"

// Identifier names a slot within a Composite: one of its primary
// identifiers (a writable hook the composite owns) or one of its secondary
// identifiers (a value computed deterministically from the primaries).
type Identifier string

// UpdateView is what a Composite's Complete method sees during phase 2
// (spec.md §4.6): Submitted holds the values proposed for this round for
// the composite's primary identifiers that are part of the current working
// set, and Current holds the present value of every other primary
// identifier the composite owns.
type UpdateView struct {
	Submitted map[Identifier]any
	Current   map[Identifier]any
}

// Composite is the internal-synchronization contract a multi-hook object
// implements to participate in completion and validation (spec.md §4.7). A
// Composite owns one writable Hook per primary identifier (constructed via
// CompositeBase) and, optionally, derives secondary identifiers whose value
// is a pure function of the primaries.
type Composite interface {
	// CompositeID returns the monotonic id CompositeBase assigned at
	// construction, used to order validation failures deterministically
	// across composites (spec.md §4.6 phase 4).
	CompositeID() uint64

	// PrimaryIdentifiers returns the composite's primary identifiers in a
	// stable, deterministic order.
	PrimaryIdentifiers() []Identifier

	// SecondaryIdentifiers returns the composite's secondary identifiers,
	// or nil if it declares none.
	SecondaryIdentifiers() []Identifier

	// HookFor returns the Hook backing identifier id, or false if id is
	// not one of this composite's primary identifiers. It must never
	// create a new hook.
	HookFor(id Identifier) (*Hook, bool)

	// Complete is called during phase 2 with the working set restricted to
	// this composite's primaries. It returns additional primary identifier
	// values to fold into the working set (for example, keeping two
	// primaries consistent with one another), or an error to abort the
	// submission.
	Complete(view UpdateView) (map[Identifier]any, error)

	// ValidatePrimary is called during phase 4 with every primary
	// identifier's value as it would be after commit. A false result
	// rejects the submission.
	ValidatePrimary(primaries map[Identifier]any) (ok bool, reason string)

	// ValidateAll is called during phase 4 with both primaries and freshly
	// computed secondaries. A false result rejects the submission.
	ValidateAll(all map[Identifier]any) (ok bool, reason string)

	// ComputeSecondary derives the value of secondary identifier id from
	// the primaries as they would be after commit.
	ComputeSecondary(id Identifier, primaries map[Identifier]any) (any, error)

	// AfterCommit runs once, after phase 5 commits, for every composite
	// that owned at least one cell in the working set. It must not submit
	// to any of this composite's own primary cells.
	AfterCommit()
}

// CompositeBase implements the bookkeeping common to every Composite: hook
// construction for the declared primary identifiers, and a monotonic id
// used to order validation failures deterministically (spec.md §4.6 phase
// 4). Concrete composites embed *CompositeBase and implement the
// domain-specific Complete/ValidatePrimary methods (see pkg/composite for
// worked examples), finishing construction with a call to Bind so the
// engine can reach back from a hook to its owning Composite.
type CompositeBase struct {
	id    uint64
	coord *Coordinator

	order   []Identifier
	primary map[Identifier]*Hook
}

// NewCompositeBase creates one writable, owned hook per entry in primaries
// and returns the shared bookkeeping for a new composite. Call Bind once
// the concrete composite type is fully constructed.
func NewCompositeBase(coord *Coordinator, primaries map[Identifier]any) *CompositeBase {
	cb := &CompositeBase{
		id:      nextCompositeID(),
		coord:   coord,
		primary: make(map[Identifier]*Hook, len(primaries)),
	}
	ids := make([]Identifier, 0, len(primaries))
	for id := range primaries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		cb.primary[id] = coord.newOwnedHook(primaries[id])
		cb.order = append(cb.order, id)
	}
	return cb
}

// Bind finalizes construction by recording composite as the owner of every
// primary hook CompositeBase created. Every concrete composite constructor
// must call this exactly once, after the concrete type (which satisfies
// Composite) exists.
func (cb *CompositeBase) Bind(composite Composite) {
	for id, h := range cb.primary {
		h.h.binding = &compositeBinding{composite: composite, identifier: id, writable: true}
	}
}

// CompositeID returns the monotonic id used to order this composite's
// validation failures relative to other composites.
func (cb *CompositeBase) CompositeID() uint64 { return cb.id }

// PrimaryIdentifiers implements part of Composite.
func (cb *CompositeBase) PrimaryIdentifiers() []Identifier {
	out := make([]Identifier, len(cb.order))
	copy(out, cb.order)
	return out
}

// HookFor implements part of Composite.
func (cb *CompositeBase) HookFor(id Identifier) (*Hook, bool) {
	h, ok := cb.primary[id]
	return h, ok
}

// UnimplementedComposite supplies default, no-op behavior for the optional
// parts of the Composite contract, in the spirit of an embeddable base type
// (the reference material's chasm.UnimplementedComponent follows the same
// pattern) — a composite with no secondaries embeds this alongside
// *CompositeBase and need only implement Complete and ValidatePrimary.
type UnimplementedComposite struct{}

func (UnimplementedComposite) SecondaryIdentifiers() []Identifier { return nil }

func (UnimplementedComposite) ValidateAll(map[Identifier]any) (bool, string) { return true, "" }

func (UnimplementedComposite) ComputeSecondary(Identifier, map[Identifier]any) (any, error) {
	return nil, errNoSecondaryIdentifiers
}

func (UnimplementedComposite) AfterCommit() {}

var errNoSecondaryIdentifiers = &SubmissionError{
	Kind:    CompletionExtendsUnknownCell,
	Message: "composite declares no secondary identifiers",
}
