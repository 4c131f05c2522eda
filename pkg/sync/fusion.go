package sync

import (
	"context"
	"time"
)

// join fuses b's cell into a's fusion domain (spec.md §4.5). When
// adoptOther is false the merged domain adopts a's current value and b's
// cell is the one that must accept it; when adoptOther is true the roles
// reverse. The losing side's adoption of the winning value runs through the
// same completion and validation phases an ordinary Submit on that cell
// would — only the losing side's composites and isolated validators get a
// say, exactly as spec.md §4.5 step 3 describes ("adopt c_a's current value
// onto c_b via a normal submission") — so a rejected join leaves both
// domains exactly as they were, and the winning side never perceives a
// change.
func (co *Coordinator) join(ctx context.Context, a, b *hook, adoptOther bool) error {
	start := time.Now()
	co.mu.Lock()
	defer co.mu.Unlock()

	if a.cell == b.cell {
		co.metrics.Observe(ctx, "join", true, time.Since(start))
		return nil
	}

	winner, loser := a.cell, b.cell
	if adoptOther {
		winner, loser = b.cell, a.cell
	}
	adopted := winner.current

	// If the losing side already holds the adopted value, the adoption is
	// listener-silent: no validation runs, no commit happens, and no one is
	// notified. Both sides' members simply end up sharing one cell (spec.md
	// §8 invariant 6).
	if !loser.equalsCurrent(adopted) {
		working := map[*cell]any{loser: adopted}

		working, err := co.phase2Complete(working)
		if err != nil {
			return co.wrapFusionRejected(ctx, "join", start, err)
		}

		release, err := co.enterReentrant(cellsOf(working))
		if err != nil {
			return co.wrapFusionRejected(ctx, "join", start, err)
		}
		defer release()

		aff := co.phase3Collect(working)
		if _, err := co.phase4Validate(working, aff); err != nil {
			return co.wrapFusionRejected(ctx, "join", start, err)
		}

		co.phase5Commit(working)
		co.phase6Notify(ctx, working, aff, NormalSubmission)
	}

	for _, h := range loser.liveMembers() {
		h.cell = winner
		winner.addMember(h)
	}

	co.metrics.Observe(ctx, "join", true, time.Since(start))
	return nil
}

// isolate detaches h from its current fusion domain, giving it a fresh,
// single-member cell seeded with the domain's current and previous values.
// No value changes as a result, so isolate runs no validation and fires no
// listeners; it is a pure membership change.
func (co *Coordinator) isolate(ctx context.Context, h *hook) error {
	start := time.Now()
	co.mu.Lock()
	defer co.mu.Unlock()

	old := h.cell
	if old.memberCount() <= 1 {
		co.metrics.Observe(ctx, "isolate", true, time.Since(start))
		return nil
	}

	fresh := newCell(co.equality, old.current, old.hasValue)
	fresh.previous = old.previous
	co.registerCell(fresh)

	old.removeMember(h)
	h.cell = fresh
	fresh.addMember(h)

	co.metrics.Observe(ctx, "isolate", true, time.Since(start))
	return nil
}

func (co *Coordinator) wrapFusionRejected(ctx context.Context, operation string, start time.Time, err error) error {
	co.metrics.Observe(ctx, operation, false, time.Since(start))
	return &SubmissionError{
		Kind:    FusionRejected,
		Message: "join rejected: " + err.Error(),
		Wrapped: err,
	}
}
