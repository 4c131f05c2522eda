package sync

import (
	"context"
	"sort"
	"time"
)

// Submit is the upward entry point for the six-phase submission protocol
// (spec.md §4.6). proposals maps each target Hook to the value proposed for
// it; two hooks fused to the same cell must agree on the value or the
// submission is rejected with CompletionConflict before any work begins.
func (co *Coordinator) Submit(ctx context.Context, proposals map[*Hook]any, mode SubmissionMode) (Result, error) {
	start := time.Now()

	cellProposals := make(map[*cell]any, len(proposals))
	for h, v := range proposals {
		c := h.h.cell
		if existing, ok := cellProposals[c]; ok {
			if !c.registry.Equals(existing, v) {
				err := &SubmissionError{
					Kind:    CompletionConflict,
					Message: "submission proposes two different values for the same cell",
					HookID:  h.h.id,
				}
				co.metrics.Observe(ctx, "submit", false, time.Since(start))
				return Result{}, err
			}
			continue
		}
		cellProposals[c] = v
	}

	co.mu.Lock()
	defer co.mu.Unlock()

	res, err := co.submitCells(ctx, cellProposals, mode)
	co.metrics.Observe(ctx, "submit", err == nil, time.Since(start))
	return res, err
}

// submitCells runs phases 1 through 6 against an already-resolved working
// set. Callers must hold co.mu.
func (co *Coordinator) submitCells(ctx context.Context, proposals map[*cell]any, mode SubmissionMode) (Result, error) {
	working := phase1Filter(proposals, mode)
	if len(working) == 0 {
		return Result{}, nil
	}

	working, err := co.phase2Complete(working)
	if err != nil {
		return Result{}, err
	}

	release, err := co.enterReentrant(cellsOf(working))
	if err != nil {
		return Result{}, err
	}
	defer release()

	aff := co.phase3Collect(working)

	res, err := co.phase4Validate(working, aff)
	if err != nil {
		return res, err
	}
	if mode == CheckOnly {
		return res, nil
	}

	co.phase5Commit(working)
	co.phase6Notify(ctx, working, aff, mode)

	return res, nil
}

// phase1Filter drops proposals equal to their cell's current value, unless
// mode is ForcedSubmission.
func phase1Filter(proposals map[*cell]any, mode SubmissionMode) map[*cell]any {
	out := make(map[*cell]any, len(proposals))
	for c, v := range proposals {
		if mode == ForcedSubmission || !c.equalsCurrent(v) {
			out[c] = v
		}
	}
	return out
}

// phase2Complete iterates completion to a fixed point: every round, every
// Composite with at least one hook whose cell is in the working set is
// asked to extend it, until a full round adds nothing new or the round cap
// is hit (spec.md §4.6 phase 2, §9's round-cap Open Question resolved in
// DESIGN.md).
func (co *Coordinator) phase2Complete(working map[*cell]any) (map[*cell]any, error) {
	for round := 0; ; round++ {
		if round >= co.roundCap {
			return nil, &SubmissionError{
				Kind:    CompletionDivergent,
				Message: "completion did not converge within the round cap",
			}
		}

		touched := touchedComposites(working)
		if len(touched) == 0 {
			return working, nil
		}

		grew := false
		for _, comp := range touched {
			view := buildUpdateView(comp, working)
			additions, err := comp.Complete(view)
			if err != nil {
				return nil, &SubmissionError{
					Kind:        CompletionConflict,
					Message:     err.Error(),
					CompositeID: comp.CompositeID(),
				}
			}
			for id, val := range additions {
				h, ok := comp.HookFor(id)
				if !ok {
					return nil, &SubmissionError{
						Kind:        CompletionExtendsUnknownCell,
						Message:     "completion returned an identifier the composite does not own",
						CompositeID: comp.CompositeID(),
						Identifier:  id,
					}
				}
				c := h.h.cell
				if existing, in := working[c]; in {
					if !c.registry.Equals(existing, val) {
						return nil, &SubmissionError{
							Kind:        CompletionConflict,
							Message:     "completion produced conflicting values for a cell",
							CompositeID: comp.CompositeID(),
							Identifier:  id,
							HookID:      h.h.id,
						}
					}
					continue
				}
				working[c] = val
				grew = true
			}
		}
		if !grew {
			return working, nil
		}
	}
}

// touchedComposites returns, in CompositeID order, the distinct composites
// that own at least one hook whose cell is in working.
func touchedComposites(working map[*cell]any) []Composite {
	seen := make(map[Composite]struct{})
	for c := range working {
		for _, h := range c.liveMembers() {
			if h.binding != nil {
				seen[h.binding.composite] = struct{}{}
			}
		}
	}
	out := make([]Composite, 0, len(seen))
	for comp := range seen {
		out = append(out, comp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompositeID() < out[j].CompositeID() })
	return out
}

// buildUpdateView restricts working to comp's own primaries: Submitted for
// the ones already in the working set, Current for the rest.
func buildUpdateView(comp Composite, working map[*cell]any) UpdateView {
	view := UpdateView{Submitted: make(map[Identifier]any), Current: make(map[Identifier]any)}
	for _, id := range comp.PrimaryIdentifiers() {
		h, ok := comp.HookFor(id)
		if !ok {
			continue
		}
		if v, in := working[h.h.cell]; in {
			view.Submitted[id] = v
		} else {
			view.Current[id] = h.h.cell.current
		}
	}
	return view
}

// affectedComponents is the phase-3 collection result: every composite
// touched by the final working set, and every live hook fused to one of
// its cells.
type affectedComponents struct {
	composites []Composite
	hooks      []*hook
}

func (co *Coordinator) phase3Collect(working map[*cell]any) affectedComponents {
	aff := affectedComponents{composites: touchedComposites(working)}
	seen := make(map[uint64]struct{})
	for c := range working {
		for _, h := range c.liveMembers() {
			if _, dup := seen[h.id]; dup {
				continue
			}
			seen[h.id] = struct{}{}
			aff.hooks = append(aff.hooks, h)
		}
	}
	sort.Slice(aff.hooks, func(i, j int) bool { return aff.hooks[i].id < aff.hooks[j].id })
	return aff
}

// phase4Validate validates every touched composite (primaries, then
// secondaries-extended all) and every affected hook's isolated validator,
// collecting every rejection in deterministic order before deciding
// success or failure.
func (co *Coordinator) phase4Validate(working map[*cell]any, aff affectedComponents) (Result, error) {
	var res Result

	for _, comp := range aff.composites {
		primaries := make(map[Identifier]any, len(comp.PrimaryIdentifiers()))
		for _, id := range comp.PrimaryIdentifiers() {
			h, ok := comp.HookFor(id)
			if !ok {
				continue
			}
			if v, in := working[h.h.cell]; in {
				primaries[id] = v
			} else {
				primaries[id] = h.h.cell.current
			}
		}

		if ok, reason := comp.ValidatePrimary(primaries); !ok {
			res.Rejections = append(res.Rejections, Rejection{
				Source:      "composite.validate_primary",
				CompositeID: comp.CompositeID(),
				Severity:    SeverityBlock,
				Message:     reason,
			})
			continue
		}

		all := make(map[Identifier]any, len(primaries)+len(comp.SecondaryIdentifiers()))
		for id, v := range primaries {
			all[id] = v
		}
		secondaryFailed := false
		for _, sid := range comp.SecondaryIdentifiers() {
			val, err := comp.ComputeSecondary(sid, primaries)
			if err != nil {
				res.Rejections = append(res.Rejections, Rejection{
					Source:      "composite.compute_secondary",
					CompositeID: comp.CompositeID(),
					Identifier:  sid,
					Severity:    SeverityBlock,
					Message:     err.Error(),
				})
				secondaryFailed = true
				continue
			}
			all[sid] = val
		}
		if secondaryFailed {
			continue
		}

		if ok, reason := comp.ValidateAll(all); !ok {
			res.Rejections = append(res.Rejections, Rejection{
				Source:      "composite.validate_all",
				CompositeID: comp.CompositeID(),
				Severity:    SeverityBlock,
				Message:     reason,
			})
		}
	}

	for _, h := range aff.hooks {
		if h.isolatedValidator == nil {
			continue
		}
		val := working[h.cell]
		if ok, reason := h.isolatedValidator(val); !ok {
			res.Rejections = append(res.Rejections, Rejection{
				Source:   "hook.isolated_validator",
				HookID:   h.id,
				Severity: SeverityBlock,
				Message:  reason,
			})
		}
	}

	if res.HasBlocking() {
		return res, newRejectionError(ValidationRejected, res)
	}
	return res, nil
}

// phase5Commit performs the atomic write: every cell in working moves its
// current value to previous and adopts the proposed value.
func (co *Coordinator) phase5Commit(working map[*cell]any) {
	for c, v := range working {
		c.setInternal(v)
	}
}

// phase6Notify runs post-commit notification in four strictly sequential
// global batches, the order spec.md §4.6 documents: every composite's
// AfterCommit, then every affected hook's reaction callback, then
// publisher dispatch, then every affected hook's listeners — in that
// order across *all* affected hooks, never interleaved per hook kind
// (mirrors the original's `_execute_notifications_batch`: invalidate all,
// react all, publish all, notify-listeners all). Every callback is
// isolated with recover so one bad listener cannot corrupt or abort the
// rest.
func (co *Coordinator) phase6Notify(ctx context.Context, working map[*cell]any, aff affectedComponents, mode SubmissionMode) {
	for _, comp := range aff.composites {
		comp := comp
		co.safeCall(ctx, "composite.after_commit", comp.AfterCommit)
	}

	var affected []*hook
	for _, h := range aff.hooks {
		if _, ok := working[h.cell]; ok {
			affected = append(affected, h)
		}
	}

	for _, h := range affected {
		if h.reaction == nil {
			continue
		}
		h, reaction := h, h.reaction
		prev := h.cell.previous
		co.safeCall(ctx, "hook.reaction", func() { reaction(working[h.cell], prev) })
	}

	if co.publisher != nil {
		ids := cellIDsOf(working)
		seenCells := make(map[uint64]struct{})
		for c := range working {
			if _, dup := seenCells[c.id]; dup {
				continue
			}
			seenCells[c.id] = struct{}{}
			for _, pubHandle := range co.publisher.PublicationsFor(c.id) {
				pubHandle := pubHandle
				co.safeCall(ctx, "publisher.publish", func() {
					co.publisher.Publish(pubHandle, CommitInfo{CellIDs: ids, Mode: mode})
				})
			}
		}
	}

	for _, h := range affected {
		v, ok := working[h.cell]
		if !ok {
			continue
		}
		prev := h.cell.previous
		for _, call := range h.notifyListeners(v, prev) {
			call := call
			co.safeCall(ctx, "hook.listener", call)
		}
	}
}

func (co *Coordinator) safeCall(ctx context.Context, label string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			co.logger.Error(ctx, "panic in post-commit callback", "callback", label, "panic", r)
		}
	}()
	fn()
}

func cellsOf(working map[*cell]any) []*cell {
	out := make([]*cell, 0, len(working))
	for c := range working {
		out = append(out, c)
	}
	return out
}

func cellIDsOf(working map[*cell]any) []uint64 {
	ids := make([]uint64, 0, len(working))
	for c := range working {
		ids = append(ids, c.id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
