package sync

import (
	"fmt"
	"sort"
	"strings"
)

// SubmissionErrorKind enumerates the taxonomy a submission or fusion
// operation can fail with.
type SubmissionErrorKind string

const (
	// ValidationRejected: a composite's validate_primary/validate_all, or a
	// hook's isolated validator, rejected the proposed state.
	ValidationRejected SubmissionErrorKind = "ValidationRejected"

	// CompletionConflict: two different completion steps proposed
	// different, non-equal values for the same cell.
	CompletionConflict SubmissionErrorKind = "CompletionConflict"

	// CompletionDivergent: the phase-2 fixed-point loop did not converge
	// within the configured round cap.
	CompletionDivergent SubmissionErrorKind = "CompletionDivergent"

	// CompletionExtendsUnknownCell: a composite's Complete returned an
	// identifier it does not own.
	CompletionExtendsUnknownCell SubmissionErrorKind = "CompletionExtendsUnknownCell"

	// Reentrant: the calling goroutine is already mid-commit on a cell set
	// that overlaps this submission's.
	Reentrant SubmissionErrorKind = "Reentrant"

	// FusionRejected: Join failed, typically because validation rejected
	// the adopted value; Wrapped carries the underlying SubmissionError.
	FusionRejected SubmissionErrorKind = "FusionRejected"

	// TypeMismatch: a proposed value's concrete type is incompatible with
	// a hook's declared type (enforced by the upward API wrapping a Hook,
	// not by the core itself, which is untyped by design).
	TypeMismatch SubmissionErrorKind = "TypeMismatch"
)

// Severity classifies a Rejection. Only SeverityBlock rejections abort a
// submission; the taxonomy has room to grow without every caller switching
// on it (mirrors the teacher's domain.Severity, which also reserves
// non-blocking tiers for future advisory rules).
type Severity string

const (
	SeverityBlock Severity = "block"
)

// Rejection is one reason a validation step failed, analogous to the
// teacher's domain.Violation.
type Rejection struct {
	Source      string // human-readable origin: a composite id or hook id
	CompositeID uint64
	HookID      uint64
	Identifier  Identifier
	Severity    Severity
	Message     string
}

// Result aggregates every Rejection observed during phase 4, analogous to
// the teacher's domain.Result.
type Result struct {
	Rejections []Rejection
}

// Merge appends other's rejections to r.
func (r *Result) Merge(other Result) {
	r.Rejections = append(r.Rejections, other.Rejections...)
}

// HasBlocking reports whether any rejection is SeverityBlock.
func (r Result) HasBlocking() bool {
	for _, v := range r.Rejections {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// First returns the first blocking rejection in deterministic order
// (composite id ascending, then identifier, then hook id), or the zero
// value and false when there is none.
func (r Result) First() (Rejection, bool) {
	blocking := make([]Rejection, 0, len(r.Rejections))
	for _, v := range r.Rejections {
		if v.Severity == SeverityBlock {
			blocking = append(blocking, v)
		}
	}
	if len(blocking) == 0 {
		return Rejection{}, false
	}
	sort.SliceStable(blocking, func(i, j int) bool {
		a, b := blocking[i], blocking[j]
		if a.CompositeID != b.CompositeID {
			return a.CompositeID < b.CompositeID
		}
		if a.Identifier != b.Identifier {
			return a.Identifier < b.Identifier
		}
		return a.HookID < b.HookID
	})
	return blocking[0], true
}

// SubmissionError is the single error type returned by Coordinator.Submit,
// Join and Isolate, following the teacher's RuleViolationError{Result
// Result} wrap-and-surface pattern (pkg/domain/entities.go).
type SubmissionError struct {
	Kind        SubmissionErrorKind
	Message     string
	CompositeID uint64
	Identifier  Identifier
	HookID      uint64
	Result      Result
	Wrapped     error
}

func (e *SubmissionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if e.Identifier != "" {
		fmt.Fprintf(&b, " (identifier=%s)", e.Identifier)
	}
	return b.String()
}

// Unwrap exposes the wrapped error for FusionRejected, satisfying
// errors.Is/errors.As against the underlying SubmissionError.
func (e *SubmissionError) Unwrap() error { return e.Wrapped }

func newRejectionError(kind SubmissionErrorKind, res Result) *SubmissionError {
	first, ok := res.First()
	msg := "submission rejected"
	var compositeID, hookID uint64
	var identifier Identifier
	if ok {
		msg = first.Message
		compositeID, hookID, identifier = first.CompositeID, first.HookID, first.Identifier
	}
	return &SubmissionError{
		Kind:        kind,
		Message:     msg,
		CompositeID: compositeID,
		HookID:      hookID,
		Identifier:  identifier,
		Result:      res,
	}
}
