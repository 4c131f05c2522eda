// Package rangeselect implements a reference Composite clamping a value
// into a [min, max] window, demonstrating a secondary identifier computed
// deterministically from the primaries (spec.md §4.6 phase 4's
// secondary-computation step). The package is named rangeselect, not
// range, because range is a Go keyword.
package rangeselect

import (
	"fmt"

	fsync "fusioncore/pkg/sync"
)

// Primary and secondary identifiers exposed by every Range.
const (
	Min          fsync.Identifier = "min"
	Max          fsync.Identifier = "max"
	Value        fsync.Identifier = "value"
	ClampedValue fsync.Identifier = "clamped_value"
)

// Range binds min, max and value together: value is always clamped into
// [min, max] on completion, and clamped_value exposes that clamped result
// as a read-only secondary so callers never recompute it themselves.
type Range struct {
	*fsync.CompositeBase
}

// New constructs a Range over the given bounds and initial value.
func New(coord *fsync.Coordinator, min, max, value float64) *Range {
	r := &Range{}
	r.CompositeBase = fsync.NewCompositeBase(coord, map[fsync.Identifier]any{
		Min:   min,
		Max:   max,
		Value: value,
	})
	r.CompositeBase.Bind(r)
	return r
}

// SecondaryIdentifiers declares clamped_value.
func (r *Range) SecondaryIdentifiers() []fsync.Identifier {
	return []fsync.Identifier{ClampedValue}
}

func (r *Range) current(view fsync.UpdateView, id fsync.Identifier) any {
	if v, ok := view.Submitted[id]; ok {
		return v
	}
	return view.Current[id]
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Complete clamps a submitted value into the current [min, max] window.
func (r *Range) Complete(view fsync.UpdateView) (map[fsync.Identifier]any, error) {
	value, valueSubmitted := view.Submitted[Value]
	if !valueSubmitted {
		return nil, nil
	}
	min, _ := r.current(view, Min).(float64)
	max, _ := r.current(view, Max).(float64)
	v, ok := value.(float64)
	if !ok {
		return nil, fmt.Errorf("value must be a float64, got %T", value)
	}
	clamped := clamp(v, min, max)
	if clamped == v {
		return nil, nil
	}
	return map[fsync.Identifier]any{Value: clamped}, nil
}

// ValidatePrimary rejects an inverted window.
func (r *Range) ValidatePrimary(primaries map[fsync.Identifier]any) (bool, string) {
	min, _ := primaries[Min].(float64)
	max, _ := primaries[Max].(float64)
	if min > max {
		return false, "min must not exceed max"
	}
	return true, ""
}

// ValidateAll has nothing further to check once primaries are consistent.
func (r *Range) ValidateAll(map[fsync.Identifier]any) (bool, string) { return true, "" }

// ComputeSecondary derives clamped_value from the primaries.
func (r *Range) ComputeSecondary(id fsync.Identifier, primaries map[fsync.Identifier]any) (any, error) {
	if id != ClampedValue {
		return nil, fmt.Errorf("unknown secondary identifier %q", id)
	}
	min, _ := primaries[Min].(float64)
	max, _ := primaries[Max].(float64)
	value, _ := primaries[Value].(float64)
	return clamp(value, min, max), nil
}

// AfterCommit has nothing to do; Range keeps no external state.
func (r *Range) AfterCommit() {}
