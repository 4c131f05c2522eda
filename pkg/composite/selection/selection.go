// Package selection implements a reference Composite: a dict-keyed value
// selector matching spec.md's worked example of a scalar view onto a
// container field. Its primaries are dict, key and value; value always
// mirrors dict[key], so submitting a new value writes through to the map
// and submitting a new key or dict re-derives value.
package selection

import (
	"fmt"

	fsync "fusioncore/pkg/sync"
)

// Primary identifiers exposed by every Selection.
const (
	Dict  fsync.Identifier = "dict"
	Key   fsync.Identifier = "key"
	Value fsync.Identifier = "value"
)

// Selection binds dict, key and value together.
type Selection struct {
	*fsync.CompositeBase
	fsync.UnimplementedComposite
}

// New constructs a Selection over a copy of dict, initially keyed by key.
func New(coord *fsync.Coordinator, dict map[string]any, key string) *Selection {
	s := &Selection{}
	s.CompositeBase = fsync.NewCompositeBase(coord, map[fsync.Identifier]any{
		Dict:  cloneDict(dict),
		Key:   key,
		Value: dict[key],
	})
	s.CompositeBase.Bind(s)
	return s
}

func cloneDict(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Selection) current(view fsync.UpdateView, id fsync.Identifier) any {
	if v, ok := view.Submitted[id]; ok {
		return v
	}
	return view.Current[id]
}

// Complete keeps dict, key and value consistent: submitting key or dict
// re-derives value; submitting value writes through to dict under the
// current key.
func (s *Selection) Complete(view fsync.UpdateView) (map[fsync.Identifier]any, error) {
	dict, _ := s.current(view, Dict).(map[string]any)
	key, _ := s.current(view, Key).(string)

	_, dictSubmitted := view.Submitted[Dict]
	_, keySubmitted := view.Submitted[Key]
	value, valueSubmitted := view.Submitted[Value]

	out := make(map[fsync.Identifier]any)
	switch {
	case valueSubmitted && !dictSubmitted && !keySubmitted:
		updated := cloneDict(dict)
		updated[key] = value
		out[Dict] = updated
	case dictSubmitted || keySubmitted:
		out[Value] = dict[key]
	}
	return out, nil
}

// ValidatePrimary rejects a key absent from dict.
func (s *Selection) ValidatePrimary(primaries map[fsync.Identifier]any) (bool, string) {
	dict, _ := primaries[Dict].(map[string]any)
	key, _ := primaries[Key].(string)
	if _, ok := dict[key]; !ok {
		return false, fmt.Sprintf("key %q is not present in dict", key)
	}
	return true, ""
}
