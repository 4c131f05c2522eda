// Package immutability is a wrapper-layer collaborator, outside the core
// synchronization engine entirely (spec.md §6: "a predicate the wrapper
// layer uses before handing values to the core; the core itself stores
// whatever it is given by reference and does not validate immutability").
// A Guard wraps a Hook and consults a Registry before a proposal is ever
// built, so a frozen hook's Submit never reaches Coordinator.Submit at all.
package immutability

import (
	"context"
	"sync"

	fsync "fusioncore/pkg/sync"
)

// Registry is a thread-safe set of frozen hook ids.
type Registry struct {
	mu     sync.RWMutex
	frozen map[uint64]struct{}
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{frozen: make(map[uint64]struct{})}
}

// Freeze marks hookID immutable.
func (r *Registry) Freeze(hookID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen[hookID] = struct{}{}
}

// Unfreeze clears any previous Freeze call for hookID.
func (r *Registry) Unfreeze(hookID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.frozen, hookID)
}

// IsImmutable reports whether hookID is currently frozen.
func (r *Registry) IsImmutable(hookID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, frozen := r.frozen[hookID]
	return frozen
}

// Guard wraps a Hook so that callers going through it, rather than the bare
// Hook, get immutability enforced at the wrapper boundary. The core's
// Coordinator never sees or consults a Registry.
type Guard struct {
	hook     *fsync.Hook
	registry *Registry
}

// NewGuard returns a Guard that checks registry before delegating to hook.
func NewGuard(hook *fsync.Hook, registry *Registry) *Guard {
	return &Guard{hook: hook, registry: registry}
}

// Submit rejects locally, without ever calling into the coordinator, when
// the wrapped hook is frozen; otherwise it delegates to Hook.Submit.
func (g *Guard) Submit(ctx context.Context, value any, mode fsync.SubmissionMode) (fsync.Result, error) {
	if g.registry.IsImmutable(g.hook.ID()) {
		return fsync.Result{}, &fsync.SubmissionError{
			Kind:    fsync.ValidationRejected,
			Message: "target hook is immutable",
			HookID:  g.hook.ID(),
		}
	}
	return g.hook.Submit(ctx, value, mode)
}
