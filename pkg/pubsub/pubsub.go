// Package pubsub provides a minimal, in-process fsync.Publisher:
// subscriptions keyed by cell id, delivered synchronously during the
// coordinator's phase-6 notification step.
package pubsub

import (
	"sync"

	fsync "fusioncore/pkg/sync"
)

// Subscription is the opaque publisher handle this package hands back to
// the coordinator from PublicationsFor, and receives back through Publish.
type Subscription struct {
	id      uint64
	cellID  uint64
	deliver func(fsync.CommitInfo)
}

// Broker implements fusioncore/pkg/sync.Publisher with in-process,
// synchronous delivery.
type Broker struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64][]*Subscription
}

// NewBroker returns an empty Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64][]*Subscription)}
}

// Subscribe registers fn to be called with CommitInfo whenever the cell
// backing hook commits. It returns a function that removes the
// subscription.
func (b *Broker) Subscribe(hook *fsync.Hook, fn func(fsync.CommitInfo)) (unsubscribe func()) {
	cellID := hook.Snapshot().ID

	b.mu.Lock()
	b.next++
	sub := &Subscription{id: b.next, cellID: cellID, deliver: fn}
	b.subs[cellID] = append(b.subs[cellID], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[cellID]
		for i, s := range list {
			if s == sub {
				b.subs[cellID] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// PublicationsFor implements fusioncore/pkg/sync.Publisher.
func (b *Broker) PublicationsFor(cellID uint64) []any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := b.subs[cellID]
	out := make([]any, len(subs))
	for i, s := range subs {
		out[i] = s
	}
	return out
}

// Publish implements fusioncore/pkg/sync.Publisher.
func (b *Broker) Publish(publisher any, info fsync.CommitInfo) {
	if sub, ok := publisher.(*Subscription); ok {
		sub.deliver(info)
	}
}
