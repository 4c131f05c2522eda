package sync

import (
	stdsync "sync"

	"fusioncore/internal/engine"
)

// reentrantLock lets the goroutine that currently holds it acquire it again
// without blocking, while any other goroutine blocks until the holder's
// depth returns to zero. The coordinator's lock must behave this way
// because phase 6 runs reaction callbacks and listeners synchronously,
// inline, while still "inside" the outer Submit call; those callbacks are
// allowed to submit again (spec.md §5), and must not deadlock against
// themselves.
type reentrantLock struct {
	mu    stdsync.Mutex
	cond  *stdsync.Cond
	owner uint64
	held  bool
	depth int
}

func newReentrantLock() *reentrantLock {
	l := &reentrantLock{}
	l.cond = stdsync.NewCond(&l.mu)
	return l
}

// Lock acquires the lock, blocking only if another goroutine currently
// holds it.
func (l *reentrantLock) Lock() {
	gid := engine.GoroutineID()
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.held && l.owner != gid {
		l.cond.Wait()
	}
	l.owner = gid
	l.held = true
	l.depth++
}

// Unlock releases one level of acquisition, waking a waiting goroutine once
// depth returns to zero.
func (l *reentrantLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.depth--
	if l.depth == 0 {
		l.held = false
		l.cond.Signal()
	}
}
