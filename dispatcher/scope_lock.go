package dispatcher

import (
	"context"
	"sync"
)

// ScopeLock serializes commands that share a thread scope. Each key gets a
// lazily created strict-FIFO wait queue; the empty scope never locks, so
// unscoped commands stay fully parallel. Entries are removed as soon as a
// key has no holder and no waiters.
type ScopeLock struct {
	mu     sync.Mutex
	scopes map[string]*scopeEntry
}

type scopeEntry struct {
	held    bool
	waiters []chan struct{}
}

// NewScopeLock creates an empty lock table.
func NewScopeLock() *ScopeLock {
	return &ScopeLock{scopes: make(map[string]*scopeEntry)}
}

// TryAcquire takes the scope only when it is free and nothing is queued
// ahead, preserving FIFO order for blocked waiters.
func (l *ScopeLock) TryAcquire(scope string) bool {
	if scope == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.scopes[scope]
	if e == nil {
		l.scopes[scope] = &scopeEntry{held: true}
		return true
	}
	if e.held || len(e.waiters) > 0 {
		return false
	}
	e.held = true
	return true
}

// Acquire blocks until the scope is available, honoring submission order
// among waiters. A cancelled context abandons the wait.
func (l *ScopeLock) Acquire(ctx context.Context, scope string) error {
	if scope == "" {
		return ctx.Err()
	}

	l.mu.Lock()
	e := l.scopes[scope]
	if e == nil {
		e = &scopeEntry{}
		l.scopes[scope] = e
	}
	if !e.held && len(e.waiters) == 0 {
		e.held = true
		l.mu.Unlock()
		return ctx.Err()
	}
	permit := make(chan struct{})
	e.waiters = append(e.waiters, permit)
	l.mu.Unlock()

	select {
	case <-permit:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		select {
		case <-permit:
			// the release already handed us the permit; pass it on
			l.mu.Unlock()
			l.Release(scope)
		default:
			l.removeWaiter(scope, permit)
			l.mu.Unlock()
		}
		return ctx.Err()
	}
}

// Release hands the scope to the next waiter, or frees and garbage-collects
// the entry when nobody is queued.
func (l *ScopeLock) Release(scope string) {
	if scope == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.scopes[scope]
	if e == nil {
		return
	}
	if len(e.waiters) > 0 {
		// the permit passes directly, held stays true
		permit := e.waiters[0]
		e.waiters = e.waiters[1:]
		close(permit)
		return
	}
	delete(l.scopes, scope)
}

// Locked reports whether the scope is currently held or contended.
func (l *ScopeLock) Locked(scope string) bool {
	if scope == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.scopes[scope]
	return e != nil && (e.held || len(e.waiters) > 0)
}

// removeWaiter must be called with l.mu held.
func (l *ScopeLock) removeWaiter(scope string, permit chan struct{}) {
	e := l.scopes[scope]
	if e == nil {
		return
	}
	for i, w := range e.waiters {
		if w == permit {
			e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
			break
		}
	}
	if !e.held && len(e.waiters) == 0 {
		delete(l.scopes, scope)
	}
}
