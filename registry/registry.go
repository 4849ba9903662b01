// Package registry holds the live table of command snapshots the engine
// exposes to observers.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-dispatch"
)

// Registry is a concurrency-safe snapshot table. It owns the stored values
// outright: Upsert copies in, readers get copies out, and Update swaps whole
// values under the lock, so no reader ever observes a snapshot mid-write.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]dispatch.CommandSnapshot

	now func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		commands: make(map[string]dispatch.CommandSnapshot),
		now:      time.Now,
	}
}

// Upsert stores a copy of the snapshot, replacing any previous value for
// the same run.
func (r *Registry) Upsert(snap dispatch.CommandSnapshot) {
	if snap.RunID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[snap.RunID] = snap.Clone()
}

// Update applies fn to the stored snapshot for runID as one atomic
// replacement. Returns false when the run is unknown.
func (r *Registry) Update(runID string, fn func(*dispatch.CommandSnapshot)) bool {
	if fn == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.commands[runID]
	if !ok {
		return false
	}
	cp := snap.Clone()
	fn(&cp)
	cp.RunID = runID
	r.commands[runID] = cp
	return true
}

// Get returns a copy of the snapshot for runID.
func (r *Registry) Get(runID string) (dispatch.CommandSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.commands[runID]
	if !ok {
		return dispatch.CommandSnapshot{}, false
	}
	return snap.Clone(), true
}

// Active returns every non-terminal snapshot plus terminal ones that
// finished within retention, ordered by priority descending then enqueue
// time descending (newest first).
func (r *Registry) Active(retention time.Duration) []dispatch.CommandSnapshot {
	cutoff := r.now().Add(-retention)

	r.mu.RLock()
	out := make([]dispatch.CommandSnapshot, 0, len(r.commands))
	for _, snap := range r.commands {
		if snap.Status.Terminal() && finishedBefore(snap, cutoff) {
			continue
		}
		out = append(out, snap.Clone())
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].EnqueuedAt.After(out[j].EnqueuedAt)
	})
	return out
}

// Prune removes terminal snapshots that finished before the retention
// window and returns how many were dropped.
func (r *Registry) Prune(retention time.Duration) int {
	cutoff := r.now().Add(-retention)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, snap := range r.commands {
		if snap.Status.Terminal() && finishedBefore(snap, cutoff) {
			delete(r.commands, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked runs, terminal included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

func finishedBefore(snap dispatch.CommandSnapshot, cutoff time.Time) bool {
	if snap.FinishedAt == nil {
		return false
	}
	return snap.FinishedAt.Before(cutoff)
}
