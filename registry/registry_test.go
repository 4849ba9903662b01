package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-dispatch"
)

func TestUpsertAndGetReturnCopies(t *testing.T) {
	r := New()

	snap := dispatch.CommandSnapshot{
		RunID:    "run-1",
		Status:   dispatch.StatusQueued,
		Metadata: map[string]string{"tenant": "acme"},
	}
	r.Upsert(snap)

	// mutating the caller's value must not reach the stored one
	snap.Metadata["tenant"] = "other"

	got, ok := r.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, "acme", got.Metadata["tenant"])

	// and mutating the returned copy must not either
	got.Metadata["tenant"] = "third"
	again, _ := r.Get("run-1")
	assert.Equal(t, "acme", again.Metadata["tenant"])
}

func TestUpsertIgnoresEmptyRunID(t *testing.T) {
	r := New()
	r.Upsert(dispatch.CommandSnapshot{Status: dispatch.StatusQueued})
	assert.Equal(t, 0, r.Len())
}

func TestUpdateIsAtomicReplacement(t *testing.T) {
	r := New()
	r.Upsert(dispatch.CommandSnapshot{RunID: "run-1", Status: dispatch.StatusQueued})

	ok := r.Update("run-1", func(s *dispatch.CommandSnapshot) {
		s.Status = dispatch.StatusRunning
		s.Attempt = 1
		s.RunID = "tampered"
	})
	require.True(t, ok)

	got, _ := r.Get("run-1")
	assert.Equal(t, dispatch.StatusRunning, got.Status)
	assert.Equal(t, 1, got.Attempt)
	assert.Equal(t, "run-1", got.RunID, "run ID is the map key and cannot be rewritten")

	assert.False(t, r.Update("missing", func(*dispatch.CommandSnapshot) {}))
	assert.False(t, r.Update("run-1", nil))
}

func TestActiveOrderingAndRetention(t *testing.T) {
	r := New()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	finishedOld := base.Add(-10 * time.Minute)
	finishedRecent := base.Add(-time.Minute)

	r.Upsert(dispatch.CommandSnapshot{RunID: "low", Priority: 1, Status: dispatch.StatusQueued, EnqueuedAt: base.Add(-3 * time.Minute)})
	r.Upsert(dispatch.CommandSnapshot{RunID: "high", Priority: 5, Status: dispatch.StatusRunning, EnqueuedAt: base.Add(-2 * time.Minute)})
	r.Upsert(dispatch.CommandSnapshot{RunID: "newer", Priority: 1, Status: dispatch.StatusQueued, EnqueuedAt: base.Add(-time.Minute)})
	r.Upsert(dispatch.CommandSnapshot{RunID: "done-recent", Priority: 1, Status: dispatch.StatusCompleted, EnqueuedAt: base.Add(-4 * time.Minute), FinishedAt: &finishedRecent})
	r.Upsert(dispatch.CommandSnapshot{RunID: "done-old", Priority: 9, Status: dispatch.StatusCompleted, EnqueuedAt: base.Add(-20 * time.Minute), FinishedAt: &finishedOld})

	active := r.Active(5 * time.Minute)
	ids := make([]string, 0, len(active))
	for _, s := range active {
		ids = append(ids, s.RunID)
	}

	// priority descending, then enqueue time descending; the stale terminal
	// run is outside the retention window
	assert.Equal(t, []string{"high", "newer", "low", "done-recent"}, ids)
}

func TestPruneDropsStaleTerminalRuns(t *testing.T) {
	r := New()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	old := base.Add(-time.Hour)
	recent := base.Add(-time.Minute)

	r.Upsert(dispatch.CommandSnapshot{RunID: "stale", Status: dispatch.StatusFailed, FinishedAt: &old})
	r.Upsert(dispatch.CommandSnapshot{RunID: "fresh", Status: dispatch.StatusCompleted, FinishedAt: &recent})
	r.Upsert(dispatch.CommandSnapshot{RunID: "live", Status: dispatch.StatusRunning})

	removed := r.Prune(5 * time.Minute)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, r.Len())

	_, ok := r.Get("stale")
	assert.False(t, ok)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	r := New()
	r.Upsert(dispatch.CommandSnapshot{RunID: "run-1", Status: dispatch.StatusQueued})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Update("run-1", func(s *dispatch.CommandSnapshot) {
					s.Attempt++
				})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Get("run-1")
				r.Active(time.Minute)
			}
		}()
	}
	wg.Wait()

	got, ok := r.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, 800, got.Attempt)
}
