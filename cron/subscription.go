package cron

import "sync"

// Subscription lets a caller detach a schedule.
type Subscription interface {
	Unsubscribe()
}

// ScheduleStatus reports a schedule handle state.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusIdle      ScheduleStatus = "idle"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCanceled  ScheduleStatus = "canceled"
	ScheduleStatusFailed    ScheduleStatus = "failed"
	ScheduleStatusStopped   ScheduleStatus = "stopped"
)

// Handle extends Subscription with lifecycle controls over one schedule and
// a record of the dispatcher runs its firings produced. RunIDs lets a caller
// follow each firing into the dispatcher's status registry.
type Handle interface {
	Subscription
	Cancel()
	Status() ScheduleStatus
	Err() error
	Done() <-chan struct{}
	ID() int64
	RunIDs() []string
	LastRunID() string
}

type scheduleHandle struct {
	scheduler *Scheduler
	id        int64
	entryID   int
	done      chan struct{}

	mu     sync.RWMutex
	status ScheduleStatus
	err    error
	runIDs []string
	once   sync.Once
}

func (h *scheduleHandle) Unsubscribe() {
	h.Cancel()
}

func (h *scheduleHandle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.scheduler != nil {
			h.scheduler.removeHandle(h.id)
		}
		h.setTerminal(ScheduleStatusCanceled, nil)
	})
}

func (h *scheduleHandle) Status() ScheduleStatus {
	if h == nil {
		return ScheduleStatusStopped
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *scheduleHandle) Err() error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

func (h *scheduleHandle) Done() <-chan struct{} {
	if h == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return h.done
}

func (h *scheduleHandle) ID() int64 {
	if h == nil {
		return 0
	}
	return h.id
}

// RunIDs returns the run IDs of every successful firing, oldest first.
func (h *scheduleHandle) RunIDs() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.runIDs))
	copy(out, h.runIDs)
	return out
}

// LastRunID returns the run ID of the most recent firing, "" before the
// first one.
func (h *scheduleHandle) LastRunID() string {
	if h == nil {
		return ""
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.runIDs) == 0 {
		return ""
	}
	return h.runIDs[len(h.runIDs)-1]
}

// recordRun appends a firing's run ID alongside the status transition, so a
// caller reading Status and LastRunID sees them move together. A handle that
// went terminal mid-firing keeps its terminal status.
func (h *scheduleHandle) recordRun(runID string, status ScheduleStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runIDs = append(h.runIDs, runID)
	if isTerminalStatus(h.status) {
		return
	}
	h.status = status
	h.err = nil
}

func (h *scheduleHandle) setStatus(status ScheduleStatus, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	h.err = err
}

// setTerminal closes Done and records the terminal status. First terminal
// transition wins.
func (h *scheduleHandle) setTerminal(status ScheduleStatus, err error) {
	h.mu.Lock()
	if !isTerminalStatus(h.status) {
		h.status = status
		h.err = err
	}
	h.mu.Unlock()
	if h.done != nil {
		select {
		case <-h.done:
		default:
			close(h.done)
		}
	}
}

func isTerminalStatus(status ScheduleStatus) bool {
	switch status {
	case ScheduleStatusCompleted, ScheduleStatusCanceled, ScheduleStatusFailed, ScheduleStatusStopped:
		return true
	default:
		return false
	}
}
