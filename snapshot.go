package dispatch

import "time"

// Status is the externally visible lifecycle state of a command run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CommandSnapshot is a point-in-time view of one command run. The registry
// owns the stored value; callers always receive copies.
type CommandSnapshot struct {
	RunID        string            `json:"run_id"`
	Operation    string            `json:"operation"`
	Status       Status            `json:"status"`
	Attempt      int               `json:"attempt"`
	MaxAttempts  int               `json:"max_attempts"`
	CurrentStep  int               `json:"current_step,omitempty"`
	MaxStep      int               `json:"max_step,omitempty"`
	Priority     int               `json:"priority"`
	ThreadScope  string            `json:"thread_scope,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	EnqueuedAt   time.Time         `json:"enqueued_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy safe to hand across the API boundary.
func (s CommandSnapshot) Clone() CommandSnapshot {
	cp := s
	if s.StartedAt != nil {
		t := *s.StartedAt
		cp.StartedAt = &t
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		cp.FinishedAt = &t
	}
	if len(s.Metadata) > 0 {
		cp.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}
