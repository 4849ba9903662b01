package dispatch

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/oklog/ulid/v2"
)

// Outcome is what a work function reports when it finishes on its own.
// Success=false means the work ran to completion but the operation itself
// failed, which is distinct from an error or a panic.
type Outcome struct {
	Success bool
	Message string
}

// WorkFunc is the unit of asynchronous work a caller hands to the engine.
// The context carries cancellation (external cancel or the per-attempt
// timeout, whichever fires first) and an optional progress reporter, see
// ReportProgress.
type WorkFunc func(ctx context.Context) (Outcome, error)

// Descriptor describes one submitted command.
type Descriptor struct {
	// Operation is the policy lookup key. Spelling is forgiving, see OperationKey.
	Operation string
	// RunID identifies this submission. Generated when empty.
	RunID string
	// ThreadScope serializes commands sharing the same non-empty value.
	ThreadScope string
	// Priority orders ready work, higher first.
	Priority int
	// Metadata is echoed on snapshots for display.
	Metadata map[string]string
	// Work is the function executed under the resolved policy.
	Work WorkFunc
}

// Validate reports malformed descriptors. This is the only failure Enqueue
// surfaces synchronously.
func (d Descriptor) Validate() error {
	if d.Operation == "" {
		return errors.New("descriptor requires an operation name", errors.CategoryValidation).
			WithTextCode(ErrCodeInvalidDescriptor)
	}
	if d.Work == nil {
		return errors.New("descriptor requires a work function", errors.CategoryValidation).
			WithTextCode(ErrCodeInvalidDescriptor)
	}
	return nil
}

// NewRunID generates a ULID string for a submitted command.
func NewRunID() string {
	return ulid.Make().String()
}
