package dispatch

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/goliatone/go-errors"
)

// Text codes for the failure taxonomy. Terminal snapshots carry the message
// of the last classified error; these codes survive wrapping for callers
// that need to branch on the class.
const (
	ErrCodeTimeout           = "COMMAND_TIMEOUT"
	ErrCodeExecution         = "COMMAND_EXECUTION_FAILED"
	ErrCodeFailureResult     = "COMMAND_FAILURE_RESULT"
	ErrCodeCancelled         = "COMMAND_CANCELLED"
	ErrCodePolicyExhausted   = "COMMAND_POLICY_EXHAUSTED"
	ErrCodeInvalidDescriptor = "COMMAND_INVALID_DESCRIPTOR"
	ErrCodeDuplicateRun      = "COMMAND_DUPLICATE_RUN_ID"
	ErrCodeNotRunning        = "DISPATCHER_NOT_RUNNING"
)

var (
	ErrTimeout = apperrors.New("command timed out", apperrors.CategoryExternal).
			WithTextCode(ErrCodeTimeout)
	ErrExecution = apperrors.New("command execution failed", apperrors.CategoryHandler).
			WithTextCode(ErrCodeExecution)
	ErrFailureResult = apperrors.New("command reported failure", apperrors.CategoryHandler).
				WithTextCode(ErrCodeFailureResult)
	ErrCancelled = apperrors.New("command cancelled", apperrors.CategoryExternal).
			WithTextCode(ErrCodeCancelled)
	ErrPolicyExhausted = apperrors.New("retry budget exhausted", apperrors.CategoryHandler).
				WithTextCode(ErrCodePolicyExhausted)
)

// NewTimeoutError classifies an attempt that outlived its policy timeout.
func NewTimeoutError(timeout time.Duration, source error) *apperrors.Error {
	return cloneError(ErrTimeout, fmt.Sprintf("work exceeded %s timeout", timeout), source, nil)
}

// NewExecutionError classifies a faulted attempt (error return or panic).
func NewExecutionError(source error) *apperrors.Error {
	msg := ""
	if source != nil {
		msg = source.Error()
	}
	return cloneError(ErrExecution, msg, source, nil)
}

// NewFailureResultError classifies a business failure reported by the work
// function itself.
func NewFailureResultError(message string) *apperrors.Error {
	return cloneError(ErrFailureResult, message, nil, nil)
}

// NewCancelledError classifies an externally requested cancellation.
func NewCancelledError(source error) *apperrors.Error {
	return cloneError(ErrCancelled, "", source, nil)
}

// NewPolicyExhaustedError wraps the last classified failure once the retry
// budget is consumed.
func NewPolicyExhaustedError(maxAttempts int, last error) *apperrors.Error {
	return cloneError(ErrPolicyExhausted,
		fmt.Sprintf("failed after %d attempts", maxAttempts),
		last,
		map[string]any{"max_attempts": maxAttempts},
	)
}

// ErrorCode extracts the taxonomy text code from the outermost classified
// error in err's chain, or "" when none is present.
func ErrorCode(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

func cloneError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}
