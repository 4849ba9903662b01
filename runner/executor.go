package runner

import (
	"context"
	"time"

	"github.com/goliatone/go-dispatch"
	"github.com/goliatone/go-dispatch/policy"
)

// failureKind classifies a non-successful attempt.
type failureKind int

const (
	failureNone failureKind = iota
	failureTimeout
	failureException
	failureResult
)

// Result is the terminal outcome of one command run. Status is always one
// of Completed, Failed, or Cancelled; retries stay internal and only show
// through Attempts.
type Result struct {
	Status   dispatch.Status
	Attempts int
	Message  string
	Err      error
}

// Hooks receives intra-run notifications on the executing goroutine. All
// fields are optional.
type Hooks struct {
	// OnAttempt fires at the start of every attempt, 1-based.
	OnAttempt func(attempt int)
	// OnRetry fires after a retryable failure, before the backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
	// OnProgress relays step updates pushed by the work function.
	OnProgress dispatch.ProgressFunc
}

// SleepFunc waits for d or until ctx is done. Injectable for tests.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs a single work unit under a resolved policy: per-attempt
// timeout, outcome classification, and the retry/backoff loop.
type Executor struct {
	logger dispatch.Logger
	sleep  SleepFunc
}

type Option func(*Executor)

func WithLogger(l dispatch.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithSleepFunc replaces the backoff sleep, letting tests observe delays
// without waiting them out.
func WithSleepFunc(fn SleepFunc) Option {
	return func(e *Executor) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// New constructs an Executor, applying defaults if unset.
func New(opts ...Option) *Executor {
	e := &Executor{sleep: sleepContext}
	for _, o := range opts {
		if o != nil {
			o(e)
		}
	}
	e.logger = dispatch.NormalizeLogger(e.logger)
	return e
}

// Run drives the attempt/retry loop for a single command. ctx is the run's
// own cancellation context; cancelling it terminates the run as Cancelled at
// the next suspension point, including mid-backoff. Run never panics: faults
// in the work function come back classified as execution failures.
func (e *Executor) Run(ctx context.Context, work dispatch.WorkFunc, pol policy.ExecutionPolicy, hooks Hooks) Result {
	pol = pol.Normalize()
	strategy := StrategyFromPolicy(pol)

	if hooks.OnProgress != nil {
		ctx = dispatch.ContextWithProgress(ctx, hooks.OnProgress)
	}

	for attempt := 1; ; attempt++ {
		if hooks.OnAttempt != nil {
			hooks.OnAttempt(attempt)
		}

		if err := ctx.Err(); err != nil {
			return Result{
				Status:   dispatch.StatusCancelled,
				Attempts: attempt,
				Err:      dispatch.NewCancelledError(err),
			}
		}

		ao := e.attempt(ctx, work, pol)
		switch {
		case ao.cancelled:
			return Result{Status: dispatch.StatusCancelled, Attempts: attempt, Err: ao.err}
		case ao.kind == failureNone:
			return Result{Status: dispatch.StatusCompleted, Attempts: attempt, Message: ao.message}
		}

		if !retryable(pol, ao.kind) {
			return Result{Status: dispatch.StatusFailed, Attempts: attempt, Message: ao.message, Err: ao.err}
		}
		if attempt >= pol.MaxAttempts {
			return Result{
				Status:   dispatch.StatusFailed,
				Attempts: attempt,
				Message:  ao.message,
				Err:      dispatch.NewPolicyExhaustedError(pol.MaxAttempts, ao.err),
			}
		}

		delay := strategy.SleepDuration(attempt, ao.err)
		e.logger.Warn("command attempt %d of %d failed, retrying in %s: %v",
			attempt, pol.MaxAttempts, delay, ao.err)
		if hooks.OnRetry != nil {
			hooks.OnRetry(attempt, delay, ao.err)
		}
		if err := e.sleep(ctx, delay); err != nil {
			return Result{
				Status:   dispatch.StatusCancelled,
				Attempts: attempt,
				Err:      dispatch.NewCancelledError(err),
			}
		}
	}
}

type attemptOutcome struct {
	kind      failureKind
	message   string
	err       error
	cancelled bool
}

// attempt executes one invocation under the policy's per-attempt deadline
// and classifies the result.
func (e *Executor) attempt(ctx context.Context, work dispatch.WorkFunc, pol policy.ExecutionPolicy) attemptOutcome {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout := pol.Timeout(); timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	outcome, err := invokeWork(attemptCtx, work)

	// external cancellation wins over any other classification, including a
	// simultaneous timeout
	if ctx.Err() != nil {
		return attemptOutcome{cancelled: true, err: dispatch.NewCancelledError(ctx.Err())}
	}

	switch {
	case err != nil:
		if attemptCtx.Err() == context.DeadlineExceeded {
			return attemptOutcome{kind: failureTimeout, err: dispatch.NewTimeoutError(pol.Timeout(), err)}
		}
		return attemptOutcome{kind: failureException, err: dispatch.NewExecutionError(err)}
	case !outcome.Success:
		return attemptOutcome{
			kind:    failureResult,
			message: outcome.Message,
			err:     dispatch.NewFailureResultError(outcome.Message),
		}
	default:
		return attemptOutcome{message: outcome.Message}
	}
}

// invokeWork calls the work function with panic capture.
func invokeWork(ctx context.Context, work dispatch.WorkFunc) (out dispatch.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = dispatch.PanicError(r)
		}
	}()
	return work(ctx)
}

// retryable maps a failure classification to the policy's retry switches:
// timeouts and faults follow RetryOnException, business failures follow
// RetryOnFailureResult.
func retryable(p policy.ExecutionPolicy, kind failureKind) bool {
	switch kind {
	case failureTimeout, failureException:
		return p.RetryOnException
	case failureResult:
		return p.RetryOnFailureResult
	default:
		return false
	}
}

// sleepContext waits for d, abandoning the wait when ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
