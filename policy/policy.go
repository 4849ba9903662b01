package policy

import "time"

// Engine-wide defaults applied when a config omits a field.
const (
	DefaultTimeoutSeconds        = 20
	DefaultMaxAttempts           = 1
	DefaultRetryDelayBaseSeconds = 2
	DefaultRetryDelayMaxSeconds  = 30
)

// ExecutionPolicy is the resolved timeout/retry/backoff configuration for
// one run. Immutable once resolved: the executor works on a value copy.
type ExecutionPolicy struct {
	// TimeoutSeconds bounds each attempt. Zero or negative disables the deadline.
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
	// MaxAttempts is the total attempt budget, including the first run.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
	// RetryDelayBaseSeconds seeds the backoff between attempts.
	RetryDelayBaseSeconds int `json:"retry_delay_base_seconds" yaml:"retry_delay_base_seconds"`
	// RetryDelayMaxSeconds caps backoff growth.
	RetryDelayMaxSeconds int `json:"retry_delay_max_seconds" yaml:"retry_delay_max_seconds"`
	// ExponentialBackoff doubles the delay after every failed attempt.
	ExponentialBackoff bool `json:"exponential_backoff" yaml:"exponential_backoff"`
	// RetryOnFailureResult retries business failures reported by the work itself.
	RetryOnFailureResult bool `json:"retry_on_failure_result" yaml:"retry_on_failure_result"`
	// RetryOnException retries faults and timeouts.
	RetryOnException bool `json:"retry_on_exception" yaml:"retry_on_exception"`
}

// Default returns the documented engine defaults: 20s timeout, single
// attempt, 2s base delay capped at 30s, exponential backoff on, retry on
// exception on, retry on failure result off.
func Default() ExecutionPolicy {
	return ExecutionPolicy{
		TimeoutSeconds:        DefaultTimeoutSeconds,
		MaxAttempts:           DefaultMaxAttempts,
		RetryDelayBaseSeconds: DefaultRetryDelayBaseSeconds,
		RetryDelayMaxSeconds:  DefaultRetryDelayMaxSeconds,
		ExponentialBackoff:    true,
		RetryOnException:      true,
	}
}

// Normalize clamps out-of-range fields so a resolved policy is always
// executable: at least one attempt, non-negative delays, cap never below
// the base.
func (p ExecutionPolicy) Normalize() ExecutionPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.RetryDelayBaseSeconds < 0 {
		p.RetryDelayBaseSeconds = 0
	}
	if p.RetryDelayMaxSeconds < p.RetryDelayBaseSeconds {
		p.RetryDelayMaxSeconds = p.RetryDelayBaseSeconds
	}
	return p
}

// Timeout returns the per-attempt deadline, zero when disabled.
func (p ExecutionPolicy) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// BaseDelay returns the backoff seed as a duration.
func (p ExecutionPolicy) BaseDelay() time.Duration {
	return time.Duration(p.RetryDelayBaseSeconds) * time.Second
}

// MaxDelay returns the backoff cap as a duration.
func (p ExecutionPolicy) MaxDelay() time.Duration {
	return time.Duration(p.RetryDelayMaxSeconds) * time.Second
}
