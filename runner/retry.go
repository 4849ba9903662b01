package runner

import (
	"math"
	"time"

	"github.com/goliatone/go-dispatch/policy"
)

// RetryStrategy encapsulates the delay between retries.
type RetryStrategy interface {
	// SleepDuration returns how long to wait before the next retry attempt.
	// attempt is 1-based: the attempt that just failed.
	SleepDuration(attempt int, err error) time.Duration
}

// NoDelayStrategy performs all retries immediately without waiting.
type NoDelayStrategy struct{}

func (NoDelayStrategy) SleepDuration(int, error) time.Duration {
	return 0
}

// ConstantDelayStrategy waits the same delay before every retry.
type ConstantDelayStrategy struct {
	Delay time.Duration
}

func (c ConstantDelayStrategy) SleepDuration(int, error) time.Duration {
	return c.Delay
}

// ExponentialBackoffStrategy grows the delay by Factor after each failed
// attempt, capped at Max.
//
//	WithRetryStrategy(ExponentialBackoffStrategy{
//	    Base:   2 * time.Second,
//	    Factor: 2,
//	    Max:    30 * time.Second,
//	})
type ExponentialBackoffStrategy struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
}

func (e ExponentialBackoffStrategy) SleepDuration(attempt int, _ error) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(e.Base) * math.Pow(e.Factor, float64(attempt-1))
	if e.Max > 0 && time.Duration(delay) > e.Max {
		return e.Max
	}
	return time.Duration(delay)
}

// StrategyFromPolicy derives the backoff shape an execution policy
// describes: base*2^(attempt-1) capped at max when exponential, a constant
// base delay capped at max otherwise.
func StrategyFromPolicy(p policy.ExecutionPolicy) RetryStrategy {
	p = p.Normalize()
	if p.ExponentialBackoff {
		return ExponentialBackoffStrategy{
			Base:   p.BaseDelay(),
			Factor: 2,
			Max:    p.MaxDelay(),
		}
	}
	delay := p.BaseDelay()
	if max := p.MaxDelay(); max > 0 && delay > max {
		delay = max
	}
	return ConstantDelayStrategy{Delay: delay}
}
