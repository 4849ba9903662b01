package runner

import (
	"testing"
	"time"

	"github.com/goliatone/go-dispatch/policy"
)

func TestExponentialBackoffDoublesAndCaps(t *testing.T) {
	strategy := ExponentialBackoffStrategy{
		Base:   2 * time.Second,
		Factor: 2,
		Max:    30 * time.Second,
	}

	expected := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, want := range expected {
		if got := strategy.SleepDuration(i+1, nil); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, want, got)
		}
	}
}

func TestExponentialBackoffClampsAttempt(t *testing.T) {
	strategy := ExponentialBackoffStrategy{Base: time.Second, Factor: 2, Max: time.Minute}
	if got := strategy.SleepDuration(0, nil); got != time.Second {
		t.Fatalf("expected attempt floor of 1, got %s", got)
	}
}

func TestConstantAndNoDelayStrategies(t *testing.T) {
	constant := ConstantDelayStrategy{Delay: 3 * time.Second}
	if got := constant.SleepDuration(5, nil); got != 3*time.Second {
		t.Fatalf("expected constant 3s, got %s", got)
	}
	if got := (NoDelayStrategy{}).SleepDuration(2, nil); got != 0 {
		t.Fatalf("expected zero delay, got %s", got)
	}
}

func TestStrategyFromPolicyExponential(t *testing.T) {
	p := policy.ExecutionPolicy{
		RetryDelayBaseSeconds: 2,
		RetryDelayMaxSeconds:  30,
		ExponentialBackoff:    true,
	}
	strategy := StrategyFromPolicy(p)
	if got := strategy.SleepDuration(3, nil); got != 8*time.Second {
		t.Fatalf("expected 8s on third failure, got %s", got)
	}
}

func TestStrategyFromPolicyConstantCapped(t *testing.T) {
	p := policy.ExecutionPolicy{
		RetryDelayBaseSeconds: 10,
		RetryDelayMaxSeconds:  4,
	}
	strategy := StrategyFromPolicy(p)
	constant, ok := strategy.(ConstantDelayStrategy)
	if !ok {
		t.Fatalf("expected constant strategy, got %T", strategy)
	}
	if constant.Delay != 10*time.Second {
		t.Fatalf("expected normalized cap to lift to base, got %s", constant.Delay)
	}
}
