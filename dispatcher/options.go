//go:generate options-setters -input ./options.go -output ./options_setters.go
package dispatcher

import (
	"time"

	"github.com/goliatone/go-dispatch"
	"github.com/goliatone/go-dispatch/policy"
	"github.com/goliatone/go-dispatch/registry"
	"github.com/goliatone/go-dispatch/runner"
)

// Option defines the functional option signature.
type Option func(*Dispatcher)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithPolicies sets the policy resolution table.
func WithPolicies(t *policy.Table) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.policies = t
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l dispatch.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithSink sets the notification sink informed of status transitions.
func WithSink(s dispatch.NotificationSink) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.sink = s
		}
	}
}

// WithRetention controls how long terminal snapshots stay visible in the
// active view before the janitor prunes them.
func WithRetention(retention time.Duration) Option {
	return func(d *Dispatcher) {
		if retention > 0 {
			d.retention = retention
		}
	}
}

// WithPruneInterval sets how often the janitor sweeps terminal snapshots.
// Zero disables the janitor.
func WithPruneInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		d.pruneInterval = interval
	}
}

// WithExecutor replaces the executor, mainly to inject test seams such as
// runner.WithSleepFunc.
func WithExecutor(e *runner.Executor) Option {
	return func(d *Dispatcher) {
		if e != nil {
			d.executor = e
		}
	}
}

// WithRegistry shares a status registry owned by the caller.
func WithRegistry(r *registry.Registry) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.registry = r
		}
	}
}
