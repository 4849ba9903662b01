// Package dispatcher implements the command scheduling engine: a bounded
// worker pool draining a priority queue, with per-scope serialization,
// policy-driven execution, and live status tracking.
package dispatcher

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-dispatch"
	"github.com/goliatone/go-dispatch/policy"
	"github.com/goliatone/go-dispatch/registry"
	"github.com/goliatone/go-dispatch/runner"
)

const (
	DefaultWorkers       = 4
	DefaultRetention     = 5 * time.Minute
	DefaultPruneInterval = time.Minute
)

// Dispatcher owns the queue, the worker pool, and the scope locks. Enqueue
// never blocks the caller; workers pull the highest-priority ready item,
// run it through the executor, and publish every transition to the registry
// and the notification sink.
type Dispatcher struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue   *commandQueue
	pending map[string]*queueItem
	running map[string]context.CancelFunc
	seq     uint64

	scopes   *ScopeLock
	policies *policy.Table
	registry *registry.Registry
	executor *runner.Executor
	sink     dispatch.NotificationSink
	logger   dispatch.Logger

	workers       int
	retention     time.Duration
	pruneInterval time.Duration

	started    bool
	stopped    bool
	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New applies the given options to a new dispatcher instance.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:         newCommandQueue(),
		pending:       make(map[string]*queueItem),
		running:       make(map[string]context.CancelFunc),
		scopes:        NewScopeLock(),
		policies:      policy.NewTable(policy.Default(), nil),
		registry:      registry.New(),
		executor:      runner.New(),
		sink:          dispatch.NopSink{},
		workers:       DefaultWorkers,
		retention:     DefaultRetention,
		pruneInterval: DefaultPruneInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	d.logger = dispatch.NormalizeLogger(d.logger)
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Registry exposes the status registry backing the active view.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// Start launches the worker pool and the pruning janitor.
func (d *Dispatcher) Start(_ context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return errors.New("dispatcher already started", errors.CategoryConflict).
			WithTextCode("DISPATCHER_ALREADY_STARTED")
	}
	d.started = true
	d.baseCtx, d.baseCancel = context.WithCancel(context.Background())
	d.mu.Unlock()

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	if d.pruneInterval > 0 {
		d.wg.Add(1)
		go d.janitor()
	}
	return nil
}

// Stop halts intake, cancels in-flight runs, and waits for the pool to
// drain. Safe to call more than once.
func (d *Dispatcher) Stop(_ context.Context) error {
	d.mu.Lock()
	if !d.started || d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()

	d.baseCancel()
	d.cond.Broadcast()
	d.wg.Wait()
	return nil
}

// Enqueue registers a Queued snapshot for the descriptor and returns its
// run ID immediately. The only synchronous failures are malformed
// descriptors, duplicate live run IDs, and a stopped dispatcher.
func (d *Dispatcher) Enqueue(desc dispatch.Descriptor) (string, error) {
	if err := desc.Validate(); err != nil {
		return "", err
	}
	if desc.RunID == "" {
		desc.RunID = dispatch.NewRunID()
	}

	pol := d.policies.Resolve(desc.Operation, desc.Metadata)
	now := time.Now().UTC()

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return "", errors.New("dispatcher is stopped", errors.CategoryConflict).
			WithTextCode(dispatch.ErrCodeNotRunning)
	}
	if snap, ok := d.registry.Get(desc.RunID); ok && !snap.Status.Terminal() {
		d.mu.Unlock()
		return "", errors.New("run ID already in flight", errors.CategoryConflict).
			WithTextCode(dispatch.ErrCodeDuplicateRun).
			WithMetadata(map[string]any{"run_id": desc.RunID})
	}

	d.seq++
	it := &queueItem{desc: desc, pol: pol, enqueuedAt: now, seq: d.seq, index: -1}

	d.registry.Upsert(dispatch.CommandSnapshot{
		RunID:       desc.RunID,
		Operation:   desc.Operation,
		Status:      dispatch.StatusQueued,
		MaxAttempts: pol.MaxAttempts,
		Priority:    desc.Priority,
		ThreadScope: desc.ThreadScope,
		EnqueuedAt:  now,
		Metadata:    desc.Metadata,
	})
	d.mu.Unlock()

	commandsEnqueued.Inc()

	// The run is registered but not yet poppable. Delivering Queued before
	// the push means no worker can emit Running, or any later status, ahead
	// of it, so push observers always see transitions in order.
	d.notify(desc.RunID, dispatch.StatusQueued, "")

	d.mu.Lock()
	if !d.stopped {
		heap.Push(d.queue, it)
		d.pending[desc.RunID] = it
	}
	d.mu.Unlock()
	d.cond.Broadcast()
	return desc.RunID, nil
}

// ActiveCommands returns the snapshots observers poll: everything
// non-terminal plus recently finished runs, ordered by priority descending
// then enqueue time descending.
func (d *Dispatcher) ActiveCommands() []dispatch.CommandSnapshot {
	return d.registry.Active(d.retention)
}

// Command returns the snapshot for a single run.
func (d *Dispatcher) Command(runID string) (dispatch.CommandSnapshot, bool) {
	return d.registry.Get(runID)
}

// Cancel requests best-effort cancellation. A queued run is cancelled on
// the spot without ever reaching Running; a running one has its context
// cancelled and terminates at the next suspension point. Returns false when
// the run is unknown or already terminal.
func (d *Dispatcher) Cancel(runID string) bool {
	d.mu.Lock()
	if it, ok := d.pending[runID]; ok {
		d.queue.remove(it)
		delete(d.pending, runID)
		now := time.Now().UTC()
		d.registry.Update(runID, func(s *dispatch.CommandSnapshot) {
			s.Status = dispatch.StatusCancelled
			s.FinishedAt = &now
		})
		d.mu.Unlock()

		commandsFinished.WithLabelValues(string(dispatch.StatusCancelled)).Inc()
		d.notify(runID, dispatch.StatusCancelled, "")
		return true
	}
	if cancel, ok := d.running[runID]; ok {
		d.mu.Unlock()
		cancel()
		return true
	}
	d.mu.Unlock()
	return false
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		it := d.nextReady()
		if it == nil {
			return
		}
		d.runItem(it)
	}
}

// nextReady blocks until a queued item with an unlocked scope is available,
// acquiring the scope atomically with the pick. Returns nil on shutdown.
func (d *Dispatcher) nextReady() *queueItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		if d.stopped {
			return nil
		}
		if it := d.queue.popReady(d.scopes.TryAcquire); it != nil {
			delete(d.pending, it.desc.RunID)
			it.ctx, it.cancel = context.WithCancel(d.baseCtx)
			d.running[it.desc.RunID] = it.cancel
			return it
		}
		d.cond.Wait()
	}
}

func (d *Dispatcher) runItem(it *queueItem) {
	runID := it.desc.RunID
	finished := false
	defer func() {
		if r := recover(); r != nil {
			// a fault in the run machinery must never take the worker down
			err := dispatch.PanicError(r)
			d.logger.Error("run %s faulted outside the executor: %v", runID, err)
			if !finished {
				d.finish(it, runner.Result{Status: dispatch.StatusFailed, Attempts: 1, Err: err})
			}
		}
	}()

	started := time.Now().UTC()
	d.registry.Update(runID, func(s *dispatch.CommandSnapshot) {
		s.Status = dispatch.StatusRunning
		s.Attempt = 1
		s.StartedAt = &started
	})
	d.notify(runID, dispatch.StatusRunning, "")
	activeCommands.Inc()

	hooks := runner.Hooks{
		OnAttempt: func(attempt int) {
			commandAttempts.Inc()
			if attempt > 1 {
				d.registry.Update(runID, func(s *dispatch.CommandSnapshot) {
					s.Status = dispatch.StatusRunning
					s.Attempt = attempt
				})
				d.notify(runID, dispatch.StatusRunning, "")
			}
		},
		OnRetry: func(attempt int, delay time.Duration, err error) {
			commandRetries.Inc()
			msg := ""
			if err != nil {
				msg = err.Error()
			}
			d.registry.Update(runID, func(s *dispatch.CommandSnapshot) {
				s.Status = dispatch.StatusRetrying
				s.ErrorMessage = msg
			})
			d.notify(runID, dispatch.StatusRetrying, msg)
		},
		OnProgress: func(step, maxStep int) {
			d.registry.Update(runID, func(s *dispatch.CommandSnapshot) {
				s.CurrentStep = step
				s.MaxStep = maxStep
			})
		},
	}

	res := d.executor.Run(it.ctx, it.desc.Work, it.pol, hooks)
	finished = true
	d.finish(it, res)
}

// finish publishes the terminal snapshot, releases the scope, and wakes
// workers that may have been skipping items behind it.
func (d *Dispatcher) finish(it *queueItem, res runner.Result) {
	runID := it.desc.RunID
	if it.cancel != nil {
		it.cancel()
	}

	d.mu.Lock()
	delete(d.running, runID)
	d.mu.Unlock()
	d.scopes.Release(it.desc.ThreadScope)

	message := res.Message
	if message == "" && res.Err != nil {
		message = res.Err.Error()
	}

	now := time.Now().UTC()
	var elapsed time.Duration
	d.registry.Update(runID, func(s *dispatch.CommandSnapshot) {
		s.Status = res.Status
		if res.Attempts > 0 {
			s.Attempt = res.Attempts
		}
		s.FinishedAt = &now
		if res.Err != nil {
			s.ErrorMessage = res.Err.Error()
		} else {
			s.ErrorMessage = ""
		}
		if s.StartedAt != nil {
			elapsed = now.Sub(*s.StartedAt)
		}
	})

	activeCommands.Dec()
	commandsFinished.WithLabelValues(string(res.Status)).Inc()
	commandDuration.Observe(elapsed.Seconds())

	if res.Err != nil {
		d.logger.Info("run %s finished %s after %d attempt(s): %v",
			runID, res.Status, res.Attempts, res.Err)
	} else {
		d.logger.Debug("run %s finished %s after %d attempt(s)",
			runID, res.Status, res.Attempts)
	}

	d.notify(runID, res.Status, message)
	d.cond.Broadcast()
}

// notify forwards a transition to the sink; sink panics are contained so a
// broken observer can never affect a run's outcome.
func (d *Dispatcher) notify(runID string, status dispatch.Status, message string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification sink panicked for run %s: %v", runID, r)
		}
	}()
	d.sink.Notify(runID, status, message)
}

func (d *Dispatcher) janitor() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.baseCtx.Done():
			return
		case <-ticker.C:
			if n := d.registry.Prune(d.retention); n > 0 {
				d.logger.Debug("pruned %d finished commands", n)
			}
		}
	}
}
