// Package cron submits commands to the dispatcher on a schedule: recurring
// maintenance operations, periodic generation steps, deferred one-shots.
// Every firing enqueues a fresh run of a descriptor template.
package cron

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	rcron "github.com/robfig/cron/v3"

	"github.com/goliatone/go-dispatch"
)

// Enqueuer is the slice of the dispatcher the scheduler needs.
type Enqueuer interface {
	Enqueue(desc dispatch.Descriptor) (string, error)
}

// Scheduler wraps cron functionality around an Enqueuer.
type Scheduler struct {
	mu       sync.Mutex
	cron     *rcron.Cron
	enq      Enqueuer
	location *time.Location
	parser   Parser

	logger       dispatch.Logger
	errorHandler func(error)

	nextHandleID int64
	handles      map[int64]*scheduleHandle
}

// NewScheduler creates a scheduler that submits work to enq.
func NewScheduler(enq Enqueuer, opts ...Option) *Scheduler {
	s := &Scheduler{
		enq:      enq,
		location: time.Local,
		parser:   DefaultParser,
		handles:  make(map[int64]*scheduleHandle),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = dispatch.NormalizeLogger(s.logger)
	if s.errorHandler == nil {
		s.errorHandler = func(err error) {
			s.logger.Error("scheduled enqueue failed: %v", err)
		}
	}
	s.cron = rcron.New(s.build()...)
	return s
}

// ScheduleCron enqueues a fresh run of the descriptor template on each
// firing of the cron expression. The template's RunID is ignored; every
// firing generates its own.
func (s *Scheduler) ScheduleCron(expression string, tmpl dispatch.Descriptor) (Handle, error) {
	if expression == "" {
		return nil, errors.New("cron expression cannot be empty", errors.CategoryBadInput).
			WithTextCode("CRON_EXPRESSION_EMPTY")
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	handle := s.newHandle()
	job := rcron.FuncJob(func() {
		if isTerminalStatus(handle.Status()) {
			return
		}
		runID, err := s.fire(tmpl)
		if err != nil {
			handle.setStatus(ScheduleStatusFailed, err)
			s.errorHandler(err)
			return
		}
		handle.recordRun(runID, ScheduleStatusIdle)
	})

	entryID, err := s.cron.AddJob(expression, job)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to add scheduled command").
			WithTextCode("CRON_SCHEDULE_FAILED")
	}
	handle.entryID = int(entryID)
	s.storeHandle(handle)
	return handle, nil
}

// ScheduleAfter enqueues one run of the descriptor after delay.
func (s *Scheduler) ScheduleAfter(delay time.Duration, tmpl dispatch.Descriptor) (Handle, error) {
	if delay < 0 {
		delay = 0
	}
	return s.ScheduleAt(time.Now().Add(delay), tmpl)
}

// ScheduleAt enqueues one run of the descriptor at a specific time.
func (s *Scheduler) ScheduleAt(at time.Time, tmpl dispatch.Descriptor) (Handle, error) {
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	handle := s.newHandle()
	s.storeHandle(handle)

	go func() {
		wait := time.Until(at)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-handle.Done():
			return
		}

		if isTerminalStatus(handle.Status()) {
			return
		}
		runID, err := s.fire(tmpl)
		if err != nil {
			handle.setTerminal(ScheduleStatusFailed, err)
			s.errorHandler(err)
			s.removeStoredHandle(handle.id)
			return
		}
		handle.recordRun(runID, ScheduleStatusCompleted)
		handle.setTerminal(ScheduleStatusCompleted, nil)
		s.removeStoredHandle(handle.id)
	}()

	return handle, nil
}

// fire stamps a fresh run ID on a copy of the template and submits it.
func (s *Scheduler) fire(tmpl dispatch.Descriptor) (string, error) {
	desc := tmpl
	desc.RunID = ""
	if len(tmpl.Metadata) > 0 {
		desc.Metadata = make(map[string]string, len(tmpl.Metadata))
		for k, v := range tmpl.Metadata {
			desc.Metadata[k] = v
		}
	}
	runID, err := s.enq.Enqueue(desc)
	if err != nil {
		return "", err
	}
	s.logger.Debug("scheduled firing enqueued run %s for %s", runID, desc.Operation)
	return runID, nil
}

// Start begins executing scheduled firings.
func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	return nil
}

// Stop stops the cron runner and marks active handles as stopped.
func (s *Scheduler) Stop(_ context.Context) error {
	s.cron.Stop()

	var handles []*scheduleHandle
	s.mu.Lock()
	for _, handle := range s.handles {
		handles = append(handles, handle)
	}
	s.handles = make(map[int64]*scheduleHandle)
	s.mu.Unlock()

	for _, handle := range handles {
		if handle == nil {
			continue
		}
		if handle.entryID > 0 {
			s.cron.Remove(rcron.EntryID(handle.entryID))
		}
		if isTerminalStatus(handle.Status()) {
			continue
		}
		handle.setTerminal(ScheduleStatusStopped, nil)
	}
	return nil
}

func (s *Scheduler) removeHandle(id int64) {
	handle := s.removeStoredHandle(id)
	if handle == nil {
		return
	}
	if handle.entryID > 0 {
		s.cron.Remove(rcron.EntryID(handle.entryID))
	}
}

func (s *Scheduler) removeStoredHandle(id int64) *scheduleHandle {
	if s == nil || id == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := s.handles[id]
	delete(s.handles, id)
	return handle
}

func (s *Scheduler) storeHandle(handle *scheduleHandle) {
	if handle == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[handle.id] = handle
}

func (s *Scheduler) newHandle() *scheduleHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandleID++
	return &scheduleHandle{
		scheduler: s,
		id:        s.nextHandleID,
		status:    ScheduleStatusScheduled,
		done:      make(chan struct{}),
	}
}

// build converts implementation-agnostic options to rcron options.
func (s *Scheduler) build() []rcron.Option {
	opts := make([]rcron.Option, 0)

	if s.location != nil {
		opts = append(opts, rcron.WithLocation(s.location))
	}

	switch s.parser {
	case StandardParser:
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	case SecondsParser:
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Second|rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	}

	opts = append(opts, rcron.WithChain(
		rcron.Recover(rcron.DiscardLogger),
	))

	return opts
}
