package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-dispatch"
)

// fakeEnqueuer records every descriptor it receives.
type fakeEnqueuer struct {
	mu    sync.Mutex
	descs []dispatch.Descriptor
	err   error
}

func (f *fakeEnqueuer) Enqueue(desc dispatch.Descriptor) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if desc.RunID == "" {
		desc.RunID = dispatch.NewRunID()
	}
	f.descs = append(f.descs, desc)
	return desc.RunID, nil
}

func (f *fakeEnqueuer) recorded() []dispatch.Descriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dispatch.Descriptor, len(f.descs))
	copy(out, f.descs)
	return out
}

func tmplDescriptor() dispatch.Descriptor {
	return dispatch.Descriptor{
		Operation: "export",
		RunID:     "template-id-should-be-ignored",
		Metadata:  map[string]string{"tenant": "acme"},
		Work: func(context.Context) (dispatch.Outcome, error) {
			return dispatch.Outcome{Success: true}, nil
		},
	}
}

func TestScheduleAfterEnqueuesWithFreshRunID(t *testing.T) {
	enq := &fakeEnqueuer{}
	s := NewScheduler(enq)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop(context.Background())

	handle, err := s.ScheduleAfter(0, tmplDescriptor())
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	select {
	case <-handle.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot schedule never completed")
	}

	if handle.Status() != ScheduleStatusCompleted {
		t.Fatalf("expected completed, got %s", handle.Status())
	}

	descs := enq.recorded()
	if len(descs) != 1 {
		t.Fatalf("expected one enqueue, got %d", len(descs))
	}
	if descs[0].RunID == "template-id-should-be-ignored" {
		t.Fatal("template run ID must be replaced per firing")
	}
	if descs[0].Operation != "export" {
		t.Fatalf("unexpected operation %q", descs[0].Operation)
	}
	if descs[0].Metadata["tenant"] != "acme" {
		t.Fatal("expected metadata copy on the fired descriptor")
	}

	runIDs := handle.RunIDs()
	if len(runIDs) != 1 || runIDs[0] != descs[0].RunID {
		t.Fatalf("expected handle to record the fired run, got %v", runIDs)
	}
	if handle.LastRunID() != descs[0].RunID {
		t.Fatalf("expected last run ID %s, got %s", descs[0].RunID, handle.LastRunID())
	}
}

func TestScheduleAfterSurfacesEnqueueFailure(t *testing.T) {
	enq := &fakeEnqueuer{err: errors.New("dispatcher stopped")}
	var handled error
	s := NewScheduler(enq, WithErrorHandler(func(err error) { handled = err }))

	handle, err := s.ScheduleAfter(0, tmplDescriptor())
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	select {
	case <-handle.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("failed schedule never terminated")
	}

	if handle.Status() != ScheduleStatusFailed {
		t.Fatalf("expected failed, got %s", handle.Status())
	}
	if handle.Err() == nil || handled == nil {
		t.Fatal("expected error on handle and error handler")
	}
}

func TestScheduleCronValidatesInput(t *testing.T) {
	s := NewScheduler(&fakeEnqueuer{})

	if _, err := s.ScheduleCron("", tmplDescriptor()); err == nil {
		t.Fatal("expected empty expression to be rejected")
	}
	if _, err := s.ScheduleCron("not a cron expr", tmplDescriptor()); err == nil {
		t.Fatal("expected malformed expression to be rejected")
	}
	if _, err := s.ScheduleCron("* * * * *", dispatch.Descriptor{Operation: "export"}); err == nil {
		t.Fatal("expected descriptor without work to be rejected")
	}
}

func TestScheduleCronFiresRepeatedly(t *testing.T) {
	enq := &fakeEnqueuer{}
	s := NewScheduler(enq, WithParser(SecondsParser))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop(context.Background())

	handle, err := s.ScheduleCron("* * * * * *", tmplDescriptor())
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for len(handle.RunIDs()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least two firings, got %d", len(handle.RunIDs()))
		case <-time.After(50 * time.Millisecond):
		}
	}

	if handle.Status() != ScheduleStatusIdle {
		t.Fatalf("expected idle between firings, got %s", handle.Status())
	}

	descs := enq.recorded()
	if descs[0].RunID == descs[1].RunID {
		t.Fatal("each firing must get its own run ID")
	}

	runIDs := handle.RunIDs()
	if len(runIDs) < 2 {
		t.Fatalf("expected handle to record every firing, got %v", runIDs)
	}
	if runIDs[0] != descs[0].RunID || runIDs[1] != descs[1].RunID {
		t.Fatalf("expected recorded runs %v to match fired descriptors", runIDs)
	}
	if handle.LastRunID() != runIDs[len(runIDs)-1] {
		t.Fatal("expected LastRunID to track the newest firing")
	}

	handle.Cancel()
	if handle.Status() != ScheduleStatusCanceled {
		t.Fatalf("expected canceled, got %s", handle.Status())
	}
}

func TestStopMarksHandlesStopped(t *testing.T) {
	s := NewScheduler(&fakeEnqueuer{})

	handle, err := s.ScheduleCron("* * * * *", tmplDescriptor())
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if handle.Status() != ScheduleStatusStopped {
		t.Fatalf("expected stopped, got %s", handle.Status())
	}
	select {
	case <-handle.Done():
	default:
		t.Fatal("expected done channel to close on stop")
	}
}

func TestScheduleAtCancelBeforeFiring(t *testing.T) {
	enq := &fakeEnqueuer{}
	s := NewScheduler(enq)

	handle, err := s.ScheduleAt(time.Now().Add(time.Hour), tmplDescriptor())
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	handle.Cancel()
	if handle.Status() != ScheduleStatusCanceled {
		t.Fatalf("expected canceled, got %s", handle.Status())
	}

	time.Sleep(20 * time.Millisecond)
	if len(enq.recorded()) != 0 {
		t.Fatal("cancelled one-shot must not fire")
	}
	if handle.LastRunID() != "" {
		t.Fatal("a schedule that never fired must record no runs")
	}
}
