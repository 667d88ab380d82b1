package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lunio/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{
		Level:           logger.ERROR,
		LogDir:          t.TempDir(),
		FileName:        "jobs.log",
		AsyncBufferSize: 16,
		BatchSize:       1,
		FlushInterval:   10,
	})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

type fakeClock struct{ v int64 }

func (c *fakeClock) now() int64 { return atomic.LoadInt64(&c.v) }
func (c *fakeClock) advance(d int64) { atomic.AddInt64(&c.v, d) }

func newTestScheduler(t *testing.T) (*Scheduler, *fakeClock) {
	t.Helper()
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	clock := &fakeClock{v: 1000}
	s := New(testLogger(t), store, 4, time.Millisecond, clock.now)
	return s, clock
}

func waitForStatus(t *testing.T, s *Scheduler, id ID, want Status) State {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for job %s to reach %s", id, want)
		default:
		}
		st, ok := s.State(id)
		if ok && st.Status == want {
			return st
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSchedulerRunsCopyJobToCompletion(t *testing.T) {
	s, _ := newTestScheduler(t)
	var ran int32
	s.RegisterHandler(KindCopy, func(ctx context.Context, spec JobSpec, progress Progress, cancel *CancelRegistry) error {
		atomic.AddInt32(&ran, 1)
		progress(1, 1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	id := NewID()
	s.Submit(JobSpec{ID: id, Kind: JobKind{Tag: KindCopy, From: "a", To: "b"}, Priority: PriorityNormal})

	waitForStatus(t, s, id, StatusCompleted)
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("expected handler to run once, ran %d times", ran)
	}
}

func TestSchedulerRetriesThenSucceeds(t *testing.T) {
	s, _ := newTestScheduler(t)
	var attempts int32
	s.RegisterHandler(KindCopy, func(ctx context.Context, spec JobSpec, progress Progress, cancel *CancelRegistry) error {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			return errors.New("transient failure")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	id := NewID()
	s.Submit(JobSpec{
		ID:       id,
		Kind:     JobKind{Tag: KindCopy, From: "a", To: "b"},
		Priority: PriorityNormal,
		Retry:    RetryPolicy{MaxRetries: 5, DelayMS: 0},
	})

	waitForStatus(t, s, id, StatusCompleted)
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestSchedulerExhaustsRetriesAndFails(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.RegisterHandler(KindCopy, func(ctx context.Context, spec JobSpec, progress Progress, cancel *CancelRegistry) error {
		return errors.New("permanent failure")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	id := NewID()
	s.Submit(JobSpec{
		ID:       id,
		Kind:     JobKind{Tag: KindCopy, From: "a", To: "b"},
		Priority: PriorityNormal,
		Retry:    RetryPolicy{MaxRetries: 2, DelayMS: 0},
	})

	st := waitForStatus(t, s, id, StatusFailed)
	if st.Reason == "" {
		t.Fatalf("expected failure reason to be recorded")
	}
}

func TestSchedulerDependencyCascade(t *testing.T) {
	s, _ := newTestScheduler(t)
	var ran sync.Map
	s.RegisterHandler(KindCopy, func(ctx context.Context, spec JobSpec, progress Progress, cancel *CancelRegistry) error {
		ran.Store(spec.ID, true)
		if spec.Kind.From == "fails" {
			return errors.New("boom")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// A <- B <- C: A fails, B is cascaded off A, C is cascaded off B. Each
	// dependent's reason must name its own immediate dependency, not the
	// chain's root.
	a := NewID()
	b := NewID()
	c := NewID()

	s.Submit(JobSpec{ID: c, Kind: JobKind{Tag: KindCopy, From: "c", To: "out"}, Dependencies: []ID{b}})
	s.Submit(JobSpec{ID: b, Kind: JobKind{Tag: KindCopy, From: "b", To: "out"}, Dependencies: []ID{a}})
	s.Submit(JobSpec{ID: a, Kind: JobKind{Tag: KindCopy, From: "fails", To: "out"}, Retry: RetryPolicy{MaxRetries: 0}})

	waitForStatus(t, s, a, StatusFailed)
	stB := waitForStatus(t, s, b, StatusFailed)
	stC := waitForStatus(t, s, c, StatusFailed)

	if _, ranB := ran.Load(b); ranB {
		t.Fatalf("B should never have run once its dependency failed")
	}
	if _, ranC := ran.Load(c); ranC {
		t.Fatalf("C should never have run once its dependency failed")
	}

	wantB := "dependency " + a.String() + " failed/cancelled"
	if stB.Reason != wantB {
		t.Fatalf("B reason = %q, want %q", stB.Reason, wantB)
	}
	wantC := "dependency " + b.String() + " failed/cancelled"
	if stC.Reason != wantC {
		t.Fatalf("C reason = %q, want %q", stC.Reason, wantC)
	}
}

func TestSchedulerDependencyUnblocksOnCompletion(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.RegisterHandler(KindCopy, func(ctx context.Context, spec JobSpec, progress Progress, cancel *CancelRegistry) error {
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	parent := NewID()
	child := NewID()

	s.Submit(JobSpec{ID: child, Kind: JobKind{Tag: KindCopy, From: "child", To: "b"}, Dependencies: []ID{parent}})
	if st, ok := s.State(child); !ok || st.Status != StatusWaitingDependencies {
		t.Fatalf("expected child to start WaitingDependencies, got %+v", st)
	}

	s.Submit(JobSpec{ID: parent, Kind: JobKind{Tag: KindCopy, From: "parent", To: "b"}})

	waitForStatus(t, s, parent, StatusCompleted)
	waitForStatus(t, s, child, StatusCompleted)
}

func TestSchedulerCancelDequeuesWaitingJob(t *testing.T) {
	s, _ := newTestScheduler(t)
	id := NewID()
	blocker := NewID()
	s.Submit(JobSpec{ID: id, Kind: JobKind{Tag: KindCopy}, Dependencies: []ID{blocker}})

	s.Cancel(id)
	st, ok := s.State(id)
	if !ok || st.Status != StatusCancelled {
		t.Fatalf("expected job cancelled while waiting, got %+v ok=%v", st, ok)
	}
}

func TestReconcileResubmitsQueuedAndResetsRunning(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(dir)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	queuedID, runningID, doneID := NewID(), NewID(), NewID()
	now := int64(1000)
	store.Save(JobSpec{ID: queuedID, Kind: JobKind{Tag: KindCopy}}, State{Status: StatusQueued, ReadyAtUnix: now}, now)
	store.Save(JobSpec{ID: runningID, Kind: JobKind{Tag: KindCopy}}, State{Status: StatusRunning, StartedAtUnix: &now}, now)
	store.Save(JobSpec{ID: doneID, Kind: JobKind{Tag: KindCopy}}, State{Status: StatusCompleted}, now)

	clock := &fakeClock{v: now}
	s := New(testLogger(t), store, 2, time.Millisecond, clock.now)
	if err := s.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if st, _ := s.State(queuedID); st.Status != StatusQueued {
		t.Fatalf("expected queued job to remain Queued, got %s", st.Status)
	}
	if st, _ := s.State(runningID); st.Status != StatusQueued {
		t.Fatalf("expected running job reset to Queued after crash, got %s", st.Status)
	}
	if st, _ := s.State(doneID); st.Status != StatusCompleted {
		t.Fatalf("expected completed job to remain terminal, got %s", st.Status)
	}
	if s.queue.Len() != 2 {
		t.Fatalf("expected 2 ready jobs after reconcile, got %d", s.queue.Len())
	}
}
