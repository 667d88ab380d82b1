package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lunio/internal/logger"
)

// Progress reports incremental (done, total) progress from a running job.
type Progress func(done, total uint64)

// Handler executes one job kind's work. It must poll cancel.IsCancelled at
// reasonable intervals and return promptly once observed. Handlers are
// supplied by the daemon's wiring layer (fsops/index/thumbs adapters); the
// scheduler itself has no knowledge of what a "copy" or "thumbnail" job
// actually does.
type Handler func(ctx context.Context, spec JobSpec, progress Progress, cancel *CancelRegistry) error

// Scheduler is the dispatch loop: it pulls ready jobs off the Queue, runs
// them through a bounded worker pool, persists every state transition, and
// retries failures after the fixed delay of each job's RetryPolicy, up to
// its MaxRetries.
type Scheduler struct {
	log      *logger.Logger
	queue    *Queue
	store    *Store
	cancel   *CancelRegistry
	handlers map[KindTag]Handler

	pollInterval time.Duration
	workers      int

	mu     sync.Mutex
	states map[ID]*State

	events chan Event

	nowUnix func() int64
}

// New builds a Scheduler around an empty Queue. Call Reconcile before Run
// to resume any jobs persisted by a prior process.
func New(log *logger.Logger, store *Store, workers int, pollInterval time.Duration, nowUnix func() int64) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{
		log:          log,
		queue:        NewQueue(),
		store:        store,
		cancel:       NewCancelRegistry(),
		handlers:     make(map[KindTag]Handler),
		pollInterval: pollInterval,
		workers:      workers,
		states:       make(map[ID]*State),
		events:       make(chan Event, 256),
		nowUnix:      nowUnix,
	}
}

// RegisterHandler binds a JobKind tag to its executor.
func (s *Scheduler) RegisterHandler(tag KindTag, h Handler) {
	s.handlers[tag] = h
}

// Events returns the channel every lifecycle transition is published on.
// The router drains this and republishes as wire.Event to Jobs subscribers.
func (s *Scheduler) Events() <-chan Event { return s.events }

// Cancellable exposes the scheduler's own CancelRegistry so other
// subsystems (the thumbnail service) can share one cooperative-cancellation
// flag set with fs-op job handlers.
func (s *Scheduler) Cancellable() *CancelRegistry { return s.cancel }

func (s *Scheduler) publish(ev Event) {
	ev.AtUnix = s.nowUnix()
	select {
	case s.events <- ev:
	default:
		s.log.Warn("jobs: event channel full, dropping %s for %s", ev.Tag, ev.JobID)
	}
}

// Cancel requests cancellation of job id: if it is still waiting/ready it is
// dequeued and marked Cancelled immediately; if it is running, the
// cooperative flag is set and the handler is expected to observe it.
func (s *Scheduler) Cancel(id ID) {
	s.cancel.Cancel(id)

	if s.queue.Remove(id) {
		s.finish(id, StatusCancelled, "")
		return
	}
	s.mu.Lock()
	st, ok := s.states[id]
	s.mu.Unlock()
	if ok && st.Status == StatusWaitingDependencies {
		s.finish(id, StatusCancelled, "")
	}
}

// Submit enqueues a brand-new job (Priority/Retry/Dependencies all come
// from spec) and persists its initial Queued/WaitingDependencies state.
func (s *Scheduler) Submit(spec JobSpec) {
	now := s.nowUnix()
	st := &State{CreatedAtUnix: now, ReadyAtUnix: now}

	hasDeps := len(spec.Dependencies) > 0
	if hasDeps {
		st.Status = StatusWaitingDependencies
		st.Unresolved = append([]ID(nil), spec.Dependencies...)
	} else {
		st.Status = StatusQueued
	}

	s.mu.Lock()
	s.states[spec.ID] = st
	s.mu.Unlock()

	s.store.Save(spec, *st, now)
	s.queue.Submit(spec, now, now, s.isResolved)

	s.publish(Event{Tag: EventQueued, JobID: spec.ID})
}

func (s *Scheduler) isResolved(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	return ok && st.Status == StatusCompleted
}

// Reconcile loads every persisted job at boot. Running jobs could not have
// survived a crash mid-flight, so they are reset to Queued; Queued and
// WaitingDependencies jobs are resubmitted against the freshly-built
// dependency graph; terminal jobs are kept in memory for status queries but
// not resubmitted.
func (s *Scheduler) Reconcile() error {
	recs, corrupt, err := s.store.LoadAll()
	if err != nil {
		return err
	}
	for _, path := range corrupt {
		s.log.Warn("jobs: skipping unreadable job record %s", path)
	}

	now := s.nowUnix()

	s.mu.Lock()
	for _, rec := range recs {
		st := rec.State
		if st.Status == StatusRunning {
			st.resetForRetry(now)
		}
		s.states[rec.Spec.ID] = &st
	}
	s.mu.Unlock()

	for _, rec := range recs {
		s.mu.Lock()
		st := *s.states[rec.Spec.ID]
		s.mu.Unlock()

		switch st.Status {
		case StatusQueued, StatusWaitingDependencies:
			s.queue.Submit(rec.Spec, st.ReadyAtUnix, now, s.isResolved)
		}
	}
	return nil
}

// Run drives the dispatch loop until ctx is cancelled: poll for ready jobs
// every pollInterval, dispatch up to `workers` concurrently.
func (s *Scheduler) Run(ctx context.Context) {
	sem := make(chan struct{}, s.workers)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				spec, ok := s.queue.Pop(s.nowUnix())
				if !ok {
					break
				}
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					return
				}
				go func(spec JobSpec) {
					defer func() { <-sem }()
					s.execute(ctx, spec)
				}(spec)
			}
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, spec JobSpec) {
	now := s.nowUnix()
	s.mu.Lock()
	st, ok := s.states[spec.ID]
	if !ok {
		st = &State{CreatedAtUnix: now}
		s.states[spec.ID] = st
	}
	st.Status = StatusRunning
	st.StartedAtUnix = &now
	st.Attempts++
	attempt := st.Attempts
	s.mu.Unlock()

	s.store.Save(spec, *st, now)
	s.publish(Event{Tag: EventStarted, JobID: spec.ID, Attempt: attempt})

	handler, ok := s.handlers[spec.Kind.Tag]
	if !ok {
		s.fail(spec, fmt.Sprintf("no handler registered for kind %q", spec.Kind.Tag))
		return
	}

	progress := func(done, total uint64) {
		nowP := s.nowUnix()
		s.mu.Lock()
		st.Done, st.Total = done, total
		st.LastProgressAt = &nowP
		s.mu.Unlock()
		s.publish(Event{Tag: EventProgress, JobID: spec.ID, Done: done, Total: total})
	}

	err := handler(ctx, spec, progress, s.cancel)

	if s.cancel.IsCancelled(spec.ID.String()) {
		s.finish(spec.ID, StatusCancelled, "")
		s.cancel.Forget(spec.ID)
		return
	}

	if err == nil {
		s.finish(spec.ID, StatusCompleted, "")
		return
	}

	s.retryOrFail(spec, attempt, err.Error())
}

func (s *Scheduler) retryOrFail(spec JobSpec, attempt uint8, reason string) {
	if attempt <= spec.Retry.MaxRetries {
		delay := spec.Retry.DelayMS
		readyAt := s.nowUnix() + delay/1000
		now := s.nowUnix()

		s.mu.Lock()
		st := s.states[spec.ID]
		st.Status = StatusQueued
		st.Reason = reason
		st.ReadyAtUnix = readyAt
		s.mu.Unlock()

		s.store.Save(spec, *st, now)
		s.publish(Event{Tag: EventRetry, JobID: spec.ID, Attempt: attempt + 1, DelayMS: delay, Reason: reason})
		s.queue.Requeue(spec, readyAt, now)
		return
	}

	s.fail(spec, reason)
}

// fail marks spec permanently failed. finish itself cascades the failure to
// every job still waiting on spec, so no additional cascade happens here.
func (s *Scheduler) fail(spec JobSpec, reason string) {
	s.finish(spec.ID, StatusFailed, reason)
}

func (s *Scheduler) finish(id ID, status Status, reason string) {
	now := s.nowUnix()

	s.mu.Lock()
	st, ok := s.states[id]
	if !ok {
		st = &State{CreatedAtUnix: now}
		s.states[id] = st
	}
	st.Status = status
	st.Reason = reason
	st.FinishedAtUnix = &now
	spec, hasSpec := s.specFor(id)
	s.mu.Unlock()

	if hasSpec {
		s.store.Save(spec, *st, now)
	}

	tag := EventCompleted
	switch status {
	case StatusFailed:
		tag = EventFailed
	case StatusCancelled:
		tag = EventCancelled
	}
	s.publish(Event{Tag: tag, JobID: id, Reason: reason})

	if status == StatusFailed || status == StatusCancelled {
		s.queue.Drop(id)
	}

	if status == StatusCompleted {
		for _, unblocked := range s.queue.Resolve(id, now, now) {
			s.mu.Lock()
			if ws, ok := s.states[unblocked.ID]; ok {
				ws.Status = StatusQueued
			}
			s.mu.Unlock()
			s.publish(Event{Tag: EventQueued, JobID: unblocked.ID})
		}
	} else if status == StatusFailed || status == StatusCancelled {
		for _, dependentID := range s.queue.Cascade(id) {
			s.finish(dependentID, StatusFailed, "dependency "+id.String()+" failed/cancelled")
		}
	}
}

// specFor is a best-effort lookup used only for persistence bookkeeping; the
// Queue retains every submitted spec for the lifetime of the process.
func (s *Scheduler) specFor(id ID) (JobSpec, bool) {
	return s.queue.SpecFor(id)
}

// State returns a snapshot of a job's current lifecycle state.
func (s *Scheduler) State(id ID) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// Summary pairs a job's immutable spec with its current lifecycle state,
// for building the ListJobs reply from the scheduler's in-memory snapshot.
type Summary struct {
	Spec  JobSpec
	State State
}

// ListAll returns a Summary for every job the scheduler currently knows
// about, in no particular order.
func (s *Scheduler) ListAll() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Summary, 0, len(s.states))
	for id, st := range s.states {
		spec, ok := s.queue.SpecFor(id)
		if !ok {
			spec = JobSpec{ID: id}
		}
		out = append(out, Summary{Spec: spec, State: *st})
	}
	return out
}
