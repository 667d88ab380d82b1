package jobs

import (
	"container/heap"
	"sync"
)

// entry is one heap slot: a job ready to run, ordered by
// (priority DESC, ready_at ASC, enqueued_at ASC).
type entry struct {
	spec       JobSpec
	readyAt    int64
	enqueuedAt int64
	index      int
}

type readyHeap []*entry

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.spec.Priority != b.spec.Priority {
		return a.spec.Priority > b.spec.Priority
	}
	if a.readyAt != b.readyAt {
		return a.readyAt < b.readyAt
	}
	return a.enqueuedAt < b.enqueuedAt
}

func (h readyHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *readyHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Queue is the scheduler's pending-work structure: a max-heap of jobs whose
// dependencies are all satisfied, plus bookkeeping for jobs still waiting on
// dependencies and the reverse dependents edges used to cascade completion
// and failure.
type Queue struct {
	mu sync.Mutex

	ready     readyHeap
	scheduled map[ID]*entry // id -> heap slot, for cancellation/removal

	waiting    map[ID]map[ID]struct{} // job id -> set of unresolved dependency ids
	dependents map[ID][]ID            // dependency id -> job ids waiting on it

	specs map[ID]JobSpec
}

// NewQueue builds an empty dependency-aware priority queue.
func NewQueue() *Queue {
	return &Queue{
		scheduled:  make(map[ID]*entry),
		waiting:    make(map[ID]map[ID]struct{}),
		dependents: make(map[ID][]ID),
		specs:      make(map[ID]JobSpec),
	}
}

// Submit adds spec to the queue. If any of its dependencies have not yet
// completed, it is parked in waiting; otherwise it becomes immediately
// ready. resolved reports which dependency ids have already finished
// successfully (so Submit can be called during boot-time reconciliation
// with a partially-resolved dependency set).
func (q *Queue) Submit(spec JobSpec, readyAtUnix, nowUnix int64, resolved func(ID) bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.specs[spec.ID] = spec

	unresolved := make(map[ID]struct{})
	for _, dep := range spec.Dependencies {
		if resolved == nil || !resolved(dep) {
			unresolved[dep] = struct{}{}
		}
	}

	if len(unresolved) == 0 {
		q.pushReadyLocked(spec, readyAtUnix, nowUnix)
		return
	}

	q.waiting[spec.ID] = unresolved
	for dep := range unresolved {
		q.dependents[dep] = append(q.dependents[dep], spec.ID)
	}
}

func (q *Queue) pushReadyLocked(spec JobSpec, readyAtUnix, nowUnix int64) {
	e := &entry{spec: spec, readyAt: readyAtUnix, enqueuedAt: nowUnix}
	heap.Push(&q.ready, e)
	q.scheduled[spec.ID] = e
}

// Pop removes and returns the highest-priority ready job whose readyAt has
// elapsed by nowUnix. Returns ok=false if nothing is eligible yet.
func (q *Queue) Pop(nowUnix int64) (JobSpec, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ready) == 0 || q.ready[0].readyAt > nowUnix {
		return JobSpec{}, false
	}
	e := heap.Pop(&q.ready).(*entry)
	delete(q.scheduled, e.spec.ID)
	return e.spec, true
}

// Requeue re-adds a job directly to the ready heap (used for retry backoff:
// the caller has already computed the new readyAt).
func (q *Queue) Requeue(spec JobSpec, readyAtUnix, nowUnix int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushReadyLocked(spec, readyAtUnix, nowUnix)
}

// Remove drops a job from the ready heap, if present (used by cancellation).
func (q *Queue) Remove(id ID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.scheduled[id]
	if !ok {
		return false
	}
	heap.Remove(&q.ready, e.index)
	delete(q.scheduled, id)
	return true
}

// Resolve marks dependency id as satisfied. Every waiting job whose last
// unresolved dependency was id transitions to ready and is returned so the
// caller can persist + broadcast its new state.
func (q *Queue) Resolve(id ID, readyAtUnix, nowUnix int64) []JobSpec {
	q.mu.Lock()
	defer q.mu.Unlock()

	waiters := q.dependents[id]
	delete(q.dependents, id)

	var unblocked []JobSpec
	for _, waiterID := range waiters {
		set, ok := q.waiting[waiterID]
		if !ok {
			continue
		}
		delete(set, id)
		if len(set) == 0 {
			delete(q.waiting, waiterID)
			spec := q.specs[waiterID]
			q.pushReadyLocked(spec, readyAtUnix, nowUnix)
			unblocked = append(unblocked, spec)
		}
	}
	return unblocked
}

// Cascade marks every job directly waiting on id as failed-by-cascade,
// returning their ids. It only walks one level: the scheduler fails each
// returned id in turn, and that in turn calls Cascade(id) again for its own
// dependents, so every job in a transitive chain is named by its immediate
// dependency rather than the chain's root.
func (q *Queue) Cascade(id ID) []ID {
	q.mu.Lock()
	defer q.mu.Unlock()

	waiters := q.dependents[id]
	delete(q.dependents, id)

	var out []ID
	for _, waiterID := range waiters {
		if _, ok := q.waiting[waiterID]; !ok {
			continue
		}
		delete(q.waiting, waiterID)
		out = append(out, waiterID)
	}
	return out
}

// Len reports the number of immediately-ready jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

// Drop removes id from the waiting set entirely, detaching it from every
// dependency it was still blocked on. Used when a still-waiting job is
// cancelled or fails outright, so a later Resolve of one of its
// dependencies can't resurrect it into the ready heap.
func (q *Queue) Drop(id ID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.waiting, id)
}

// SpecFor returns the spec submitted for id, if the queue still has a
// record of it (retained for the process lifetime once Submit is called).
func (q *Queue) SpecFor(id ID) (JobSpec, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	spec, ok := q.specs[id]
	return spec, ok
}
