package thumbs

import (
	"container/heap"
	"sync"
)

type heapEntry struct {
	spec  Spec
	order int64 // insertion sequence, breaks priority ties FIFO
	index int
}

type priorityHeap []*heapEntry

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].spec.Priority != h[j].spec.Priority {
		return h[i].spec.Priority > h[j].spec.Priority
	}
	return h[i].order < h[j].order
}
func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *priorityHeap) Push(x any) {
	e := x.(*heapEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler is a priority max-heap of pending thumbnail specs (0 lowest,
// 255 highest), consulted under a single mutex per spec §5's
// "thumb scheduler ... fully serialized" guidance.
type Scheduler struct {
	mu   sync.Mutex
	heap priorityHeap
	seq  int64
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler { return &Scheduler{} }

// Push enqueues a spec.
func (s *Scheduler) Push(spec Spec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	heap.Push(&s.heap, &heapEntry{spec: spec, order: s.seq})
}

// Pop removes and returns the highest-priority pending spec, or ok=false if
// the scheduler is empty.
func (s *Scheduler) Pop() (Spec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 {
		return Spec{}, false
	}
	return heap.Pop(&s.heap).(*heapEntry).spec, true
}

// Len reports the number of pending specs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}
