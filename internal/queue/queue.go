// Package queue provides the concurrency-safe priority queue that feeds
// the allocation engine. Lower priority number = higher urgency.
package queue

import (
	"container/heap"
	"sync"
)

type entry struct {
	priority int
	seq      uint64
	ticketID int64
}

// entryHeap orders by (priority, seq). The sequence number preserves FIFO
// order among equal priorities; a bare heap does not.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// PriorityQueue is a mutex-guarded min-heap of pending ticket ids.
type PriorityQueue struct {
	mu      sync.Mutex
	heap    entryHeap
	seq     uint64
	pending map[int64]struct{}
	wake    chan struct{}
}

func New() *PriorityQueue {
	return &PriorityQueue{
		pending: make(map[int64]struct{}),
		wake:    make(chan struct{}, 1),
	}
}

// Push inserts a ticket. The sequence number is assigned inside the
// critical section, so insertion order among equal priorities is stable.
func (q *PriorityQueue) Push(priority int, ticketID int64) {
	q.mu.Lock()
	q.seq++
	heap.Push(&q.heap, entry{priority: priority, seq: q.seq, ticketID: ticketID})
	q.pending[ticketID] = struct{}{}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes and returns the ticket with the smallest (priority, seq).
// An empty queue returns ok=false; that is the normal idle signal, not an
// error.
func (q *PriorityQueue) Pop() (int64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return 0, false
	}
	e := heap.Pop(&q.heap).(entry)
	delete(q.pending, e.ticketID)
	return e.ticketID, true
}

// Len returns a snapshot of the number of queued tickets.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Contains reports whether the ticket is currently queued. The sweeper uses
// this to avoid enqueueing duplicates.
func (q *PriorityQueue) Contains(ticketID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[ticketID]
	return ok
}

// Wake signals after each Push so an idle consumer can cut its poll delay
// short. The channel is buffered and lossy; it carries no data.
func (q *PriorityQueue) Wake() <-chan struct{} {
	return q.wake
}
