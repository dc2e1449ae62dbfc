// Package queue implements the time-ordered priority queue shared by both
// schedulers.
//
// The queue is a binary min-heap keyed by due time. Items with equal due
// times leave the queue in insertion order, which keeps runs reproducible.
//
// Thread-safety: Queue is NOT safe for concurrent use. The schedulers that
// own a queue are single-threaded by construction.
package queue

import (
	"container/heap"

	"github.com/roach88/chrona/internal/simtime"
)

// Item is a scheduled entry. It is owned by the queue while pending; Value may
// be read by the caller at any time.
type Item[T any] struct {
	Value T
	Due   simtime.Time

	seq   uint64
	index int // position in the heap, -1 once popped or removed
}

// Pending reports whether the item is still in a queue.
func (it *Item[T]) Pending() bool {
	return it != nil && it.index >= 0
}

// Seq returns the insertion sequence number used for tie-breaking.
func (it *Item[T]) Seq() uint64 {
	return it.seq
}

// Queue is a min-priority queue of items ordered by (Due, insertion order).
type Queue[T any] struct {
	h   itemHeap[T]
	seq uint64
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{h: make(itemHeap[T], 0, 16)}
}

// Push schedules value at due and returns the pending item.
func (q *Queue[T]) Push(value T, due simtime.Time) *Item[T] {
	it := &Item[T]{Value: value, Due: due, seq: q.seq}
	q.seq++
	heap.Push(&q.h, it)
	return it
}

// PopMin removes and returns the item with the smallest due time.
// Returns (nil, false) when the queue is empty.
func (q *Queue[T]) PopMin() (*Item[T], bool) {
	if len(q.h) == 0 {
		return nil, false
	}
	return heap.Pop(&q.h).(*Item[T]), true
}

// PeekMinTime returns the smallest pending due time without mutating the queue.
func (q *Queue[T]) PeekMinTime() (simtime.Time, bool) {
	if len(q.h) == 0 {
		return 0, false
	}
	return q.h[0].Due, true
}

// Remove cancels a pending item. It returns false if the item has already been
// popped or removed, or belongs to another queue.
func (q *Queue[T]) Remove(it *Item[T]) bool {
	if !it.Pending() || it.index >= len(q.h) || q.h[it.index] != it {
		return false
	}
	heap.Remove(&q.h, it.index)
	return true
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	return len(q.h)
}

// Items returns the pending items in the order they would be popped.
// The queue itself is not modified.
func (q *Queue[T]) Items() []*Item[T] {
	cp := make(itemHeap[T], len(q.h))
	copy(cp, q.h)
	// Work on shallow copies so the real items keep their heap indices.
	for i, it := range cp {
		dup := *it
		dup.index = i
		cp[i] = &dup
	}
	out := make([]*Item[T], 0, len(cp))
	for len(cp) > 0 {
		out = append(out, heap.Pop(&cp).(*Item[T]))
	}
	return out
}

// itemHeap implements heap.Interface. Less orders by due time, then by
// insertion sequence.
type itemHeap[T any] []*Item[T]

var _ heap.Interface = (*itemHeap[any])(nil)

func (h itemHeap[T]) Len() int { return len(h) }

func (h itemHeap[T]) Less(i, j int) bool {
	if h[i].Due != h[j].Due {
		return h[i].Due < h[j].Due
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap[T]) Push(x any) {
	it := x.(*Item[T])
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *itemHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // avoid memory leak
	it.index = -1
	*h = old[:n-1]
	return it
}
