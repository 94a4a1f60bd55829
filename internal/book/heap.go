package book

import (
	"container/heap"
	"time"
)

// bookEntry is the priority-structure's view of a resting order: just
// enough to order it and to recognize a stale copy later. The authoritative
// quantity and state live only in Book.activeOrders, enforcing a
// stale-copy discipline — so a heap entry is never mutated in place, only
// popped, checked against the authoritative map, and either discarded or
// matched against.
type bookEntry struct {
	OrderID     int64
	Price       float64
	ArrivalTime time.Time
}

// bidHeap is a max-heap by price, oldest-first at equal price.
type bidHeap []bookEntry

func (h bidHeap) Len() int { return len(h) }
func (h bidHeap) Less(i, j int) bool {
	if h[i].Price != h[j].Price {
		return h[i].Price > h[j].Price
	}
	return h[i].ArrivalTime.Before(h[j].ArrivalTime)
}
func (h bidHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *bidHeap) Push(x any)   { *h = append(*h, x.(bookEntry)) }
func (h *bidHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// askHeap is a min-heap by price, oldest-first at equal price.
type askHeap []bookEntry

func (h askHeap) Len() int { return len(h) }
func (h askHeap) Less(i, j int) bool {
	if h[i].Price != h[j].Price {
		return h[i].Price < h[j].Price
	}
	return h[i].ArrivalTime.Before(h[j].ArrivalTime)
}
func (h askHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *askHeap) Push(x any)   { *h = append(*h, x.(bookEntry)) }
func (h *askHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

var (
	_ heap.Interface = (*bidHeap)(nil)
	_ heap.Interface = (*askHeap)(nil)
)
