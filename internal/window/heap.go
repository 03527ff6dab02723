package window

import (
	"container/heap"
	"sync"
)

// Heap is the Source for loops whose operator pushes: items arrive in any
// order during the apply phase and still come back out least-first. Pushes
// are concurrent; Poll and Min are called by the round driver between
// phases but share the same mutex for safety.
type Heap[T any] struct {
	mu       sync.Mutex
	h        itemHeap[T]
	initSize int
}

// NewHeap returns an empty heap source ordered by less.
func NewHeap[T any](less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{h: itemHeap[T]{less: less}}
}

func (p *Heap[T]) InitFill(items []T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.h.items = make([]T, len(items))
	copy(p.h.items, items)
	heap.Init(&p.h)
	p.initSize = len(items)
}

func (p *Heap[T]) InitSize() int { return p.initSize }

func (p *Heap[T]) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.h.items) == 0
}

func (p *Heap[T]) Min() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.h.items) == 0 {
		var zero T
		return zero, false
	}
	return p.h.items[0], true
}

func (p *Heap[T]) Push(x T) {
	p.mu.Lock()
	heap.Push(&p.h, x)
	p.mu.Unlock()
}

func (p *Heap[T]) Poll(target, current int, emit func(T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k := target - current; k > 0 && len(p.h.items) > 0; k-- {
		emit(heap.Pop(&p.h).(T))
	}
}

// itemHeap is a least-first container/heap over the loop's element order.
type itemHeap[T any] struct {
	less  func(a, b T) bool
	items []T
}

func (h *itemHeap[T]) Len() int           { return len(h.items) }
func (h *itemHeap[T]) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h *itemHeap[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *itemHeap[T]) Push(x any) { h.items = append(h.items, x.(T)) }

func (h *itemHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
