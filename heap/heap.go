// Package heap provides a small generic binary heap used by the HNSW
// search algorithm to maintain both the candidate set (min-first) and
// the result set (size-bounded, with cheap access to both ends).
package heap

import "slices"

// Item is the constraint satisfied by values stored in a Heap. Less
// reports whether the receiver sorts before the argument.
type Item[T any] interface {
	Less(T) bool
}

// Heap is a binary min-heap over values implementing Item. The zero
// value is an empty heap; call Init before use if constructing from an
// existing slice.
type Heap[T Item[T]] struct {
	data []T
}

// Init establishes the heap invariant over data, taking ownership of
// the slice (including its existing elements, if any).
func (h *Heap[T]) Init(data []T) {
	h.data = data
	n := len(h.data)
	for i := n/2 - 1; i >= 0; i-- {
		h.down(i, n)
	}
}

// Len returns the number of elements in the heap.
func (h *Heap[T]) Len() int {
	return len(h.data)
}

// Push adds v to the heap.
func (h *Heap[T]) Push(v T) {
	h.data = append(h.data, v)
	h.up(len(h.data) - 1)
}

// Pop removes and returns the minimum element.
func (h *Heap[T]) Pop() T {
	n := len(h.data) - 1
	h.swap(0, n)
	min := h.data[n]
	h.data = h.data[:n]
	if n > 0 {
		h.down(0, n)
	}
	return min
}

// Min returns, without removing it, the minimum element.
func (h *Heap[T]) Min() T {
	return h.data[0]
}

// Max returns, without removing it, the maximum element.
func (h *Heap[T]) Max() T {
	return h.data[h.maxIndex()]
}

// PopLast removes and returns the maximum element.
func (h *Heap[T]) PopLast() T {
	i := h.maxIndex()
	n := len(h.data) - 1
	h.swap(i, n)
	max := h.data[n]
	h.data = h.data[:n]
	if i < n {
		h.down(i, n)
		h.up(i)
	}
	return max
}

// Slice returns the heap's elements sorted in ascending order. The
// returned slice is a copy; it does not alias the heap's storage.
func (h *Heap[T]) Slice() []T {
	out := make([]T, len(h.data))
	copy(out, h.data)
	slices.SortFunc(out, func(a, b T) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	return out
}

func (h *Heap[T]) maxIndex() int {
	m := 0
	for i := 1; i < len(h.data); i++ {
		if h.data[m].Less(h.data[i]) {
			m = i
		}
	}
	return m
}

func (h *Heap[T]) swap(i, j int) {
	h.data[i], h.data[j] = h.data[j], h.data[i]
}

func (h *Heap[T]) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h.data[j].Less(h.data[i]) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

func (h *Heap[T]) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.data[j2].Less(h.data[j1]) {
			j = j2
		}
		if !h.data[j].Less(h.data[i]) {
			break
		}
		h.swap(i, j)
		i = j
	}
	return i > i0
}
