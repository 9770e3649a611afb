package vector

import (
	"fmt"
	"sort"
)

// Selection reduces a full set of row scores to the k best, ordered by
// descending similarity. Ties are ordered by ascending index so every
// implementation yields the same sequence for the same input.
type Selection interface {
	Select(slots []Similarity, k int) []Similarity
	Name() string
}

const (
	// SelectionHeap keeps a bounded min-heap of size k. O(N log k).
	SelectionHeap = "heap"
	// SelectionSort sorts every row. O(N log N).
	SelectionSort = "sort"
)

// ParseSelection returns the strategy for name; empty selects the heap.
func ParseSelection(name string) (Selection, error) {
	switch name {
	case SelectionHeap, "":
		return HeapSelection{}, nil
	case SelectionSort:
		return SortSelection{}, nil
	default:
		return nil, fmt.Errorf("unknown selection: %s (supported: heap, sort)", name)
	}
}

// ranksAbove reports whether a belongs before b in the result order.
func ranksAbove(a, b Similarity) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	return a.Index < b.Index
}

// SortSelection sorts all slots in place and returns a copy of the head.
type SortSelection struct{}

// Name returns "sort".
func (SortSelection) Name() string { return SelectionSort }

// Select reorders slots.
func (SortSelection) Select(slots []Similarity, k int) []Similarity {
	if k <= 0 || len(slots) == 0 {
		return nil
	}
	sort.Slice(slots, func(i, j int) bool { return ranksAbove(slots[i], slots[j]) })
	if k > len(slots) {
		k = len(slots)
	}
	out := make([]Similarity, k)
	copy(out, slots[:k])
	return out
}

// HeapSelection scans slots once, keeping the k best in a min-heap whose root
// is the worst retained entry. It does not modify slots.
type HeapSelection struct{}

// Name returns "heap".
func (HeapSelection) Name() string { return SelectionHeap }

// Select leaves slots unchanged.
func (HeapSelection) Select(slots []Similarity, k int) []Similarity {
	if k <= 0 || len(slots) == 0 {
		return nil
	}
	if k > len(slots) {
		k = len(slots)
	}
	h := make(minHeap, 0, k)
	for _, s := range slots {
		if len(h) < k {
			h.push(s)
		} else if ranksAbove(s, h[0]) {
			h[0] = s
			h.siftDown(0)
		}
	}
	out := []Similarity(h)
	sort.Slice(out, func(i, j int) bool { return ranksAbove(out[i], out[j]) })
	return out
}

// minHeap orders by the inverse of ranksAbove: the root ranks lowest.
// Value based, no container/heap indirection.
type minHeap []Similarity

func (h minHeap) less(i, j int) bool { return ranksAbove(h[j], h[i]) }

func (h *minHeap) push(s Similarity) {
	*h = append(*h, s)
	hh := *h
	i := len(hh) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !hh.less(i, parent) {
			break
		}
		hh[i], hh[parent] = hh[parent], hh[i]
		i = parent
	}
}

func (h minHeap) siftDown(i int) {
	n := len(h)
	for {
		left := 2*i + 1
		if left >= n {
			return
		}
		smallest := left
		if right := left + 1; right < n && h.less(right, left) {
			smallest = right
		}
		if !h.less(smallest, i) {
			return
		}
		h[i], h[smallest] = h[smallest], h[i]
		i = smallest
	}
}
