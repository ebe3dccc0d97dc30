package hnsw

import "container/heap"

// Item is a single candidate/result in a layer search: a node ID paired with
// its distance to the query.
type Item struct {
	ID   uint32
	Dist float32
}

// less orders items by ascending distance, ties broken by ascending ID, per
// the spec's tie-break rule for any ordering over equal-distance nodes.
func less(a, b Item) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.ID < b.ID
}

// minHeap is a container/heap.Interface over Items ordered so the closest
// item is always at the root; used as the candidate set during best-first
// search.
type minHeap []Item

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(Item)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// maxHeap is a container/heap.Interface over Items ordered so the furthest
// (worst) item is always at the root; used as the bounded result set during
// best-first search, so the worst member can be evicted in O(log n).
type maxHeap []Item

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return less(h[j], h[i]) }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(Item)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// sortedItems drains a maxHeap into a slice ordered by ascending distance
// (closest first), the public ordering used for both KNearest results and
// neighbour-selection output.
func sortedItems(h maxHeap) []Item {
	out := make([]Item, len(h))
	cp := make(maxHeap, len(h))
	copy(cp, h)
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&cp).(Item)
	}
	return out
}
