package hnsw

import (
	"container/heap"

	"github.com/bits-and-blooms/bitset"
)

// queryDist computes the distance from a fixed (possibly out-of-graph) query
// to a node already present in the graph. Binding the query once per search
// call lets searchLayer stay agnostic to whether the query is a raw vector
// (KNearest) or another node already allocated in the arena (Insert, which
// pre-allocates the new node's ID before descending through the layers).
type queryDist func(nodeID uint32) float32

// searchLayer runs the best-first search of spec §4.5 over a single layer,
// starting from entryPoints and returning up to ef results ordered by
// ascending distance. nodes is the full adjacency array (indexed by ID);
// numNodes bounds the visited bitset.
//
// candidates is a min-heap (closest unexplored first); results is a
// max-heap bounded to ef entries (worst at the root, so it can be evicted in
// O(log ef) when a closer candidate is found).
//
// checkVersion, if non-nil, is called after each node is popped off
// candidates (i.e. once per node visited) so a caller doing a lock-free
// traversal can detect a concurrent mutation mid-search (spec §4.5) instead
// of only at layer-transition boundaries. A false return aborts the search
// immediately; the second return value reports whether that happened.
// Construction holds the graph's write lock for the whole insert, so
// insertOne passes nil and never aborts.
func searchLayer(nodes []*Node, numNodes int, layer int, dist queryDist, entryPoints []Item, ef int, checkVersion func() bool) ([]Item, bool) {
	visited := bitset.New(uint(numNodes))

	candidates := make(minHeap, 0, len(entryPoints))
	results := make(maxHeap, 0, ef)

	for _, ep := range entryPoints {
		visited.Set(uint(ep.ID))
		candidates = append(candidates, ep)
		results = append(results, ep)
	}
	heap.Init(&candidates)
	heap.Init(&results)

	for candidates.Len() > 0 {
		if checkVersion != nil && !checkVersion() {
			return nil, true
		}

		nearest := heap.Pop(&candidates).(Item)

		if results.Len() >= ef && nearest.Dist > results[0].Dist {
			break
		}

		if layer >= len(nodes[nearest.ID].Connections) {
			continue
		}

		for _, neighbourID := range nodes[nearest.ID].Connections[layer] {
			if visited.Test(uint(neighbourID)) {
				continue
			}
			visited.Set(uint(neighbourID))

			d := dist(neighbourID)

			if results.Len() < ef || d < results[0].Dist {
				item := Item{ID: neighbourID, Dist: d}
				heap.Push(&candidates, item)
				heap.Push(&results, item)
				if results.Len() > ef {
					heap.Pop(&results)
				}
			}
		}
	}

	return sortedItems(results), false
}
