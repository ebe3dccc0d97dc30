package hnsw

import (
	"container/heap"
	"sort"
)

// distanceFunc computes the distance between two node IDs already present in
// the graph's Core. Both neighbour-selection heuristics are expressed purely
// in terms of this function, never touching raw vectors directly, so the
// same code path serves construction-time cached lookups and plain
// uncached ones.
type distanceFunc func(a, b uint32) float32

// selectNeighbours dispatches to SimpleHeuristic or MalkovHeuristic per p,
// returning at most m candidates ordered by ascending distance from qID.
func selectNeighbours(p Parameters, qID uint32, candidates []Item, m int, dist distanceFunc) []Item {
	switch p.NeighbourHeuristic {
	case MalkovHeuristic:
		return selectHeuristic(qID, candidates, m, p.ExpandBestSelection, p.KeepPrunedConnections, dist)
	default:
		return selectSimple(candidates, m)
	}
}

// selectSimple keeps the m closest candidates by distance, ties broken by
// ascending ID (spec §4.4, SimpleHeuristic).
func selectSimple(candidates []Item, m int) []Item {
	out := make([]Item, len(candidates))
	copy(out, candidates)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if len(out) > m {
		out = out[:m]
	}
	return out
}

// selectHeuristic implements Malkov et al.'s Algorithm 4: a diversity
// heuristic that discards a candidate if some already-selected neighbour is
// at least as close to it as it is to the query (ties discarded too, per
// spec §4.4 step 3's strict "accept iff closer to q than to every r in R"),
// on the theory that the selected neighbour already "covers" that region of
// the graph.
//
// When expandBest is true, the candidate set is first expanded with each
// candidate's own neighbours at the same layer (the caller passes these in
// via candidates already; selectHeuristic itself only prunes, expansion
// happens at the call site since it requires layer and graph access).
// When keepPruned is true and fewer than m neighbours survive pruning, the
// discard pile tops the result back up to m, closest-first.
func selectHeuristic(qID uint32, candidates []Item, m int, expandBest, keepPruned bool, dist distanceFunc) []Item {
	_ = expandBest // expansion is performed by the caller before invoking this function

	work := &minHeap{}
	heap.Init(work)
	for _, c := range candidates {
		heap.Push(work, c)
	}

	var selected []Item
	var discarded []Item

	for work.Len() > 0 && len(selected) < m {
		cand := heap.Pop(work).(Item)

		good := true
		for _, sel := range selected {
			if dist(cand.ID, sel.ID) <= cand.Dist {
				good = false
				break
			}
		}

		if good {
			selected = append(selected, cand)
		} else {
			discarded = append(discarded, cand)
		}
	}

	if keepPruned {
		sort.Slice(discarded, func(i, j int) bool { return less(discarded[i], discarded[j]) })
		for _, d := range discarded {
			if len(selected) >= m {
				break
			}
			selected = append(selected, d)
		}
	}

	sort.Slice(selected, func(i, j int) bool { return less(selected[i], selected[j]) })
	return selected
}

// expandCandidates implements the ExpandBestSelection step of spec §4.4: it
// adds each candidate's own same-layer neighbours to the candidate set
// (deduplicated, self excluded) before pruning, giving the diversity
// heuristic a wider view of the local graph than searchLayer's frontier
// alone provides.
func expandCandidates(nodes []*Node, layer int, qID uint32, dist queryDist, candidates []Item) []Item {
	seen := make(map[uint32]bool, len(candidates)*2)
	out := make([]Item, len(candidates))
	copy(out, candidates)
	for _, c := range candidates {
		seen[c.ID] = true
	}
	seen[qID] = true

	for _, c := range candidates {
		for _, nb := range nodes[c.ID].Connections[layer] {
			if seen[nb] {
				continue
			}
			seen[nb] = true
			out = append(out, Item{ID: nb, Dist: dist(nb)})
		}
	}
	return out
}
