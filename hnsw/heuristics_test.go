package hnsw

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectSimpleKeepsClosestAndBreaksTiesByID(t *testing.T) {
	candidates := []Item{
		{ID: 5, Dist: 0.5},
		{ID: 1, Dist: 0.5},
		{ID: 2, Dist: 0.1},
		{ID: 3, Dist: 0.9},
	}

	out := selectSimple(candidates, 2)
	assert.Len(t, out, 2)
	assert.Equal(t, uint32(2), out[0].ID)
	assert.Equal(t, uint32(1), out[1].ID) // tie between 1 and 5 broken by smaller ID
}

func TestSelectSimpleCapsAtAvailableCandidates(t *testing.T) {
	out := selectSimple([]Item{{ID: 1, Dist: 0.1}}, 5)
	assert.Len(t, out, 1)
}

// A small synthetic distance matrix for exercising the diversity heuristic:
// nodes 1 and 2 are both near the query, but 2 is also very near 1, so once 1
// is selected, 2 should be pruned in favour of the further-but-more-diverse
// node 3.
func TestSelectHeuristicPrunesRedundantCandidate(t *testing.T) {
	pairwise := map[[2]uint32]float32{
		{1, 2}: 0.01,
		{1, 3}: 0.9,
		{2, 3}: 0.9,
	}
	dist := func(a, b uint32) float32 {
		if a > b {
			a, b = b, a
		}
		return pairwise[[2]uint32{a, b}]
	}

	candidates := []Item{
		{ID: 1, Dist: 0.1},
		{ID: 2, Dist: 0.12},
		{ID: 3, Dist: 0.5},
	}

	out := selectHeuristic(0, candidates, 2, false, false, dist)
	assert.Len(t, out, 2)
	ids := []uint32{out[0].ID, out[1].ID}
	assert.Contains(t, ids, uint32(1))
	assert.Contains(t, ids, uint32(3))
	assert.NotContains(t, ids, uint32(2))
}

// On an exact tie — candidate 2 is exactly as close to already-selected
// candidate 1 as it is to the query — spec §4.4 step 3's strict accept
// condition ("dist(q,e) < dist(r,e) for every r in R") rejects it; a
// non-strict "<=" accept test would wrongly keep it.
func TestSelectHeuristicRejectsExactTie(t *testing.T) {
	pairwise := map[[2]uint32]float32{
		{1, 2}: 0.2, // dist(1,2) == dist(q,2), a tie
		{1, 3}: 0.9,
		{2, 3}: 0.9,
	}
	dist := func(a, b uint32) float32 {
		if a > b {
			a, b = b, a
		}
		return pairwise[[2]uint32{a, b}]
	}

	candidates := []Item{
		{ID: 1, Dist: 0.1},
		{ID: 2, Dist: 0.2},
		{ID: 3, Dist: 0.5},
	}

	out := selectHeuristic(0, candidates, 2, false, false, dist)
	ids := []uint32{out[0].ID, out[1].ID}
	assert.Contains(t, ids, uint32(1))
	assert.Contains(t, ids, uint32(3))
	assert.NotContains(t, ids, uint32(2), "candidate tied with an already-selected neighbour must be rejected, not kept")
}

func TestSelectHeuristicKeepPrunedTopsUp(t *testing.T) {
	// dist(1,2) very small means 2 gets pruned relative to 1; with
	// keepPruned the result is topped back up to m even though only 1
	// candidate survived pruning cleanly.
	dist := func(a, b uint32) float32 {
		if (a == 1 && b == 2) || (a == 2 && b == 1) {
			return 0.001
		}
		return 1.0
	}

	candidates := []Item{
		{ID: 1, Dist: 0.1},
		{ID: 2, Dist: 0.11},
	}

	withoutKeep := selectHeuristic(0, candidates, 2, false, false, dist)
	assert.Len(t, withoutKeep, 1)

	withKeep := selectHeuristic(0, candidates, 2, false, true, dist)
	assert.Len(t, withKeep, 2)
}

func TestExpandCandidatesAddsNeighboursOfNeighboursOnce(t *testing.T) {
	nodes := []*Node{
		{ID: 0, Connections: [][]uint32{{1}}},    // query's own node, unused here
		{ID: 1, Connections: [][]uint32{{0, 2}}}, // candidate, neighbours 0 (query) and 2 (new)
		{ID: 2, Connections: [][]uint32{{1}}},    // discovered via 1, neighbours only 1 (a candidate)
	}

	dist := func(id uint32) float32 { return float32(id) * 0.1 }
	candidates := []Item{{ID: 1, Dist: 0.1}}

	out := expandCandidates(nodes, 0, 0, dist, candidates)

	ids := make(map[uint32]bool, len(out))
	for _, c := range out {
		ids[c.ID] = true
	}
	assert.True(t, ids[1])
	assert.True(t, ids[2])
	assert.False(t, ids[0], "query itself must never be added as a candidate")
	assert.Len(t, out, 2)
}

func TestSelectNeighboursDispatchesOnHeuristic(t *testing.T) {
	candidates := []Item{{ID: 1, Dist: 0.2}, {ID: 2, Dist: 0.1}}
	dist := func(a, b uint32) float32 { return 1.0 }

	simple := selectNeighbours(Parameters{NeighbourHeuristic: SimpleHeuristic}, 0, candidates, 1, dist)
	assert.Equal(t, uint32(2), simple[0].ID)

	heuristic := selectNeighbours(Parameters{NeighbourHeuristic: MalkovHeuristic}, 0, candidates, 2, dist)
	assert.Len(t, heuristic, 2)
}
