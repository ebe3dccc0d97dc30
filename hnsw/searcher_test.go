package hnsw

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildChain creates a 5-node single-layer chain 0-1-2-3-4 (bidirectional
// edges) with query distance equal to the node's position, so the search
// must walk the chain to discover farther nodes.
func buildChain(n int) []*Node {
	nodes := make([]*Node, n)
	for i := 0; i < n; i++ {
		nodes[i] = &Node{ID: uint32(i), Connections: [][]uint32{{}}}
	}
	for i := 0; i < n-1; i++ {
		nodes[i].Connections[0] = append(nodes[i].Connections[0], uint32(i+1))
		nodes[i+1].Connections[0] = append(nodes[i+1].Connections[0], uint32(i))
	}
	return nodes
}

func TestSearchLayerFindsClosestK(t *testing.T) {
	nodes := buildChain(5)
	dist := func(id uint32) float32 { return float32(id) }

	results, aborted := searchLayer(nodes, len(nodes), 0, dist, []Item{{ID: 0, Dist: 0}}, 3, nil)

	assert.False(t, aborted)
	assert.Len(t, results, 3)
	assert.Equal(t, []uint32{0, 1, 2}, []uint32{results[0].ID, results[1].ID, results[2].ID})
}

func TestSearchLayerEfOneReturnsSingleNearest(t *testing.T) {
	nodes := buildChain(5)
	dist := func(id uint32) float32 { return float32(id) }

	results, aborted := searchLayer(nodes, len(nodes), 0, dist, []Item{{ID: 4, Dist: 4}}, 1, nil)
	assert.False(t, aborted)
	assert.Len(t, results, 1)
	assert.Equal(t, uint32(0), results[0].ID)
}

func TestSearchLayerNeverRevisitsNodes(t *testing.T) {
	// A cycle: 0-1-2-0. Without a visited set this would loop forever.
	nodes := []*Node{
		{ID: 0, Connections: [][]uint32{{1, 2}}},
		{ID: 1, Connections: [][]uint32{{0, 2}}},
		{ID: 2, Connections: [][]uint32{{0, 1}}},
	}
	dist := func(id uint32) float32 { return float32(id) }

	results, aborted := searchLayer(nodes, len(nodes), 0, dist, []Item{{ID: 0, Dist: 0}}, 3, nil)
	assert.False(t, aborted)
	assert.Len(t, results, 3)
}

func TestSearchLayerAbortsWhenVersionAdvancesMidTraversal(t *testing.T) {
	nodes := buildChain(5)
	dist := func(id uint32) float32 { return float32(id) }

	visits := 0
	checkVersion := func() bool {
		visits++
		return visits < 2 // let the first node be popped, then signal a change
	}

	results, aborted := searchLayer(nodes, len(nodes), 0, dist, []Item{{ID: 0, Dist: 0}}, 3, checkVersion)
	assert.True(t, aborted)
	assert.Nil(t, results)
	assert.GreaterOrEqual(t, visits, 2, "checkVersion must be consulted per visited node, not only once at the boundary")
}
