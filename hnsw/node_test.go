package hnsw

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddNodeSizesConnections(t *testing.T) {
	c := newCore[string](0)

	id := c.addNode("a", 2, 10, 20)
	assert.Equal(t, uint32(0), id)

	node := c.Nodes[0]
	assert.Equal(t, 2, node.MaxLayer())
	assert.Len(t, node.Connections, 3)
	assert.Equal(t, 0, len(node.Connections[0]))
	assert.Equal(t, 20, cap(node.Connections[0]))
	assert.Equal(t, 10, cap(node.Connections[1]))
	assert.Equal(t, 10, cap(node.Connections[2]))
}

func TestAddNodeAssignsDenseIDs(t *testing.T) {
	c := newCore[int](0)
	id0 := c.addNode(10, 0, 5, 10)
	id1 := c.addNode(20, 0, 5, 10)
	id2 := c.addNode(30, 0, 5, 10)

	assert.Equal(t, []uint32{0, 1, 2}, []uint32{id0, id1, id2})
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, c.Len(), len(c.Nodes))
}

func TestHasEdge(t *testing.T) {
	c := newCore[int](0)
	c.addNode(1, 0, 5, 10)
	node := c.Nodes[0]
	node.Connections[0] = append(node.Connections[0], 7)

	assert.True(t, node.hasEdge(0, 7))
	assert.False(t, node.hasEdge(0, 8))
}
