package hnsw

// Node is a per-item adjacency record. Connections[l] holds node's bounded
// neighbour set at layer l; the node's MaxLayer equals len(Connections)-1.
// Edges are represented as integer IDs into the owning Core's arrays, never
// as direct references, so the arena can grow by simple append (spec §9
// "arena + indices over cyclic graphs").
type Node struct {
	ID          uint32
	Connections [][]uint32
}

// MaxLayer returns the highest layer this node participates in.
func (n *Node) MaxLayer() int {
	return len(n.Connections) - 1
}

// hasEdge reports whether b is already a neighbour of this node at layer.
func (n *Node) hasEdge(layer int, b uint32) bool {
	for _, id := range n.Connections[layer] {
		if id == b {
			return true
		}
	}
	return false
}

// Core owns the two dense, parallel, append-only arrays that back a Graph:
// Items (the payload, one per node) and Nodes (the adjacency structure).
// IDs are dense indices in [0, Len()), assigned in insertion order.
type Core[T any] struct {
	Items []T
	Nodes []*Node
}

func newCore[T any](initialSize int) *Core[T] {
	if initialSize < 0 {
		initialSize = 0
	}
	return &Core[T]{
		Items: make([]T, 0, initialSize),
		Nodes: make([]*Node, 0, initialSize),
	}
}

// Len returns the number of items/nodes currently stored.
func (c *Core[T]) Len() int {
	return len(c.Items)
}

// addNode appends a new item and its adjacency record, sized for the given
// sampled layer. Layer 0's connection list is pre-sized to mmax0; every
// layer above it to mmax.
func (c *Core[T]) addNode(item T, layer, mmax, mmax0 int) uint32 {
	id := uint32(len(c.Items))

	conns := make([][]uint32, layer+1)
	for l := range conns {
		capN := mmax
		if l == 0 {
			capN = mmax0
		}
		conns[l] = make([]uint32, 0, capN)
	}

	c.Items = append(c.Items, item)
	c.Nodes = append(c.Nodes, &Node{ID: id, Connections: conns})

	return id
}
