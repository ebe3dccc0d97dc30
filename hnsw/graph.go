// Package hnsw implements the Hierarchical Navigable Small World index: a
// layered proximity graph supporting approximate k-nearest-neighbour search
// under optimistic concurrency. A Graph owns a Core arena, an entry point,
// and a monotonic version counter; construction and traversal never hold a
// graph-wide lock against each other, relying instead on the version-counter
// protocol described in §5 of the design.
package hnsw

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/pdeschain/unichrome/cache"
	"github.com/pdeschain/unichrome/metric"
)

// maxRetries bounds KNearest's retry loop after a GraphChanged abort.
const maxRetries = 1024

// noEntryPoint is the sentinel stored in entryPoint when the graph is empty.
const noEntryPoint = -1

// SearchResult pairs a node ID and its payload item with its distance from
// the query, the shape returned by KNearest.
type SearchResult[T any] struct {
	ID       uint32
	Item     T
	Distance float32
}

// Graph is a generic HNSW index over payload type T. VectorOf extracts the
// vector used for distance computation from a T; it is fixed for the
// lifetime of the graph.
type Graph[T any] struct {
	mu sync.Mutex // guards the insert/mutation path; KNearest holds it only for its up-front checks, never during traversal

	core   *Core[T]
	params Parameters

	vectorOf func(T) []float32
	distFn   metric.Func

	cache *cache.Cache
	rng   *rand.Rand

	dimension int // 0 until the first item is inserted

	entryPoint atomic.Int64
	version    atomic.Uint64

	distanceCalcs atomic.Uint64
}

// New builds an empty Graph. vectorOf extracts the distance vector from a
// payload item; distFn is the cosine kernel variant to use throughout
// construction and search (spec requires the same kernel on every rebuild
// as was used to build the original graph).
func New[T any](vectorOf func(T) []float32, distFn metric.Func, opts ...Option) *Graph[T] {
	p := NewParameters(opts...)

	g := &Graph[T]{
		core:     newCore[T](p.InitialItemsSize),
		params:   p,
		vectorOf: vectorOf,
		distFn:   distFn,
		rng:      rand.New(rand.NewSource(1)),
	}
	g.entryPoint.Store(noEntryPoint)

	if p.EnableDistanceCacheForConstruction {
		g.cache = cache.New(p.InitialDistanceCacheSize)
	}

	return g
}

// Len returns the number of items currently stored.
func (g *Graph[T]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.core.Len()
}

// Parameters returns the graph's immutable configuration.
func (g *Graph[T]) Parameters() Parameters {
	return g.params
}

// Dimension returns the vector dimensionality implied by the first inserted
// item, or 0 if the graph is still empty.
func (g *Graph[T]) Dimension() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dimension
}

// checkDimension validates n against the graph's established dimension,
// adopting n if this is the first vector ever seen.
func (g *Graph[T]) checkDimension(n int) error {
	if g.dimension == 0 {
		g.dimension = n
		return nil
	}
	if n != g.dimension {
		return &ErrDimensionMismatch{Expected: g.dimension, Actual: n}
	}
	return nil
}

// AddItems inserts items one at a time (each fully connected before the
// next begins) and returns their assigned node IDs in the same order.
// AddItems(nil) is a no-op returning an empty, non-nil slice.
func (g *Graph[T]) AddItems(items []T) ([]uint32, error) {
	if len(items) == 0 {
		return []uint32{}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]uint32, 0, len(items))
	for _, item := range items {
		vec := g.vectorOf(item)
		if err := g.checkDimension(len(vec)); err != nil {
			return ids, err
		}
		id := g.insertOne(item)
		ids = append(ids, id)
	}
	return ids, nil
}

// insertOne runs the INSERT algorithm of spec §4.6 for a single item. Caller
// must hold g.mu.
func (g *Graph[T]) insertOne(item T) uint32 {
	level := randomLayer(g.rng, g.params.LevelLambda)
	mmax0 := g.params.Mmax(0)
	mmaxN := g.params.Mmax(1)
	qID := g.core.addNode(item, level, mmaxN, mmax0)

	ep := g.entryPoint.Load()
	if ep == noEntryPoint {
		g.entryPoint.Store(int64(qID))
		return qID
	}
	bestPeer := uint32(ep)
	epMaxLayer := g.core.Nodes[bestPeer].MaxLayer()

	qdist := func(n uint32) float32 { return g.distanceBetween(qID, n) }
	pairDist := distanceFunc(func(a, b uint32) float32 { return g.distanceBetween(a, b) })

	for layer := epMaxLayer; layer > level; layer-- {
		res, _ := searchLayer(g.core.Nodes, g.core.Len(), layer, qdist, []Item{{ID: bestPeer, Dist: qdist(bestPeer)}}, 1, nil)
		if len(res) > 0 {
			bestPeer = res[0].ID
		}
	}

	top := level
	if epMaxLayer < top {
		top = epMaxLayer
	}

	for layer := top; layer >= 0; layer-- {
		candidates, _ := searchLayer(g.core.Nodes, g.core.Len(), layer, qdist, []Item{{ID: bestPeer, Dist: qdist(bestPeer)}}, g.params.ConstructionPruning, nil)

		if g.params.NeighbourHeuristic == MalkovHeuristic && g.params.ExpandBestSelection {
			candidates = expandCandidates(g.core.Nodes, layer, qID, qdist, candidates)
		}

		mmax := g.params.Mmax(layer)
		neighbours := selectNeighbours(g.params, qID, candidates, mmax, pairDist)

		for _, nb := range neighbours {
			g.bumpVersion()
			g.addEdge(qID, nb.ID, layer)
			g.bumpVersion()
			g.addEdge(nb.ID, qID, layer)

			if len(g.core.Nodes[nb.ID].Connections[layer]) > mmax {
				g.shrink(nb.ID, layer, pairDist)
			}

			if nb.Dist < qdist(bestPeer) {
				bestPeer = nb.ID
			}
		}
	}

	if level > epMaxLayer {
		g.entryPoint.Store(int64(qID))
	}

	return qID
}

// addEdge appends b to a's adjacency list at layer, skipping self-loops and
// duplicate edges (spec §3 Node invariants).
func (g *Graph[T]) addEdge(a, b uint32, layer int) {
	if a == b {
		return
	}
	na := g.core.Nodes[a]
	if na.hasEdge(layer, b) {
		return
	}
	na.Connections[layer] = append(na.Connections[layer], b)
}

// shrink reselects node id's neighbours at layer via the active heuristic
// after a new edge pushed its degree past Mmax(layer).
func (g *Graph[T]) shrink(id uint32, layer int, pairDist distanceFunc) {
	node := g.core.Nodes[id]
	mmax := g.params.Mmax(layer)
	if len(node.Connections[layer]) <= mmax {
		return
	}

	candidates := make([]Item, len(node.Connections[layer]))
	for i, nb := range node.Connections[layer] {
		candidates[i] = Item{ID: nb, Dist: g.distanceBetween(id, nb)}
	}

	selected := selectNeighbours(g.params, id, candidates, mmax, pairDist)
	shrunk := make([]uint32, 0, mmax)
	for _, s := range selected {
		shrunk = append(shrunk, s.ID)
	}
	node.Connections[layer] = shrunk
}

func (g *Graph[T]) bumpVersion() {
	g.version.Add(1)
}

// distanceBetween computes the distance between two nodes already present
// in the core, routing through the distance cache when construction-time
// caching is enabled. The call counter increments on every call, including
// cache hits, per spec §4.3.
func (g *Graph[T]) distanceBetween(a, b uint32) float32 {
	g.distanceCalcs.Add(1)
	if a == b {
		return 0
	}
	compute := func(i, j uint32) float32 {
		return g.distFn(g.vectorOf(g.core.Items[i]), g.vectorOf(g.core.Items[j]))
	}
	if g.cache != nil {
		return g.cache.GetValue(a, b, compute)
	}
	return compute(a, b)
}

// distanceFromVector computes the distance between a raw query vector (not
// necessarily present in the graph) and an existing node. Never cached: the
// cache is keyed on node-ID pairs and a query has no stable ID.
func (g *Graph[T]) distanceFromVector(query []float32, node uint32) float32 {
	g.distanceCalcs.Add(1)
	return g.distFn(query, g.vectorOf(g.core.Items[node]))
}

// randomLayer samples a layer via the standard HNSW exponential
// distribution: floor(-ln(u) * lambda), u ~ Uniform(0,1].
func randomLayer(rng *rand.Rand, lambda float64) int {
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return int(math.Floor(-math.Log(u) * lambda))
}

// KNearest returns the k items closest to query in ascending distance
// order. An empty graph returns (nil, nil), not an error. A GraphChanged
// abort is retried internally up to maxRetries times before propagating.
func (g *Graph[T]) KNearest(query []float32, k int) ([]SearchResult[T], error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}

	g.mu.Lock()
	empty := g.core.Len() == 0
	var dimErr error
	if !empty {
		dimErr = g.checkDimension(len(query))
	}
	g.mu.Unlock()
	if dimErr != nil {
		return nil, dimErr
	}
	if empty {
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		results, err := g.knearestOnce(query, k)
		if err == nil {
			return results, nil
		}
		if !errors.Is(err, ErrGraphChanged) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// knearestOnce is a single attempt at the K-NN-SEARCH algorithm of spec
// §4.6. It never mutates the graph and takes no lock, relying entirely on
// the version-counter protocol to detect concurrent construction. Per
// spec §4.5, the version is checked after every node visited during layer
// traversal, not just at layer-transition boundaries: checkVersion is
// threaded into searchLayer so a mutation racing with a single, possibly
// long, layer-0 traversal is still caught at node granularity.
func (g *Graph[T]) knearestOnce(query []float32, k int) ([]SearchResult[T], error) {
	versionSeen := g.version.Load()
	checkVersion := func() bool { return g.version.Load() == versionSeen }

	ep := g.entryPoint.Load()
	if ep == noEntryPoint {
		return nil, nil
	}
	epID := uint32(ep)

	nodes := g.core.Nodes
	numNodes := g.core.Len()
	qdist := func(n uint32) float32 { return g.distanceFromVector(query, n) }

	bestPeer := epID
	epMaxLayer := nodes[epID].MaxLayer()

	for layer := epMaxLayer; layer >= 1; layer-- {
		if !checkVersion() {
			return nil, ErrGraphChanged
		}
		res, aborted := searchLayer(nodes, numNodes, layer, qdist, []Item{{ID: bestPeer, Dist: qdist(bestPeer)}}, 1, checkVersion)
		if aborted {
			return nil, ErrGraphChanged
		}
		if len(res) > 0 {
			bestPeer = res[0].ID
		}
	}

	if !checkVersion() {
		return nil, ErrGraphChanged
	}

	results, aborted := searchLayer(nodes, numNodes, 0, qdist, []Item{{ID: bestPeer, Dist: qdist(bestPeer)}}, k, checkVersion)
	if aborted {
		return nil, ErrGraphChanged
	}

	if len(results) > k {
		results = results[:k]
	}

	out := make([]SearchResult[T], len(results))
	for i, r := range results {
		out[i] = SearchResult[T]{ID: r.ID, Item: g.core.Items[r.ID], Distance: r.Dist}
	}
	return out, nil
}

// DistanceCacheHitRate reports the construction-time distance cache's hit
// rate, or 0 if caching is disabled.
func (g *Graph[T]) DistanceCacheHitRate() float64 {
	if g.cache == nil {
		return 0
	}
	return g.cache.HitRate()
}

// DistanceCalculationsCount reports the number of distance evaluations
// performed so far, including cache hits.
func (g *Graph[T]) DistanceCalculationsCount() uint64 {
	return g.distanceCalcs.Load()
}

// EntryPoint returns the current entry-point node ID and whether one
// exists.
func (g *Graph[T]) EntryPoint() (uint32, bool) {
	ep := g.entryPoint.Load()
	if ep == noEntryPoint {
		return 0, false
	}
	return uint32(ep), true
}
