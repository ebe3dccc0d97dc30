package hnsw

// Stats is a point-in-time snapshot of graph diagnostics, useful for
// observability and the testable "HitRate is in [0,1] and monotonic"
// property (spec §8).
type Stats struct {
	NumItems             int
	EntryPoint           int64
	EntryPointMaxLayer   int
	DistanceCalculations uint64
	DistanceCacheHitRate float64
	DistanceCacheSize    int
}

// Stats returns a snapshot of the graph's current diagnostics.
func (g *Graph[T]) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Stats{
		NumItems:             g.core.Len(),
		EntryPoint:           g.entryPoint.Load(),
		DistanceCalculations: g.distanceCalcs.Load(),
		DistanceCacheHitRate: g.DistanceCacheHitRate(),
	}
	if s.EntryPoint != noEntryPoint {
		s.EntryPointMaxLayer = g.core.Nodes[uint32(s.EntryPoint)].MaxLayer()
	}
	if g.cache != nil {
		s.DistanceCacheSize = g.cache.Len()
	}
	return s
}
