package hnsw

import "math"

// Heuristic selects which neighbour-selection policy a Graph uses when
// choosing edges during construction. It is a tagged variant (spec §9
// "tagged variant over virtual-dispatched heuristics") rather than an
// interface, since both policies share the same inputs and outputs and the
// call sites can switch on the tag directly.
type Heuristic uint8

const (
	// SimpleHeuristic keeps the M' closest candidates by distance, ties
	// broken by smaller ID.
	SimpleHeuristic Heuristic = iota
	// MalkovHeuristic implements Malkov et al.'s Algorithm 4: a diversity
	// heuristic that discards candidates already well-represented by a
	// closer selected neighbour.
	MalkovHeuristic
)

func (h Heuristic) String() string {
	switch h {
	case SimpleHeuristic:
		return "simple"
	case MalkovHeuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

// Parameters are the immutable tunables of a Graph, set at construction and
// serialised alongside it (spec §3). There is no process-wide ambient
// configuration; every Graph carries its own Parameters value.
type Parameters struct {
	// M is the target out-degree on layers above 0.
	M int

	// LevelLambda is the decay factor for exponential layer sampling.
	LevelLambda float64

	// NeighbourHeuristic selects SimpleHeuristic or MalkovHeuristic.
	NeighbourHeuristic Heuristic

	// ConstructionPruning is the candidate-set size used during insertion
	// (efConstruction).
	ConstructionPruning int

	// ExpandBestSelection, when true and NeighbourHeuristic is
	// MalkovHeuristic, expands the candidate set with neighbours-of-
	// neighbours before pruning.
	ExpandBestSelection bool

	// KeepPrunedConnections, when true and NeighbourHeuristic is
	// MalkovHeuristic, tops up a short result set from the discard pile.
	KeepPrunedConnections bool

	// EnableDistanceCacheForConstruction toggles the symmetric pair-cache
	// consulted while building the graph.
	EnableDistanceCacheForConstruction bool

	// InitialDistanceCacheSize is an advisory pre-allocation hint for the
	// distance cache. It is forced to 0 on deserialisation.
	InitialDistanceCacheSize int

	// InitialItemsSize is an advisory pre-allocation hint for the item and
	// node arrays.
	InitialItemsSize int
}

// Option configures Parameters at Graph construction time.
type Option func(*Parameters)

// DefaultParameters returns the spec's reference defaults: M=10,
// LevelLambda=1/ln(M), SimpleHeuristic, ConstructionPruning=200,
// ExpandBestSelection=false, KeepPrunedConnections=false,
// EnableDistanceCacheForConstruction=true, InitialDistanceCacheSize=1<<20,
// InitialItemsSize=1024.
func DefaultParameters() Parameters {
	const m = 10
	return Parameters{
		M:                                  m,
		LevelLambda:                        1 / math.Log(float64(m)),
		NeighbourHeuristic:                 SimpleHeuristic,
		ConstructionPruning:                200,
		ExpandBestSelection:                false,
		KeepPrunedConnections:              false,
		EnableDistanceCacheForConstruction: true,
		InitialDistanceCacheSize:           1 << 20,
		InitialItemsSize:                   1024,
	}
}

// NewParameters applies opts over DefaultParameters.
func NewParameters(opts ...Option) Parameters {
	p := DefaultParameters()
	for _, opt := range opts {
		if opt != nil {
			opt(&p)
		}
	}
	return p
}

// WithM sets the target out-degree and recomputes LevelLambda to match,
// unless a later WithLevelLambda option overrides it. M < 2 is clamped to 2
// to avoid a division by zero in the level-lambda formula (1/ln(1) = +Inf).
func WithM(m int) Option {
	return func(p *Parameters) {
		if m < 2 {
			m = 2
		}
		p.M = m
		p.LevelLambda = 1 / math.Log(float64(m))
	}
}

// WithLevelLambda overrides the layer-sampling decay directly.
func WithLevelLambda(lambda float64) Option {
	return func(p *Parameters) { p.LevelLambda = lambda }
}

// WithNeighbourHeuristic selects the construction-time neighbour policy.
func WithNeighbourHeuristic(h Heuristic) Option {
	return func(p *Parameters) { p.NeighbourHeuristic = h }
}

// WithConstructionPruning sets efConstruction.
func WithConstructionPruning(ef int) Option {
	return func(p *Parameters) { p.ConstructionPruning = ef }
}

// WithExpandBestSelection toggles neighbour-of-neighbour expansion for
// MalkovHeuristic.
func WithExpandBestSelection(enabled bool) Option {
	return func(p *Parameters) { p.ExpandBestSelection = enabled }
}

// WithKeepPrunedConnections toggles topping up from the discard pile for
// MalkovHeuristic.
func WithKeepPrunedConnections(enabled bool) Option {
	return func(p *Parameters) { p.KeepPrunedConnections = enabled }
}

// WithDistanceCache toggles the construction-time distance cache and sets
// its advisory initial capacity.
func WithDistanceCache(enabled bool, initialSize int) Option {
	return func(p *Parameters) {
		p.EnableDistanceCacheForConstruction = enabled
		p.InitialDistanceCacheSize = initialSize
	}
}

// WithInitialItemsSize sets the advisory pre-allocation hint for the item
// and node arrays.
func WithInitialItemsSize(n int) Option {
	return func(p *Parameters) { p.InitialItemsSize = n }
}

// Mmax returns the maximum out-degree allowed at layer: 2*M at layer 0, M
// above it.
func (p Parameters) Mmax(layer int) int {
	if layer == 0 {
		return 2 * p.M
	}
	return p.M
}
