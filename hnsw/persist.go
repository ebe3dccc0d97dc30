package hnsw

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/klauspost/compress/zstd"

	"github.com/pdeschain/unichrome/cache"
	"github.com/pdeschain/unichrome/internal/diskio"
	"github.com/pdeschain/unichrome/metric"
)

// fileMagic identifies an HNSW graph codec stream; fileVersion allows the
// layout to evolve without breaking older readers' error messages.
var (
	fileMagic   = [4]byte{'U', 'N', 'H', 'W'}
	fileVersion = uint16(1)
)

const headerFixedLen = 8 // magic(4) + version(2) + flags(2)

// flagCompressed marks the payload following the header as zstd-compressed.
const flagCompressed uint16 = 1 << 0

// Save writes the graph topology — Parameters, the full Node adjacency
// sequence, and the EntryPoint — to w. Item payloads are never serialised;
// the caller must supply them again via Load. When compress is true, the
// payload is wrapped in a zstd stream.
func (g *Graph[T]) Save(w io.Writer, compress bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var flags uint16
	if compress {
		flags |= flagCompressed
	}
	if err := writeHeader(w, flags); err != nil {
		return err
	}

	if !compress {
		return g.encodeBody(w)
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("hnsw: create zstd encoder: %w", err)
	}
	if err := g.encodeBody(enc); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func (g *Graph[T]) encodeBody(w io.Writer) error {
	if err := writeParameters(w, g.params); err != nil {
		return err
	}

	ep := g.entryPoint.Load()
	if err := binary.Write(w, binary.LittleEndian, ep); err != nil {
		return fmt.Errorf("hnsw: write entry point: %w", err)
	}

	numNodes := uint32(g.core.Len())
	if err := binary.Write(w, binary.LittleEndian, numNodes); err != nil {
		return fmt.Errorf("hnsw: write node count: %w", err)
	}

	for _, n := range g.core.Nodes {
		if err := writeNode(w, n); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w io.Writer, flags uint16) error {
	buf := make([]byte, 0, headerFixedLen)
	buf = append(buf, fileMagic[:]...)
	var rest [4]byte
	binary.LittleEndian.PutUint16(rest[0:2], fileVersion)
	binary.LittleEndian.PutUint16(rest[2:4], flags)
	buf = append(buf, rest[:]...)
	_, err := w.Write(buf)
	return err
}

func readHeader(r io.Reader) (flags uint16, err error) {
	buf := make([]byte, headerFixedLen)
	if _, err = io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("hnsw: read header: %w", err)
	}
	var magic [4]byte
	copy(magic[:], buf[0:4])
	if magic != fileMagic {
		return 0, fmt.Errorf("hnsw: not a graph codec stream: bad magic")
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != fileVersion {
		return 0, fmt.Errorf("hnsw: unsupported graph codec version %d", version)
	}
	flags = binary.LittleEndian.Uint16(buf[6:8])
	return flags, nil
}

func writeParameters(w io.Writer, p Parameters) error {
	fields := []interface{}{
		int32(p.M),
		math.Float64bits(p.LevelLambda),
		uint8(p.NeighbourHeuristic),
		int32(p.ConstructionPruning),
		p.ExpandBestSelection,
		p.KeepPrunedConnections,
		p.EnableDistanceCacheForConstruction,
		int64(p.InitialDistanceCacheSize),
		int32(p.InitialItemsSize),
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("hnsw: write parameters: %w", err)
		}
	}
	return nil
}

func readParameters(r io.Reader) (Parameters, error) {
	var p Parameters

	var m int32
	var lambdaBits uint64
	var heuristic uint8
	var pruning int32
	var expandBest, keepPruned, cacheEnabled bool
	var initialCacheSize int64
	var initialItems int32

	fields := []interface{}{
		&m, &lambdaBits, &heuristic, &pruning,
		&expandBest, &keepPruned, &cacheEnabled,
		&initialCacheSize, &initialItems,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return p, fmt.Errorf("hnsw: read parameters: %w", err)
		}
	}

	p.M = int(m)
	p.LevelLambda = math.Float64frombits(lambdaBits)
	p.NeighbourHeuristic = Heuristic(heuristic)
	p.ConstructionPruning = int(pruning)
	p.ExpandBestSelection = expandBest
	p.KeepPrunedConnections = keepPruned
	p.EnableDistanceCacheForConstruction = cacheEnabled
	// Spec §4.7: a pre-built graph must not eagerly allocate a construction
	// cache on load.
	p.InitialDistanceCacheSize = 0
	p.InitialItemsSize = int(initialItems)
	_ = initialCacheSize

	return p, nil
}

func writeNode(w io.Writer, n *Node) error {
	if err := binary.Write(w, binary.LittleEndian, n.ID); err != nil {
		return fmt.Errorf("hnsw: write node id: %w", err)
	}
	numLayers := uint32(len(n.Connections))
	if err := binary.Write(w, binary.LittleEndian, numLayers); err != nil {
		return fmt.Errorf("hnsw: write layer count: %w", err)
	}
	for _, layer := range n.Connections {
		count := uint32(len(layer))
		if err := binary.Write(w, binary.LittleEndian, count); err != nil {
			return fmt.Errorf("hnsw: write edge count: %w", err)
		}
		for _, id := range layer {
			if err := binary.Write(w, binary.LittleEndian, id); err != nil {
				return fmt.Errorf("hnsw: write edge: %w", err)
			}
		}
	}
	return nil
}

func readNode(r io.Reader) (*Node, error) {
	var id uint32
	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return nil, fmt.Errorf("hnsw: read node id: %w", err)
	}
	var numLayers uint32
	if err := binary.Read(r, binary.LittleEndian, &numLayers); err != nil {
		return nil, fmt.Errorf("hnsw: read layer count: %w", err)
	}

	conns := make([][]uint32, numLayers)
	for l := range conns {
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return nil, fmt.Errorf("hnsw: read edge count: %w", err)
		}
		if count == 0 {
			continue
		}
		ids := make([]uint32, count)
		for i := range ids {
			if err := binary.Read(r, binary.LittleEndian, &ids[i]); err != nil {
				return nil, fmt.Errorf("hnsw: read edge: %w", err)
			}
		}
		conns[l] = ids
	}

	return &Node{ID: id, Connections: conns}, nil
}

// Load decodes a graph topology previously written by Save and re-attaches
// items in insertion order: items[i] must be the payload originally at node
// ID i. len(items) must equal the encoded node count.
func Load[T any](r io.Reader, items []T, vectorOf func(T) []float32, distFn metric.Func, opts ...Option) (*Graph[T], error) {
	flags, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	body := r
	if flags&flagCompressed != 0 {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("hnsw: create zstd decoder: %w", err)
		}
		defer dec.Close()
		body = dec.IOReadCloser()
	}

	p, err := readParameters(body)
	if err != nil {
		return nil, err
	}

	var ep int64
	if err := binary.Read(body, binary.LittleEndian, &ep); err != nil {
		return nil, fmt.Errorf("hnsw: read entry point: %w", err)
	}

	var numNodes uint32
	if err := binary.Read(body, binary.LittleEndian, &numNodes); err != nil {
		return nil, fmt.Errorf("hnsw: read node count: %w", err)
	}
	if int(numNodes) != len(items) {
		return nil, fmt.Errorf("hnsw: item count %d does not match encoded node count %d", len(items), numNodes)
	}

	nodes := make([]*Node, numNodes)
	for i := range nodes {
		n, err := readNode(body)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}

	g := &Graph[T]{
		core: &Core[T]{
			Items: items,
			Nodes: nodes,
		},
		params:   p,
		vectorOf: vectorOf,
		distFn:   distFn,
		rng:      rand.New(rand.NewSource(1)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&g.params)
		}
	}
	g.entryPoint.Store(ep)
	if len(items) > 0 {
		g.dimension = len(vectorOf(items[0]))
	}
	if g.params.EnableDistanceCacheForConstruction {
		g.cache = cache.New(g.params.InitialDistanceCacheSize)
	}

	return g, nil
}

// SaveFile atomically writes the graph topology to filename via a
// temp-file-then-rename, so a crash mid-write never corrupts an existing
// snapshot.
func (g *Graph[T]) SaveFile(filename string, compress bool) error {
	return diskio.SaveToFile(filename, func(w *bufio.Writer) error {
		return g.Save(w, compress)
	})
}

// LoadFile is the file-based counterpart of Load.
func LoadFile[T any](filename string, items []T, vectorOf func(T) []float32, distFn metric.Func, opts ...Option) (*Graph[T], error) {
	var g *Graph[T]
	err := diskio.LoadFromFile(filename, func(r *bufio.Reader) error {
		loaded, err := Load(r, items, vectorOf, distFn, opts...)
		if err != nil {
			return err
		}
		g = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}
