package collection

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/pdeschain/unichrome/embedder"
	"github.com/pdeschain/unichrome/hnsw"
	"github.com/pdeschain/unichrome/metric"
)

// SearchHit is a single post-filtered search result, sorted ascending by
// Distance.
type SearchHit struct {
	Document *Document
	Distance float32
}

// Options configures a Collection. The zero value is usable; its
// ThreadSafe is false, so the collection takes no lock and the caller must
// synchronise access.
type Options struct {
	ThreadSafe       bool
	HNSWOptions      []hnsw.Option
	EmbedConcurrency int
	EmbedRatePerSec  float64
	Logger           Logger
	Metrics          MetricsCollector
}

func (o Options) withDefaults() Options {
	if o.EmbedConcurrency <= 0 {
		o.EmbedConcurrency = 4
	}
	if o.Logger == nil {
		o.Logger = NoopLogger{}
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetricsCollector{}
	}
	return o
}

// Collection bundles a document store, an HNSW graph over pointers to its
// documents, and (when persistent) the backing file paths. All public
// operations are serialised by a single-writer/multi-reader lock unless
// thread-safety was disabled at construction (spec §5).
type Collection struct {
	name string
	dir  string // empty for an in-memory collection

	mu         sync.RWMutex
	threadSafe bool

	store *store
	graph *hnsw.Graph[*Document]

	distFn   metric.Func
	embedder embedder.Embedder

	logger  Logger
	metrics MetricsCollector

	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

func dbFile(dir, name string) string   { return dir + "/" + name + ".db" }
func hnswFile(dir, name string) string { return dir + "/" + name + ".hnsw" }

// New creates an empty in-memory collection. embed may be nil if the
// collection is only ever fed pre-computed vectors via AddDocument.
func New(name string, distFn metric.Func, embed embedder.Embedder, opts Options) *Collection {
	opts = opts.withDefaults()

	c := &Collection{
		name:       name,
		threadSafe: opts.ThreadSafe,
		store:      newStore(),
		graph:      hnsw.New[*Document](vectorOf, distFn, opts.HNSWOptions...),
		distFn:     distFn,
		embedder:   embed,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		sem:        semaphore.NewWeighted(int64(opts.EmbedConcurrency)),
	}
	if opts.EmbedRatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.EmbedRatePerSec), int(opts.EmbedConcurrency))
	}
	return c
}

// Open loads a persistent collection from dir/name.db (and dir/name.hnsw if
// present), or creates it fresh if neither file exists. If the .db file
// exists but .hnsw is missing, the graph is rebuilt from the loaded
// documents and re-persisted (spec §4.8).
func Open(dir, name string, distFn metric.Func, embed embedder.Embedder, opts Options) (*Collection, error) {
	opts = opts.withDefaults()

	c := &Collection{
		name:       name,
		dir:        dir,
		threadSafe: opts.ThreadSafe,
		store:      newStore(),
		distFn:     distFn,
		embedder:   embed,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		sem:        semaphore.NewWeighted(int64(opts.EmbedConcurrency)),
	}
	if opts.EmbedRatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.EmbedRatePerSec), int(opts.EmbedConcurrency))
	}

	path := dbFile(dir, name)
	if err := c.store.loadFile(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, wrapIO("load document store", err)
		}
		c.graph = hnsw.New[*Document](vectorOf, distFn, opts.HNSWOptions...)
		return c, nil
	}

	docs := c.store.snapshot()

	graphPath := hnswFile(dir, name)
	g, err := hnsw.LoadFile[*Document](graphPath, docs, vectorOf, distFn, opts.HNSWOptions...)
	if err != nil {
		g = hnsw.New[*Document](vectorOf, distFn, opts.HNSWOptions...)
		ptrs := make([]*Document, len(docs))
		copy(ptrs, docs)
		if _, aerr := g.AddItems(ptrs); aerr != nil {
			return nil, translateGraphError(aerr)
		}
		c.graph = g
		if perr := c.persistLocked(); perr != nil {
			return nil, perr
		}
		return c, nil
	}

	c.graph = g
	return c, nil
}

func (c *Collection) rlock() {
	if c.threadSafe {
		c.mu.RLock()
	}
}
func (c *Collection) runlock() {
	if c.threadSafe {
		c.mu.RUnlock()
	}
}
func (c *Collection) wlock() {
	if c.threadSafe {
		c.mu.Lock()
	}
}
func (c *Collection) wunlock() {
	if c.threadSafe {
		c.mu.Unlock()
	}
}

// AddDocument stores text/vector/metadata and inserts it into the graph,
// returning the newly allocated ID.
func (c *Collection) AddDocument(text string, vector []float32, metadata map[string]string) (int32, error) {
	start := time.Now()
	c.wlock()
	defer c.wunlock()

	id := c.store.allocate()
	doc := &Document{Id: id, Text: text, Vector: vector, Metadata: metadata}

	_, err := c.graph.AddItems([]*Document{doc})
	err = translateGraphError(err)

	if err == nil {
		c.store.insert(doc, time.Now().UTC())
	}

	c.metrics.RecordInsert(time.Since(start), err)
	c.logger.LogInsert(context.Background(), id, len(vector), err)

	if err != nil {
		return 0, err
	}
	return id, nil
}

// AddDocumentsAsync embeds each text via the configured embedder (bounded
// by EmbedConcurrency and optionally throttled by EmbedRatePerSec), then
// inserts the whole batch into the graph with a single AddItems call.
func (c *Collection) AddDocumentsAsync(ctx context.Context, texts []string, metadatas []map[string]string) ([]int32, error) {
	start := time.Now()
	if c.embedder == nil {
		return nil, fmt.Errorf("collection: AddDocumentsAsync requires an embedder")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	for i, text := range texts {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			defer c.sem.Release(1)

			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					errs[i] = err
					return
				}
			}
			v, err := c.embedder.Encode(ctx, text)
			if err != nil {
				errs[i] = err
				return
			}
			vectors[i] = v
		}(i, text)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			c.metrics.RecordBatchInsert(len(texts), 1, time.Since(start))
			c.logger.LogBatchInsert(ctx, len(texts), err)
			return nil, err
		}
	}

	c.wlock()
	defer c.wunlock()

	now := time.Now().UTC()
	docs := make([]*Document, len(texts))
	ids := make([]int32, len(texts))
	for i, text := range texts {
		var md map[string]string
		if metadatas != nil {
			md = metadatas[i]
		}
		id := c.store.allocate()
		docs[i] = &Document{Id: id, Text: text, Vector: vectors[i], Metadata: md}
		ids[i] = id
	}

	_, err := c.graph.AddItems(docs)
	err = translateGraphError(err)

	if err == nil {
		for _, doc := range docs {
			c.store.insert(doc, now)
		}
	}

	c.metrics.RecordBatchInsert(len(texts), 0, time.Since(start))
	c.logger.LogBatchInsert(ctx, len(texts), err)

	if err != nil {
		return nil, err
	}
	return ids, nil
}

// TryGetDocument returns the document for id and whether it was found.
func (c *Collection) TryGetDocument(id int32) (*Document, bool) {
	c.rlock()
	defer c.runlock()
	return c.store.get(id)
}

// GetDocument returns the document for id, or ErrNotFound.
func (c *Collection) GetDocument(id int32) (*Document, error) {
	d, ok := c.TryGetDocument(id)
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// Contains reports whether id is currently live in the store.
func (c *Collection) Contains(id int32) bool {
	c.rlock()
	defer c.runlock()
	return c.store.contains(id)
}

// Count returns the number of live documents.
func (c *Collection) Count() int {
	c.rlock()
	defer c.runlock()
	return c.store.count()
}

// Items returns a stable, insertion-ordered snapshot of every live
// document.
func (c *Collection) Items() []*Document {
	c.rlock()
	defer c.runlock()
	return c.store.snapshot()
}

// DeleteDocument removes id from the store, then rebuilds the graph from
// scratch over the remaining documents (spec §4.4, §4.8: HNSW has no native
// delete). Returns false if id was already absent.
func (c *Collection) DeleteDocument(id int32) (bool, error) {
	start := time.Now()
	c.wlock()
	defer c.wunlock()

	if !c.store.delete(id) {
		c.metrics.RecordDelete(time.Since(start), nil)
		c.logger.LogDelete(context.Background(), id, false, nil)
		return false, nil
	}
	err := c.rebuildLocked()
	c.metrics.RecordDelete(time.Since(start), err)
	c.logger.LogDelete(context.Background(), id, true, err)
	if err != nil {
		return true, err
	}
	return true, nil
}

// UpdateDocumentAsync re-embeds text (if an embedder is configured and text
// changed the vector) and rewrites metadata, then rebuilds the graph from
// scratch (spec §4.8).
func (c *Collection) UpdateDocumentAsync(ctx context.Context, id int32, text string, metadata map[string]string) error {
	start := time.Now()
	c.wlock()
	defer c.wunlock()

	doc, ok := c.store.get(id)
	if !ok {
		c.metrics.RecordUpdate(time.Since(start), ErrNotFound)
		c.logger.LogUpdate(ctx, id, ErrNotFound)
		return ErrNotFound
	}

	if c.embedder != nil {
		v, err := c.embedder.Encode(ctx, text)
		if err != nil {
			c.metrics.RecordUpdate(time.Since(start), err)
			c.logger.LogUpdate(ctx, id, err)
			return err
		}
		doc.Vector = v
	}

	c.store.update(id, text, metadata, time.Now().UTC())
	err := c.rebuildLocked()
	c.metrics.RecordUpdate(time.Since(start), err)
	c.logger.LogUpdate(ctx, id, err)
	return err
}

// rebuildLocked reconstructs the graph from the store's current contents,
// using the same distance kernel the collection was opened with (spec §9:
// the rebuild must not silently switch kernels). Caller must hold the
// write lock.
func (c *Collection) rebuildLocked() error {
	fresh := hnsw.New[*Document](vectorOf, c.distFn, paramsToOptions(c.graph.Parameters())...)
	docs := c.store.snapshot()
	if _, err := fresh.AddItems(docs); err != nil {
		return translateGraphError(err)
	}
	c.graph = fresh
	return nil
}

// paramsToOptions reconstructs the Option set that reproduces p, so a
// rebuild after delete/update never silently drifts from the kernel and
// tunables the collection was opened with (spec §9).
func paramsToOptions(p hnsw.Parameters) []hnsw.Option {
	return []hnsw.Option{
		hnsw.WithM(p.M),
		hnsw.WithLevelLambda(p.LevelLambda),
		hnsw.WithNeighbourHeuristic(p.NeighbourHeuristic),
		hnsw.WithConstructionPruning(p.ConstructionPruning),
		hnsw.WithExpandBestSelection(p.ExpandBestSelection),
		hnsw.WithKeepPrunedConnections(p.KeepPrunedConnections),
		hnsw.WithDistanceCache(p.EnableDistanceCacheForConstruction, p.InitialDistanceCacheSize),
		hnsw.WithInitialItemsSize(p.InitialItemsSize),
	}
}

// Search runs a k-NN query and applies the post-filters, returning results
// sorted by ascending distance (spec §4.8).
func (c *Collection) Search(vector []float32, k int, filters []MetadataFilter, createdRange, modifiedRange *DateRange) ([]SearchHit, error) {
	start := time.Now()
	if err := ValidateFilters(filters); err != nil {
		return nil, err
	}

	c.rlock()
	defer c.runlock()

	results, err := c.graph.KNearest(vector, k)
	if err != nil {
		err = translateGraphError(err)
		c.metrics.RecordSearch(k, time.Since(start), err)
		c.logger.LogSearch(context.Background(), k, 0, err)
		return nil, err
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		if !matchesFilters(r.Item, filters) {
			continue
		}
		if !matchesDateRanges(r.Item, createdRange, modifiedRange) {
			continue
		}
		hits = append(hits, SearchHit{Document: r.Item, Distance: r.Distance})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	c.metrics.RecordSearch(k, time.Since(start), nil)
	c.logger.LogSearch(context.Background(), k, len(hits), nil)
	return hits, nil
}

// SearchAsync embeds text via the configured embedder, then calls Search.
func (c *Collection) SearchAsync(ctx context.Context, text string, k int, filters []MetadataFilter, createdRange, modifiedRange *DateRange) ([]SearchHit, error) {
	if c.embedder == nil {
		return nil, fmt.Errorf("collection: SearchAsync requires an embedder")
	}
	v, err := c.embedder.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	return c.Search(v, k, filters, createdRange, modifiedRange)
}

// Persist writes both the document store and the graph codec to disk. A
// no-op for in-memory collections.
func (c *Collection) Persist() error {
	c.wlock()
	defer c.wunlock()
	err := c.persistLocked()
	c.logger.LogPersist(context.Background(), c.name, err)
	return err
}

func (c *Collection) persistLocked() error {
	if c.dir == "" {
		return nil
	}
	if err := c.store.persistFile(dbFile(c.dir, c.name)); err != nil {
		return wrapIO("persist document store", err)
	}
	if err := c.graph.SaveFile(hnswFile(c.dir, c.name), true); err != nil {
		return wrapIO("persist graph", err)
	}
	return nil
}

// DeletePersistedStorage removes the collection's on-disk files, if any.
func (c *Collection) DeletePersistedStorage() error {
	c.wlock()
	defer c.wunlock()
	if c.dir == "" {
		return nil
	}
	if err := os.Remove(dbFile(c.dir, c.name)); err != nil && !os.IsNotExist(err) {
		return wrapIO("remove document store", err)
	}
	if err := os.Remove(hnswFile(c.dir, c.name)); err != nil && !os.IsNotExist(err) {
		return wrapIO("remove graph", err)
	}
	return nil
}
