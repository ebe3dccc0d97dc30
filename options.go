package unichrome

import (
	"github.com/pdeschain/unichrome/collection"
	"github.com/pdeschain/unichrome/hnsw"
)

// collectionOptions configures a Collection at construction time.
type collectionOptions struct {
	threadSafe       bool
	logger           *Logger
	metrics          MetricsCollector
	hnswOptions      []hnsw.Option
	embedConcurrency int
	embedRatePerSec  float64
}

// CollectionOption configures a Collection.
type CollectionOption func(*collectionOptions)

func defaultCollectionOptions() collectionOptions {
	return collectionOptions{
		threadSafe:       true,
		logger:           NoopLogger(),
		metrics:          NoopMetricsCollector{},
		embedConcurrency: 4,
		embedRatePerSec:  0, // 0 disables rate limiting
	}
}

// WithThreadSafety toggles the per-collection single-writer/multi-reader
// lock (spec §5). Disabling it is only safe when the caller externally
// synchronises access.
func WithThreadSafety(enabled bool) CollectionOption {
	return func(o *collectionOptions) { o.threadSafe = enabled }
}

// WithLogger sets the structured logger used for collection-level events.
func WithLogger(l *Logger) CollectionOption {
	return func(o *collectionOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector sets the metrics sink.
func WithMetricsCollector(m MetricsCollector) CollectionOption {
	return func(o *collectionOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithHNSWOptions forwards options to the underlying hnsw.Graph.
func WithHNSWOptions(opts ...hnsw.Option) CollectionOption {
	return func(o *collectionOptions) { o.hnswOptions = append(o.hnswOptions, opts...) }
}

// WithEmbedConcurrency bounds the number of concurrent embedder calls made
// by AddDocumentsAsync via a semaphore. SearchAsync and UpdateDocumentAsync
// call the embedder directly and are not bounded by it.
func WithEmbedConcurrency(n int) CollectionOption {
	return func(o *collectionOptions) {
		if n > 0 {
			o.embedConcurrency = n
		}
	}
}

// WithEmbedRateLimit throttles AddDocumentsAsync's embedder calls to r per
// second, with bursts up to the embed concurrency. r<=0 disables
// throttling. SearchAsync and UpdateDocumentAsync are not throttled.
func WithEmbedRateLimit(r float64) CollectionOption {
	return func(o *collectionOptions) { o.embedRatePerSec = r }
}

// toCollectionOptions applies opts over the defaults and converts the
// result into collection.Options, the shape the collection package
// actually consumes. Root's *Logger and MetricsCollector satisfy
// collection.Logger/collection.MetricsCollector structurally.
func toCollectionOptions(opts []CollectionOption) collection.Options {
	o := defaultCollectionOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return collection.Options{
		ThreadSafe:       o.threadSafe,
		HNSWOptions:      o.hnswOptions,
		EmbedConcurrency: o.embedConcurrency,
		EmbedRatePerSec:  o.embedRatePerSec,
		Logger:           o.logger,
		Metrics:          o.metrics,
	}
}
