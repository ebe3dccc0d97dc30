// Package unichrome provides an embeddable vector database: documents are
// stored together with their dense embeddings and optional string metadata,
// and answered via approximate k-nearest-neighbour search over cosine
// distance, with optional post-filters over metadata and timestamps.
//
// The database façade in this file maps collection names to collection
// engines and owns the storage directory; the actual index lives in the
// hnsw package and the document/collection semantics live in the
// collection package.
package unichrome

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/pdeschain/unichrome/collection"
	"github.com/pdeschain/unichrome/embedder"
	"github.com/pdeschain/unichrome/metric"
)

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Database maps collection names to collection.Collection instances and
// owns the storage directory root. An empty Dir makes every collection
// created through it in-memory only.
type Database struct {
	mu  sync.RWMutex
	dir string

	logger  *Logger
	metrics MetricsCollector

	collections map[string]*collection.Collection
}

// Open opens (or creates, if dir does not yet exist) a database rooted at
// dir. Pass an empty dir for a purely in-memory database whose collections
// are never persisted.
func Open(dir string) (*Database, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("unichrome: create database directory: %w", err)
		}
	}

	return &Database{
		dir:         dir,
		logger:      NoopLogger(),
		metrics:     NoopMetricsCollector{},
		collections: make(map[string]*collection.Collection),
	}, nil
}

// WithDatabaseLogger sets the default logger handed to every collection
// this database creates or opens from this point forward. The Database
// itself logs no events.
func (db *Database) WithDatabaseLogger(l *Logger) *Database {
	db.logger = l
	return db
}

// WithDatabaseMetrics attaches a metrics collector shared by every
// collection this database creates from this point forward.
func (db *Database) WithDatabaseMetrics(m MetricsCollector) *Database {
	db.metrics = m
	return db
}

func validCollectionName(name string) bool {
	return name != "" && collectionNamePattern.MatchString(name)
}

// withDatabaseDefaults prepends the database's own logger/metrics so a
// caller's explicit options still take precedence (functional options
// apply in order, last write wins).
func (db *Database) withDatabaseDefaults(opts []CollectionOption) []CollectionOption {
	defaults := []CollectionOption{WithLogger(db.logger), WithMetricsCollector(db.metrics)}
	return append(defaults, opts...)
}

// CreateCollection creates a new, empty collection named name. Returns
// ErrAlreadyExists if the name is already in use by this Database instance
// or if persistent files for it already exist on disk.
func (db *Database) CreateCollection(name string, distFn metric.Func, embed embedder.Embedder, opts ...CollectionOption) (*collection.Collection, error) {
	if !validCollectionName(name) {
		return nil, fmt.Errorf("unichrome: invalid collection name %q", name)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.collections[name]; ok {
		return nil, ErrAlreadyExists
	}

	if db.dir != "" {
		if _, err := os.Stat(filepath.Join(db.dir, name+".db")); err == nil {
			return nil, ErrAlreadyExists
		}
	}

	collOpts := toCollectionOptions(db.withDatabaseDefaults(opts))

	var c *collection.Collection
	var err error
	if db.dir == "" {
		c = collection.New(name, distFn, embed, collOpts)
	} else {
		c, err = collection.Open(db.dir, name, distFn, embed, collOpts)
		if err != nil {
			return nil, err
		}
	}

	db.collections[name] = c
	return c, nil
}

// OpenCollection loads an existing persistent collection named name, or
// returns ErrNotFound if its on-disk files are absent. For an in-memory
// database (empty dir), OpenCollection only returns collections already
// created in this process.
func (db *Database) OpenCollection(name string, distFn metric.Func, embed embedder.Embedder, opts ...CollectionOption) (*collection.Collection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if c, ok := db.collections[name]; ok {
		return c, nil
	}

	if db.dir == "" {
		return nil, ErrNotFound
	}
	if _, err := os.Stat(filepath.Join(db.dir, name+".db")); err != nil {
		return nil, ErrNotFound
	}

	c, err := collection.Open(db.dir, name, distFn, embed, toCollectionOptions(db.withDatabaseDefaults(opts)))
	if err != nil {
		return nil, err
	}
	db.collections[name] = c
	return c, nil
}

// Collection returns an already-opened collection by name, or
// ErrNotFound.
func (db *Database) Collection(name string) (*collection.Collection, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	c, ok := db.collections[name]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// DropCollection removes a collection from the database's cache and
// deletes its persisted files, if any. Returns ErrNotFound if name was
// never opened in this Database instance.
func (db *Database) DropCollection(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.collections[name]
	if !ok {
		return ErrNotFound
	}
	if err := c.DeletePersistedStorage(); err != nil {
		return err
	}
	delete(db.collections, name)
	return nil
}

// CollectionNames returns the names of every collection currently open in
// this Database instance.
func (db *Database) CollectionNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	return names
}

// Persist persists every open collection to disk. A no-op for an
// in-memory database.
func (db *Database) Persist() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for name, c := range db.collections {
		if err := c.Persist(); err != nil {
			return fmt.Errorf("unichrome: persist collection %q: %w", name, err)
		}
	}
	return nil
}
