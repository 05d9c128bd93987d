package database

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mnohosten/clara-db/pkg/compression"
	"github.com/mnohosten/clara-db/pkg/document"
)

// DefaultIDField is the identifier field used unless configured otherwise
const DefaultIDField = "_id"

// Config holds database configuration
type Config struct {
	Name string

	// IDField is the identifier field name, "_id" when empty
	IDField string

	// Compression selects the document blob codec: "snappy" (default),
	// "zstd" or "none"
	Compression string

	// CompressionLevel applies to zstd only
	CompressionLevel int
}

// DefaultConfig returns the default configuration for a database name
func DefaultConfig(name string) *Config {
	return &Config{Name: name}
}

// Database owns named collections, creating them lazily
type Database struct {
	name       string
	idField    string
	compressor *compression.Compressor

	collections map[string]*Collection
	mu          sync.RWMutex
	closed      bool
}

// Open creates a database from the configuration
func Open(config *Config) (*Database, error) {
	if config == nil {
		config = DefaultConfig("test")
	}

	algorithm, err := compression.ParseAlgorithm(config.Compression)
	if err != nil {
		return nil, err
	}
	compressorConfig := &compression.Config{Algorithm: algorithm, Level: config.CompressionLevel}
	if algorithm == compression.AlgorithmZstd && config.CompressionLevel == 0 {
		compressorConfig = compression.ZstdConfig(0)
	}
	compressor, err := compression.NewCompressor(compressorConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}

	idField := config.IDField
	if idField == "" {
		idField = DefaultIDField
	}

	name := config.Name
	if name == "" {
		name = "test"
	}

	return &Database{
		name:        name,
		idField:     idField,
		compressor:  compressor,
		collections: make(map[string]*Collection),
	}, nil
}

// Name returns the database name
func (db *Database) Name() string {
	return db.name
}

// Collection returns the named collection, creating it on first use
func (db *Database) Collection(name string) *Collection {
	db.mu.RLock()
	coll, exists := db.collections[name]
	db.mu.RUnlock()
	if exists {
		return coll
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if coll, exists = db.collections[name]; exists {
		return coll
	}
	if db.closed {
		return nil
	}

	store := NewMemoryStore(db.compressor)
	coll = NewCollection(db.name, name, db.idField, store)
	db.collections[name] = coll
	return coll
}

// ListCollections returns the collection names in sorted order
func (db *Database) ListCollections() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasCollection reports whether the named collection exists
func (db *Database) HasCollection(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, exists := db.collections[name]
	return exists
}

// DropCollection removes the named collection and all its documents
func (db *Database) DropCollection(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.collections[name]; !exists {
		return ErrCollectionNotFound
	}
	delete(db.collections, name)
	return nil
}

// Stats returns database-wide statistics
func (db *Database) Stats() *document.Document {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var objects int
	var dataSize int64
	for _, coll := range db.collections {
		objects += coll.CountAll()
		dataSize += coll.DataSize()
	}

	response := document.New()
	response.Set("db", db.name)
	response.Set("collections", int32(len(db.collections)))
	response.Set("objects", int32(objects))
	response.Set("dataSize", dataSize)
	response.Set("ok", int32(1))
	return response
}

// Close releases database resources
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseClosed
	}
	db.closed = true
	db.collections = make(map[string]*Collection)
	return db.compressor.Close()
}
