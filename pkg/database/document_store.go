package database

import (
	"fmt"
	"sync"

	"github.com/mnohosten/clara-db/pkg/compression"
	"github.com/mnohosten/clara-db/pkg/document"
)

// DocumentStore abstracts the blob storage behind a collection: insert a
// document and get back an opaque key, fetch by key. Fetch returns a fresh
// decoded copy, so callers always see a consistent snapshot that later
// mutations cannot reach into.
type DocumentStore interface {
	// Insert stores a document and returns its key
	Insert(doc *document.Document) (uint64, error)

	// Fetch returns a fresh copy of the document under key
	Fetch(key uint64) (*document.Document, error)

	// Replace swaps the stored content under key
	Replace(key uint64, doc *document.Document) error

	// Remove drops the document under key
	Remove(key uint64) error

	// Keys returns all live keys in insertion order
	Keys() []uint64

	// Count returns the number of live documents
	Count() int
}

// MemoryStore keeps documents in memory as per-document compressed BSON
// blobs
type MemoryStore struct {
	seq        uint64
	blobs      map[uint64][]byte
	order      []uint64
	compressor *compression.Compressor
	mu         sync.RWMutex
}

// NewMemoryStore creates an in-memory store using the given compressor
func NewMemoryStore(compressor *compression.Compressor) *MemoryStore {
	return &MemoryStore{
		blobs:      make(map[uint64][]byte),
		compressor: compressor,
	}
}

func (s *MemoryStore) encode(doc *document.Document) ([]byte, error) {
	data, err := document.NewEncoder().Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	compressed, err := s.compressor.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("failed to compress document: %w", err)
	}
	return compressed, nil
}

func (s *MemoryStore) decode(blob []byte) (*document.Document, error) {
	data, err := s.compressor.Decompress(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress document: %w", err)
	}
	doc, err := document.NewDecoder(data).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// Insert stores a document and returns its key
func (s *MemoryStore) Insert(doc *document.Document) (uint64, error) {
	blob, err := s.encode(doc)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	key := s.seq
	s.blobs[key] = blob
	s.order = append(s.order, key)
	return key, nil
}

// Fetch returns a fresh copy of the document under key
func (s *MemoryStore) Fetch(key uint64) (*document.Document, error) {
	s.mu.RLock()
	blob, exists := s.blobs[key]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("document not found: %d", key)
	}
	return s.decode(blob)
}

// Replace swaps the stored content under key
func (s *MemoryStore) Replace(key uint64, doc *document.Document) error {
	blob, err := s.encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blobs[key]; !exists {
		return fmt.Errorf("document not found: %d", key)
	}
	s.blobs[key] = blob
	return nil
}

// Remove drops the document under key
func (s *MemoryStore) Remove(key uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blobs[key]; !exists {
		return fmt.Errorf("document not found: %d", key)
	}
	delete(s.blobs, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Keys returns all live keys in insertion order
func (s *MemoryStore) Keys() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]uint64, len(s.order))
	copy(keys, s.order)
	return keys
}

// Count returns the number of live documents
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
