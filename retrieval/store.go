package retrieval

import (
	"sync"

	"github.com/hupe1980/tutormesh/core"
)

// Store persists document chunks per logical corpus. Chunks are append-only:
// once written, text and embedding are immutable, which permits concurrent
// readers during concurrent writers.
type Store interface {
	Append(corpus string, chunks []core.Chunk) error
	Chunks(corpus string) ([]core.Chunk, error)
	Count(corpus string) (int, error)
}

// InMemoryStore is a process-local Store keeping per-corpus chunk logs in
// insertion order. It is safe for concurrent access and returns defensive
// copies so callers cannot mutate stored chunks.
type InMemoryStore struct {
	mu      sync.RWMutex
	corpora map[string][]core.Chunk
}

// NewInMemoryStore constructs an empty in-memory chunk store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{corpora: make(map[string][]core.Chunk)}
}

// Append adds chunks to the corpus log preserving insertion order.
func (s *InMemoryStore) Append(corpus string, chunks []core.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpora[corpus] = append(s.corpora[corpus], chunks...)
	return nil
}

// Chunks returns a copy of the corpus log in insertion order.
func (s *InMemoryStore) Chunks(corpus string) ([]core.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.corpora[corpus]
	out := make([]core.Chunk, len(stored))
	copy(out, stored)
	return out, nil
}

// Count returns the number of chunks stored for the corpus.
func (s *InMemoryStore) Count(corpus string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.corpora[corpus]), nil
}
