package session

import (
	"fmt"
	"sync"

	"github.com/hupe1980/tutormesh/core"
)

// Store persists session snapshots. Implementations must make
// Load(Save(snap)) round-trip exactly; everything else about the storage
// format is theirs to choose.
type Store interface {
	// Save writes the snapshot, replacing any previous one for the same id.
	Save(snap Snapshot) error
	// Load returns the snapshot for id, or an error wrapping
	// core.ErrSessionNotFound when none exists.
	Load(id string) (Snapshot, error)
	// IDs returns the ids of all stored sessions.
	IDs() ([]string, error)
}

// InMemoryStore keeps snapshots in a map, serialized as JSON so storage
// shares the exact round-trip contract of durable implementations. Safe for
// concurrent use.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewInMemoryStore creates an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

// Save implements Store.
func (s *InMemoryStore) Save(snap Snapshot) error {
	data, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[snap.ID] = data
	return nil
}

// Load implements Store.
func (s *InMemoryStore) Load(id string) (Snapshot, error) {
	s.mu.RLock()
	data, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	return UnmarshalSnapshot(data)
}

// IDs implements Store.
func (s *InMemoryStore) IDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.blobs))
	for id := range s.blobs {
		ids = append(ids, id)
	}
	return ids, nil
}
