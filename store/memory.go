package store

import (
	"context"
	"sync"

	"github.com/Quartz/wp-graphql-persisted-queries/errors"
)

// MemoryStore is a thread-safe in-process Store with no eviction policy.
// It is the default backend and is suitable for single-process deployments
// and tests; shared backends (NATS KV, Redis) should be used across a fleet.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]PersistedQuery
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]PersistedQuery),
	}
}

// Get retrieves a stored query by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (PersistedQuery, bool, error) {
	if id == "" {
		return PersistedQuery{}, false, errors.WrapInvalid(errors.ErrInvalidData,
			"MemoryStore", "Get", "id cannot be empty")
	}

	s.mu.RLock()
	pq, exists := s.items[NormalizeID(id)]
	s.mu.RUnlock()

	return pq, exists, nil
}

// Put stores a query under the given ID. First writer wins.
func (s *MemoryStore) Put(_ context.Context, id, text, name string) error {
	if id == "" {
		return errors.WrapInvalid(errors.ErrInvalidData,
			"MemoryStore", "Put", "id cannot be empty")
	}

	key := NormalizeID(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[key]; exists {
		return nil
	}
	s.items[key] = PersistedQuery{ID: key, Text: text, Name: name}
	return nil
}

// Size returns the current number of stored queries.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var _ Store = (*MemoryStore)(nil)
