package override

import (
	"context"
	"fmt"
	"sync"
)

// Store persists overrides keyed by KLARA article id.
type Store interface {
	// Get returns the override for id, or nil without error when none exists.
	Get(ctx context.Context, id string) (*Override, error)
	// GetMany returns the overrides that exist for ids. Missing ids are absent from the map.
	GetMany(ctx context.Context, ids []string) (map[string]*Override, error)
	// Save replaces the override for ov.ArticleID.
	Save(ctx context.Context, ov *Override) error
	// Delete removes the override for id. It is a no-op if none exists.
	Delete(ctx context.Context, id string) error
}

// InMemoryStore is a thread-safe, in-memory Store. It is primarily intended
// for local development and testing. Overrides are deep-copied on the way in
// and out, so callers never share slices or pointers with the store.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]*Override
}

// NewInMemoryStore creates an empty in-memory override store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]*Override)}
}

// Get returns a copy of the stored override.
func (s *InMemoryStore) Get(_ context.Context, id string) (*Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[id].Clone(), nil
}

// GetMany returns copies of the overrides that exist for ids.
func (s *InMemoryStore) GetMany(_ context.Context, ids []string) (map[string]*Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Override, len(ids))
	for _, id := range ids {
		if ov, ok := s.data[id]; ok {
			out[id] = ov.Clone()
		}
	}
	return out, nil
}

// Save stores a copy of ov.
func (s *InMemoryStore) Save(_ context.Context, ov *Override) error {
	if ov == nil || ov.ArticleID == "" {
		return fmt.Errorf("%w: articleId is required", ErrInvalidOverride)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ov.ArticleID] = ov.Clone()
	return nil
}

// Delete removes the override for id.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}
