package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkordes/trip-planner/internal/domain"
)

// memoryStore keeps drafts in process memory. Drafts are stored as JSON so a
// caller can never alias the stored value.
type memoryStore struct {
	mu     sync.RWMutex
	drafts map[string][]byte
}

// NewMemoryStore returns a DraftStore that lives as long as the process.
func NewMemoryStore() DraftStore {
	return &memoryStore{drafts: make(map[string][]byte)}
}

func (s *memoryStore) Load(_ context.Context, key string) (domain.Trip, error) {
	s.mu.RLock()
	b, ok := s.drafts[key]
	s.mu.RUnlock()
	if !ok {
		return domain.Trip{}, fmt.Errorf("repo.MemoryStore.Load: %w", domain.ErrNotFound)
	}
	t, err := decodeTrip(b)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.MemoryStore.Load: %w", err)
	}
	return t, nil
}

func (s *memoryStore) Save(_ context.Context, key string, trip domain.Trip) error {
	b, err := encodeTrip(trip)
	if err != nil {
		return fmt.Errorf("repo.MemoryStore.Save: %w", err)
	}
	s.mu.Lock()
	s.drafts[key] = b
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[key]; !ok {
		return fmt.Errorf("repo.MemoryStore.Delete: %w", domain.ErrNotFound)
	}
	delete(s.drafts, key)
	return nil
}
