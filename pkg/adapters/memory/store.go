package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/agentgraph/pkg/domain"
)

// Store implements ports.MemoryStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.SharedMemory
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.SharedMemory),
	}
}

// Save persists a copy of the memory, similar to serialization.
func (s *Store) Save(ctx context.Context, runID string, memory *domain.SharedMemory) error {
	copied := memory.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[runID] = copied
	return nil
}

// Load retrieves the memory.
func (s *Store) Load(ctx context.Context, runID string) (*domain.SharedMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memory, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}

	// Copy on read so the caller can't mutate stored memory by pointer
	return memory.Clone(), nil
}

// Delete removes the run.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns stored runs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.data))
	for id := range s.data {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	return runs, nil
}
