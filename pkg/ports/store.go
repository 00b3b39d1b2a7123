package ports

import (
	"context"

	"github.com/aretw0/agentgraph/pkg/domain"
)

// MemoryStore defines the interface for persisting a run's shared memory.
// This allows for durable execution, enabling "Stop & Resume" workflows.
type MemoryStore interface {
	// Save persists the memory for a given run ID.
	Save(ctx context.Context, runID string, memory *domain.SharedMemory) error

	// Load retrieves the memory for a given run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.SharedMemory, error)

	// Delete removes the memory for a given run ID.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of all stored runs.
	List(ctx context.Context) ([]string, error)
}
