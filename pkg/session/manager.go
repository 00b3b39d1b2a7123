package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed run lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates run access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.MemoryStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL requested from the distributed locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager with the given persistence store.
func NewManager(store ports.MemoryStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(runID) after unlocking.
func (m *Manager) acquire(runID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		entry = &lockEntry{}
		m.locks[runID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, runID)
	}
}

// Load retrieves an existing run's memory.
func (m *Manager) Load(ctx context.Context, runID string) (*domain.SharedMemory, error) {
	var memory *domain.SharedMemory
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		memory, err = m.store.Load(ctx, runID)
		return err
	})
	return memory, err
}

// LoadOrCreate loads a run's memory. A missing run is created from seed and persisted
// immediately to reserve the ID.
func (m *Manager) LoadOrCreate(ctx context.Context, runID string, seed map[string]any) (*domain.SharedMemory, error) {
	var memory *domain.SharedMemory
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		memory, err = m.loadOrCreateLocked(ctx, runID, seed)
		return err
	})
	return memory, err
}

// loadOrCreateLocked is LoadOrCreate for callers already inside WithLock.
func (m *Manager) loadOrCreateLocked(ctx context.Context, runID string, seed map[string]any) (*domain.SharedMemory, error) {
	memory, err := m.store.Load(ctx, runID)
	if err == nil {
		return memory, nil
	}
	if !errors.Is(err, domain.ErrRunNotFound) {
		return nil, fmt.Errorf("failed to check run existence: %w", err)
	}

	memory = domain.NewSharedMemoryFrom(seed)
	if err := m.store.Save(ctx, runID, memory); err != nil {
		return nil, fmt.Errorf("failed to initialize run: %w", err)
	}
	return memory, nil
}

// Save persists the run's memory.
func (m *Manager) Save(ctx context.Context, runID string, memory *domain.SharedMemory) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.store.Save(ctx, runID, memory)
	})
}

// Delete removes the run from the store.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.store.Delete(ctx, runID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying memory store.
// Code running inside WithLock must use it directly; the Manager's own methods would deadlock.
func (m *Manager) Store() ports.MemoryStore {
	return m.store
}

// WithRun holds the run lock while fn works on the run's memory, creating it from
// seed if needed.
func (m *Manager) WithRun(ctx context.Context, runID string, seed map[string]any, fn func(context.Context, *domain.SharedMemory) error) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		memory, err := m.loadOrCreateLocked(ctx, runID, seed)
		if err != nil {
			return err
		}
		return fn(ctx, memory)
	})
}

// WithLock executes a function while holding the lock for the run.
func (m *Manager) WithLock(ctx context.Context, runID string, fn func(context.Context) error) error {
	entry := m.acquire(runID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(runID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, runID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The run's ctx may already be canceled; releasing must still be attempted.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"run_id", runID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
