package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/agentgraph/pkg/adapters/memory"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/aretw0/agentgraph/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	inner *memory.Store
	saves int
	mu    sync.Mutex
}

func newSlowStore() *SlowStore {
	return &SlowStore{inner: memory.NewStore()}
}

func (s *SlowStore) Save(ctx context.Context, runID string, m *domain.SharedMemory) error {
	time.Sleep(10 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.inner.Save(ctx, runID, m)
}

func (s *SlowStore) Load(ctx context.Context, runID string) (*domain.SharedMemory, error) {
	time.Sleep(10 * time.Millisecond) // Simulate IO
	return s.inner.Load(ctx, runID)
}

func (s *SlowStore) Delete(ctx context.Context, runID string) error {
	return s.inner.Delete(ctx, runID)
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return s.inner.List(ctx)
}

func TestManager_ReadModifyWriteIsSerialised(t *testing.T) {
	store := newSlowStore()
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	const writers = 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithRun(ctx, id, map[string]any{"count": 0}, func(ctx context.Context, m *domain.SharedMemory) error {
				v, _ := m.Get("count")
				m.Set("count", toInt(v)+1)
				return manager.Store().Save(ctx, id, m)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	m, err := manager.Load(ctx, id)
	require.NoError(t, err)
	v, _ := m.Get("count")
	assert.Equal(t, writers, toInt(v), "no update may be lost")
}

func TestManager_LoadOrCreate(t *testing.T) {
	store := newSlowStore()
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := manager.LoadOrCreate(ctx, id, map[string]any{"lead_name": "Acme"})
			assert.NoError(t, err)
			assert.NotNil(t, m)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.saves, "only the first caller creates the run")

	m, err := manager.Load(ctx, id)
	require.NoError(t, err)
	v, _ := m.Get("lead_name")
	assert.Equal(t, "Acme", v)
}

func TestManager_LoadMissing(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	_, err := manager.Load(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestManager_SaveListDelete(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, "b", domain.NewSharedMemory()))
	require.NoError(t, manager.Save(ctx, "a", domain.NewSharedMemory()))

	runs, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, runs)

	require.NoError(t, manager.Delete(ctx, "a"))
	runs, err = manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, runs)
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	ttl      time.Duration
	released int
	fail     error
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return nil, l.fail
	}
	l.locked = append(l.locked, key)
	l.ttl = ttl
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(5*time.Second))

	require.NoError(t, manager.Save(context.Background(), "r1", domain.NewSharedMemory()))

	assert.Equal(t, []string{"r1"}, locker.locked)
	assert.Equal(t, 5*time.Second, locker.ttl)
	assert.Equal(t, 1, locker.released)
}

func TestManager_DistributedLockerFailure(t *testing.T) {
	busy := errors.New("lock busy")
	manager := session.NewManager(memory.NewStore(), session.WithLocker(&recordingLocker{fail: busy}))

	err := manager.Save(context.Background(), "r1", domain.NewSharedMemory())
	assert.ErrorIs(t, err, busy)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
