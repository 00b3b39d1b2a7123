package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/agentgraph/pkg/adapters/redis"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ports.RunMemoryStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	runID := "run-ttl"

	memory := domain.NewSharedMemory()
	memory.Set("foo", "bar")
	require.NoError(t, store.Save(ctx, runID, memory))

	runs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, runs, runID)

	// Key expiry is driven by miniredis' clock
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, runID)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	// Index pruning compares against time.Now(), so wait past the TTL
	time.Sleep(1200 * time.Millisecond)

	runs, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "my-run", domain.NewSharedMemory()))

	assert.True(t, mr.Exists("custom:app:run:my-run"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:runs"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, "my-run")
}

func TestRedisStore_StoresOrderedJSON(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)

	memory := domain.NewSharedMemory()
	memory.Set("summary", "short")
	memory.Set("email", "draft")
	require.NoError(t, store.Save(context.Background(), "r1", memory))

	raw, err := mr.Get(redis.DefaultPrefix + "run:r1")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"short","email":"draft"}`, raw)
}

func TestRedisStore_RunKeysDoNotCollideWithIndex(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	for _, runID := range []string{"runs", "index", "lock:runs"} {
		memory := domain.NewSharedMemory()
		memory.Set("owner", runID)
		require.NoError(t, store.Save(ctx, runID, memory))
	}
	require.NoError(t, store.Save(ctx, "r2", domain.NewSharedMemory()))

	runs, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"runs", "index", "lock:runs", "r2"}, runs)

	loaded, err := store.Load(ctx, "runs")
	require.NoError(t, err)
	owner, _ := loaded.Get("owner")
	assert.Equal(t, "runs", owner)
}
