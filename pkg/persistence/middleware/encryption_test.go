package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/agentgraph/pkg/adapters/memory"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/persistence/middleware"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, next ports.MemoryStore, cfg middleware.EncryptionConfig) ports.MemoryStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunMemoryStoreContract(t, encrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	mem := domain.NewSharedMemory()
	mem.Set("lead_name", "Acme")
	mem.Set("secret", "my-secret-sauce")
	require.NoError(t, secure.Save(ctx, "run-1", mem))

	stored, err := underlying.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{middleware.EnvelopeKey}, stored.Keys())

	loaded, err := secure.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"lead_name", "secret"}, loaded.Keys())
	v, _ := loaded.Get("secret")
	assert.Equal(t, "my-secret-sauce", v)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	oldStore := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	mem := domain.NewSharedMemory()
	mem.Set("data", "encrypted-with-old-key")
	require.NoError(t, oldStore.Save(ctx, "rotation", mem))

	newStore := encrypted(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	loaded, err := newStore.Load(ctx, "rotation")
	require.NoError(t, err)
	v, _ := loaded.Get("data")
	assert.Equal(t, "encrypted-with-old-key", v)

	loaded.Set("data", "encrypted-with-new-key")
	require.NoError(t, newStore.Save(ctx, "rotation", loaded))

	_, err = oldStore.Load(ctx, "rotation")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_RefusesPlainMemory(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	plain := domain.NewSharedMemory()
	plain.Set("lead_name", "Acme")
	require.NoError(t, underlying.Save(ctx, "legacy", plain))

	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := secure.Load(ctx, "legacy")
	assert.ErrorContains(t, err, "envelope")
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}
