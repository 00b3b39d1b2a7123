package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunMemoryStoreContract runs a suite of tests to verify that a MemoryStore implementation
// adheres to the defined interface contract.
func RunMemoryStoreContract(t *testing.T, store MemoryStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		memory := domain.NewSharedMemory()
		memory.Set("lead_name", "Acme")
		memory.Set("count", 42)
		memory.Set("notes", "Follow up")

		err := store.Save(ctx, runID, memory)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")

		v, ok := loaded.Get("lead_name")
		require.True(t, ok)
		assert.Equal(t, "Acme", v)
		// JSON persistence may turn ints into float64; only presence is part of the contract.
		_, ok = loaded.Get("count")
		assert.True(t, ok)
		assert.Equal(t, []string{"lead_name", "count", "notes"}, loaded.Keys(), "insertion order must survive persistence")
	})

	t.Run("Load Returns Independent Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		loaded.Set("lead_name", "mutated")

		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		v, _ := again.Get("lead_name")
		assert.Equal(t, "Acme", v)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, runID, domain.NewSharedMemory())
		require.NoError(t, err)

		err = store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, id1, domain.NewSharedMemory())
		_ = store.Save(ctx, id2, domain.NewSharedMemory())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
