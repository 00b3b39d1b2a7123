package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/agentgraph/pkg/adapters/file"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.MemoryStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	store := file.NewStore(t.TempDir())
	ports.RunMemoryStoreContract(t, store)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(dir)

	memory := domain.NewSharedMemory()
	memory.Set("a", "b")
	require.NoError(t, store.Save(context.Background(), "r1", memory))
	require.NoError(t, store.Save(context.Background(), "r1", memory))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "r1.json", entries[0].Name())
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	store := file.NewStore(t.TempDir())
	err := store.Save(context.Background(), filepath.Join("..", "escape"), domain.NewSharedMemory())
	assert.Error(t, err)

	_, err = store.Load(context.Background(), "")
	assert.Error(t, err)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.NewStore(filepath.Join(t.TempDir(), "nope"))
	runs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}
