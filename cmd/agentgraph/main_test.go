package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/agentgraph/internal/config"
	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "agentgraph version "+versionString())
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "--graph", filepath.Join("..", "..", "examples", "lead-followup", "graph.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, `Graph "lead-followup" is valid (2 nodes).`)
	assert.Contains(t, out, "Inputs:  lead_name, notes")
	assert.Contains(t, out, "Outputs: summary, priority, email")
}

func TestValidateCommand_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: bad
nodes:
  - id: a
    node_type: llm_generate
    output_keys: [x]
  - id: b
    node_type: llm_generate
    output_keys: [x]
`), 0o644))

	_, err := execute(t, "validate", "--graph", path)
	assert.ErrorContains(t, err, "validation failed")
}

func TestOpenStore_EncryptedFileStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.StoreFile
	cfg.Store.Dir = t.TempDir()
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	cfg.Store.Redact = []string{"(?i)email"}

	a := &app{cfg: cfg, logger: logging.NewNop()}
	require.NoError(t, a.openStore())

	ctx := context.Background()
	mem := domain.NewSharedMemory()
	mem.Set("lead_email", "ceo@acme.test")
	mem.Set("summary", "wants enterprise")
	require.NoError(t, a.store.Save(ctx, "run-1", mem))

	raw, err := os.ReadFile(filepath.Join(cfg.Store.Dir, "run-1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), middleware.EnvelopeKey)
	assert.NotContains(t, string(raw), "enterprise")

	loaded, err := a.store.Load(ctx, "run-1")
	require.NoError(t, err)
	v, _ := loaded.Get("lead_email")
	assert.Equal(t, middleware.Mask, v)
}

func TestOpenStore_BadKey(t *testing.T) {
	cfg := config.Default()
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))

	a := &app{cfg: cfg, logger: logging.NewNop()}
	assert.ErrorIs(t, a.openStore(), middleware.ErrInvalidKey)
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph", "--graph", filepath.Join("..", "..", "examples", "lead-followup", "graph.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, `summarize -- "summary" --> draft`)
}
