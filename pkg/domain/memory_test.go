package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedMemory_GetSet(t *testing.T) {
	m := domain.NewSharedMemory()

	_, ok := m.Get("missing")
	assert.False(t, ok, "absent key should report not present")

	m.Set("lead_name", "Acme")
	v, ok := m.Get("lead_name")
	require.True(t, ok)
	assert.Equal(t, "Acme", v)
	assert.Equal(t, 1, m.Len())

	assert.True(t, m.Delete("lead_name"))
	assert.False(t, m.Delete("lead_name"))
	assert.Equal(t, 0, m.Len())
}

func TestSharedMemory_InsertionOrder(t *testing.T) {
	m := domain.NewSharedMemory()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("c", 3)
	m.Set("b", 4) // overwrite keeps position

	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())

	var visited []string
	m.Range(func(k string, _ any) bool {
		visited = append(visited, k)
		return k != "a"
	})
	assert.Equal(t, []string{"b", "a"}, visited, "Range should stop when fn returns false")
}

func TestSharedMemory_FromMapIsSorted(t *testing.T) {
	m := domain.NewSharedMemoryFrom(map[string]any{"notes": "x", "lead_name": "y", "id": 1})
	assert.Equal(t, []string{"id", "lead_name", "notes"}, m.Keys())
}

func TestSharedMemory_ApplyAndSnapshot(t *testing.T) {
	m := domain.NewSharedMemory()
	m.Set("existing", true)
	m.Apply(map[string]any{"summary": "ok", "score": 3})

	snap := m.Snapshot()
	assert.Equal(t, map[string]any{"existing": true, "summary": "ok", "score": 3}, snap)

	// Snapshot is a copy
	snap["existing"] = false
	v, _ := m.Get("existing")
	assert.Equal(t, true, v)
}

func TestSharedMemory_Clone(t *testing.T) {
	m := domain.NewSharedMemory()
	m.Set("a", 1)
	c := m.Clone()
	c.Set("b", 2)

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []string{"a", "b"}, c.Keys())
}

func TestSharedMemory_JSONRoundTripKeepsOrder(t *testing.T) {
	m := domain.NewSharedMemory()
	m.Set("z", "last-alpha")
	m.Set("a", "first-alpha")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last-alpha","a":"first-alpha"}`, string(data))

	restored := domain.NewSharedMemory()
	require.NoError(t, json.Unmarshal(data, restored))
	assert.Equal(t, []string{"z", "a"}, restored.Keys())
}

func TestNodeContext_ResolveInputs(t *testing.T) {
	spec := &domain.NodeSpec{ID: "n1", InputKeys: []string{"lead_name", "optional"}}
	mem := domain.NewSharedMemoryFrom(map[string]any{"lead_name": "Acme", "other": "ignored"})

	nctx := domain.NewNodeContext(nil, spec, mem)
	assert.Equal(t, "n1", nctx.NodeID)
	assert.Equal(t, map[string]any{"lead_name": "Acme"}, nctx.ResolveInputs())
}
