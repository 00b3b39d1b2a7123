package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// SharedMemory is the key/value store a single workflow run threads through its nodes.
// Iteration follows insertion order; overwriting a key keeps its original position.
//
// SharedMemory is not safe for concurrent use. A run owns its memory exclusively; drivers
// executing branches concurrently must serialize access (see session.Manager).
type SharedMemory struct {
	data *orderedmap.OrderedMap[string, any]
}

// NewSharedMemory creates an empty memory.
func NewSharedMemory() *SharedMemory {
	return &SharedMemory{data: orderedmap.New[string, any]()}
}

// NewSharedMemoryFrom seeds a memory from a plain map.
// Keys are inserted in sorted order so the resulting iteration order is deterministic.
func NewSharedMemoryFrom(values map[string]any) *SharedMemory {
	m := NewSharedMemory()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.data.Set(k, values[k])
	}
	return m
}

// Get returns the value stored under key and whether it was present.
func (m *SharedMemory) Get(key string) (any, bool) {
	return m.data.Get(key)
}

// Set stores value under key.
func (m *SharedMemory) Set(key string, value any) {
	m.data.Set(key, value)
}

// Delete removes key. It reports whether the key was present.
func (m *SharedMemory) Delete(key string) bool {
	_, present := m.data.Delete(key)
	return present
}

// Len returns the number of entries.
func (m *SharedMemory) Len() int {
	return m.data.Len()
}

// Keys returns all keys in insertion order.
func (m *SharedMemory) Keys() []string {
	keys := make([]string, 0, m.data.Len())
	for pair := m.data.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Range calls fn for every entry in insertion order until fn returns false.
func (m *SharedMemory) Range(fn func(key string, value any) bool) {
	for pair := m.data.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Apply writes every entry of values. Callers build the full batch before calling Apply,
// so a failed parse never leaves a partial write behind.
func (m *SharedMemory) Apply(values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.data.Set(k, values[k])
	}
}

// Snapshot returns a shallow copy of the memory as a plain map.
func (m *SharedMemory) Snapshot() map[string]any {
	out := make(map[string]any, m.data.Len())
	for pair := m.data.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// Clone returns an independent copy preserving order. Values are copied shallowly.
func (m *SharedMemory) Clone() *SharedMemory {
	c := NewSharedMemory()
	for pair := m.data.Oldest(); pair != nil; pair = pair.Next() {
		c.data.Set(pair.Key, pair.Value)
	}
	return c
}

// MarshalJSON encodes the memory as a JSON object in insertion order.
func (m *SharedMemory) MarshalJSON() ([]byte, error) {
	if m == nil || m.data == nil {
		return []byte("{}"), nil
	}
	return m.data.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, preserving the document's key order.
func (m *SharedMemory) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, any]()
	if err := json.Unmarshal(data, om); err != nil {
		return fmt.Errorf("failed to decode shared memory: %w", err)
	}
	m.data = om
	return nil
}
