package domain

import (
	"reflect"
	"sort"
)

// MemoryDiff represents the changes a node made to a run's memory.
// It is designed to be serialized to JSON for partial updates on the client.
type MemoryDiff struct {
	// Changed contains added or modified keys with their new values.
	Changed map[string]any `json:"changed,omitempty"`

	// Deleted lists removed keys in sorted order.
	Deleted []string `json:"deleted,omitempty"`
}

// Diff calculates the difference between before and after.
// If before is nil, every entry of after is reported as changed (initial load).
// It returns nil when nothing changed.
func Diff(before, after *SharedMemory) *MemoryDiff {
	if after == nil {
		return nil
	}

	diff := &MemoryDiff{}
	changed := make(map[string]any)

	after.Range(func(k string, newVal any) bool {
		if before == nil {
			changed[k] = newVal
			return true
		}
		oldVal, exists := before.Get(k)
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			changed[k] = newVal
		}
		return true
	})

	if before != nil {
		before.Range(func(k string, _ any) bool {
			if _, exists := after.Get(k); !exists {
				diff.Deleted = append(diff.Deleted, k)
			}
			return true
		})
		sort.Strings(diff.Deleted)
	}

	if len(changed) > 0 {
		diff.Changed = changed
	}
	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// Keys returns the changed keys in sorted order.
func (d *MemoryDiff) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.Changed))
	for k := range d.Changed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *MemoryDiff) IsEmpty() bool {
	return d == nil || (len(d.Changed) == 0 && len(d.Deleted) == 0)
}
