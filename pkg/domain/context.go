package domain

import (
	"context"
)

// ModelRuntime is the model capability a node context carries.
// It matches ports.LLM; it is declared here so the domain stays free of port imports.
type ModelRuntime interface {
	Complete(ctx context.Context, messages []Message, system string) (*Response, error)
}

// NodeContext binds a NodeSpec to the run's memory for exactly one invocation.
// Spec is shared and read-only; Memory is shared and read-write.
type NodeContext struct {
	Runtime ModelRuntime
	NodeID  string
	Spec    *NodeSpec
	Memory  *SharedMemory
}

// NewNodeContext creates a context for spec, using spec.ID as the node id.
func NewNodeContext(runtime ModelRuntime, spec *NodeSpec, memory *SharedMemory) *NodeContext {
	return &NodeContext{
		Runtime: runtime,
		NodeID:  spec.ID,
		Spec:    spec,
		Memory:  memory,
	}
}

// ResolveInputs returns the values for the node's input keys that are present in memory.
// Absent keys are omitted: optional inputs are legal.
func (c *NodeContext) ResolveInputs() map[string]any {
	out := make(map[string]any, len(c.Spec.InputKeys))
	for _, key := range c.Spec.InputKeys {
		if v, ok := c.Memory.Get(key); ok {
			out[key] = v
		}
	}
	return out
}
