package dsl

import "github.com/aretw0/agentgraph/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.NodeSpec
	builder *Builder
}

// Name sets the human-readable name.
func (n *NodeBuilder) Name(name string) *NodeBuilder {
	n.node.Name = name
	return n
}

// Describe sets the node description.
func (n *NodeBuilder) Describe(description string) *NodeBuilder {
	n.node.Description = description
	return n
}

// Generate makes this an LLM node driven by systemPrompt.
func (n *NodeBuilder) Generate(systemPrompt string) *NodeBuilder {
	n.node.NodeType = domain.NodeTypeLLMGenerate
	n.node.SystemPrompt = systemPrompt
	n.node.Action = nil
	return n
}

// Call makes this a worker that sends prompt to the model.
// Placeholders like {{key}} refer to input keys.
func (n *NodeBuilder) Call(prompt, systemPrompt string) *NodeBuilder {
	return n.action(&domain.ActionSpec{
		Type:         domain.ActionLLMCall,
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
	})
}

// Function makes this a worker that runs a registered Go function.
func (n *NodeBuilder) Function(name string) *NodeBuilder {
	return n.action(&domain.ActionSpec{
		Type:     domain.ActionFunction,
		Function: name,
	})
}

// Action makes this a worker with an arbitrary action spec.
func (n *NodeBuilder) Action(action domain.ActionSpec) *NodeBuilder {
	return n.action(&action)
}

func (n *NodeBuilder) action(action *domain.ActionSpec) *NodeBuilder {
	n.node.NodeType = domain.NodeTypeWorker
	n.node.SystemPrompt = ""
	n.node.Action = action
	return n
}

// Reads appends input keys.
func (n *NodeBuilder) Reads(keys ...string) *NodeBuilder {
	n.node.InputKeys = append(n.node.InputKeys, keys...)
	return n
}

// Writes appends output keys.
func (n *NodeBuilder) Writes(keys ...string) *NodeBuilder {
	n.node.OutputKeys = append(n.node.OutputKeys, keys...)
	return n
}

// Then starts the next node; a shorthand for returning to the graph builder.
func (n *NodeBuilder) Then(id string) *NodeBuilder {
	return n.builder.Add(id)
}

func (n *NodeBuilder) spec() domain.NodeSpec {
	spec := n.node
	spec.InputKeys = append([]string(nil), n.node.InputKeys...)
	spec.OutputKeys = append([]string(nil), n.node.OutputKeys...)
	if n.node.Action != nil {
		action := *n.node.Action
		spec.Action = &action
	}
	return spec
}
