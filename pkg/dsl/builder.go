package dsl

import (
	"github.com/aretw0/agentgraph/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	name  string
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph. Nodes run in the order they are first added.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.NodeSpec{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build assembles and validates the graph.
func (b *Builder) Build() (*domain.Graph, error) {
	g := &domain.Graph{
		Name:  b.name,
		Nodes: make([]domain.NodeSpec, 0, len(b.order)),
	}
	for _, id := range b.order {
		g.Nodes = append(g.Nodes, b.nodes[id].spec())
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
