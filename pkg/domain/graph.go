package domain

import (
	"fmt"
	"strings"
)

// Graph is an ordered set of nodes. Nodes run in declaration order.
type Graph struct {
	Name  string     `json:"name" yaml:"name" mapstructure:"name"`
	Nodes []NodeSpec `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*NodeSpec, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// Validate checks the graph for authoring defects.
// Two nodes declaring the same output key are rejected rather than resolved by
// last-write-wins, since the winner would depend on execution order.
func (g *Graph) Validate() error {
	var problems []string
	ids := make(map[string]bool)
	writers := make(map[string]string)

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID == "" {
			problems = append(problems, fmt.Sprintf("node #%d missing id", i))
			continue
		}
		if ids[n.ID] {
			problems = append(problems, fmt.Sprintf("duplicate node id %q", n.ID))
		}
		ids[n.ID] = true

		if !n.NodeType.Valid() {
			problems = append(problems, fmt.Sprintf("node %q has unknown node_type %q", n.ID, n.NodeType))
		}
		if n.NodeType == NodeTypeWorker && n.Action == nil {
			problems = append(problems, fmt.Sprintf("worker node %q missing action", n.ID))
		}

		for _, key := range n.OutputKeys {
			if strings.TrimSpace(key) == "" {
				problems = append(problems, fmt.Sprintf("node %q declares an empty output key", n.ID))
				continue
			}
			if owner, taken := writers[key]; taken {
				problems = append(problems, fmt.Sprintf("output key %q written by both %q and %q", key, owner, n.ID))
				continue
			}
			writers[key] = n.ID
		}
	}

	if len(problems) > 0 {
		return &GraphError{Problems: problems}
	}
	return nil
}

// InputKeys returns the keys some node reads but no node writes, in first-read order.
// These are the values a caller must seed a run with.
func (g *Graph) InputKeys() []string {
	written := make(map[string]bool)
	for _, n := range g.Nodes {
		for _, k := range n.OutputKeys {
			written[k] = true
		}
	}

	seen := make(map[string]bool)
	var keys []string
	for _, n := range g.Nodes {
		for _, k := range n.InputKeys {
			if written[k] || seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// OutputKeys returns every key written by a node, in declaration order.
func (g *Graph) OutputKeys() []string {
	var keys []string
	for _, n := range g.Nodes {
		keys = append(keys, n.OutputKeys...)
	}
	return keys
}
