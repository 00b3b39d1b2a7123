package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadGraph reads a graph definition (YAML or JSON) and validates it.
func LoadGraph(path string) (*domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	graph, err := ParseGraph(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if graph.Name == "" {
		graph.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return graph, nil
}

// ParseGraph decodes a graph document. YAML is a superset of JSON, so both are accepted.
// Decoding goes through a generic map so unknown keys are reported instead of ignored.
func ParseGraph(data []byte) (*domain.Graph, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("graph document is empty")
	}

	var graph domain.Graph
	var meta mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         &meta,
		Result:           &graph,
		WeaklyTypedInput: false,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	if len(meta.Unused) > 0 {
		return nil, fmt.Errorf("unknown graph fields: %s", strings.Join(meta.Unused, ", "))
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return &graph, nil
}
