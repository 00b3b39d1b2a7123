package domain

// NodeType discriminates the node variants the runtime knows how to execute.
type NodeType string

const (
	// NodeTypeLLMGenerate assembles a system prompt from the node's instructions plus its
	// fenced input data, calls the model and writes the parsed outputs back to memory.
	NodeTypeLLMGenerate NodeType = "llm_generate"

	// NodeTypeWorker executes the node's ActionSpec against inputs resolved from memory.
	NodeTypeWorker NodeType = "worker"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeLLMGenerate, NodeTypeWorker:
		return true
	}
	return false
}

// NodeSpec is the static, declarative description of one graph node.
// It is created at graph-definition time and never mutated afterwards.
type NodeSpec struct {
	ID          string   `json:"id" yaml:"id" mapstructure:"id"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	NodeType    NodeType `json:"node_type" yaml:"node_type" mapstructure:"node_type"`

	// InputKeys lists, in order, the memory keys the node reads.
	InputKeys []string `json:"input_keys,omitempty" yaml:"input_keys,omitempty" mapstructure:"input_keys"`
	// OutputKeys lists, in order, the memory keys the node writes.
	OutputKeys []string `json:"output_keys,omitempty" yaml:"output_keys,omitempty" mapstructure:"output_keys"`

	// SystemPrompt is trusted, author-controlled instruction text.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty" mapstructure:"system_prompt"`

	// Action is required for worker nodes and ignored otherwise.
	Action *ActionSpec `json:"action,omitempty" yaml:"action,omitempty" mapstructure:"action"`
}

// Label returns the human-facing name of the node, falling back to its ID.
func (n *NodeSpec) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}
