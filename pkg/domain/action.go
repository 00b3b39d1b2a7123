package domain

// ActionType tags the dispatch branch a worker node takes for an ActionSpec.
type ActionType string

// Standard Action Types
const (
	// ActionLLMCall sends the action's prompt plus the fenced inputs to the model.
	// Fields: Prompt (template), SystemPrompt.
	ActionLLMCall ActionType = "llm_call"

	// ActionFunction invokes a Go function registered on the worker.
	// Fields: Function (registered name).
	ActionFunction ActionType = "function"
)

// ActionSpec describes one unit of work a worker node performs.
// It is built by the graph layer and consumed once per worker invocation.
type ActionSpec struct {
	Type ActionType `json:"action_type" yaml:"action_type" mapstructure:"action_type"`

	// Prompt is a trusted template. Placeholders of the form {{key}} refer to input keys;
	// they are rewritten to references into the fenced input block, never to the values.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty" mapstructure:"prompt"`

	// SystemPrompt is trusted instruction text sent as the model's system string.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty" mapstructure:"system_prompt"`

	// Function names the registered function for ActionFunction.
	Function string `json:"function,omitempty" yaml:"function,omitempty" mapstructure:"function"`
}

// ActionResult is what a worker hands back to its caller.
type ActionResult struct {
	Type ActionType
	// Raw is the unparsed model response for LLM calls.
	Raw string
	// Output is stored under a single output key, or must supply every key when several are declared.
	Output any
}
