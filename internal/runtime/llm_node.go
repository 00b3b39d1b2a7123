package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/agentgraph/internal/parse"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/fence"
)

var errEmptyResponse = errors.New("model returned no response")

// NodeResult is the outcome of one LLMNode execution.
type NodeResult struct {
	NodeID  string
	Outputs map[string]any
	Raw     string
}

// LLMNode asks the model to produce a node's output keys from its inputs.
// It holds no per-run state and may be shared across runs.
type LLMNode struct {
	*settings
}

// NewLLMNode creates an LLMNode.
func NewLLMNode(opts ...Option) *LLMNode {
	return &LLMNode{settings: newSettings(opts)}
}

// BuildSystemPrompt returns the node's system prompt followed by its input values,
// fenced as data. Inputs keep their declared order; absent keys are skipped.
func (n *LLMNode) BuildSystemPrompt(nctx *domain.NodeContext) string {
	fields := make([]fence.Field, 0, len(nctx.Spec.InputKeys))
	for _, key := range nctx.Spec.InputKeys {
		if v, ok := nctx.Memory.Get(key); ok {
			fields = append(fields, fence.Field{Key: key, Value: v})
		}
	}
	return fence.Fence(nctx.Spec.SystemPrompt, fence.InputData, fields)
}

// Execute runs one model round trip and writes the outputs to memory.
// Outputs are written together or not at all.
func (n *LLMNode) Execute(ctx context.Context, nctx *domain.NodeContext) (*NodeResult, error) {
	if nctx.Runtime == nil {
		return nil, &domain.NodeError{NodeID: nctx.NodeID, Err: domain.ErrNilRuntime}
	}

	system := n.BuildSystemPrompt(nctx)
	messages := []domain.Message{{Role: domain.RoleUser, Content: outputInstruction(nctx.Spec.OutputKeys)}}

	n.logger.Debug("llm node calling model",
		"node_id", nctx.NodeID,
		"input_keys", nctx.Spec.InputKeys,
		"output_keys", nctx.Spec.OutputKeys)

	resp, err := n.complete(ctx, nctx.Runtime, nctx.NodeID, "", messages, system)
	if err != nil {
		return nil, &domain.NodeError{NodeID: nctx.NodeID, Keys: presentKeys(nctx), Err: err}
	}

	outputs, err := parseOutputs(nctx.NodeID, nctx.Spec.OutputKeys, resp.Content)
	if err != nil {
		n.logger.Warn("llm node output rejected", "node_id", nctx.NodeID, "err", err)
		return nil, err
	}

	nctx.Memory.Apply(outputs)
	return &NodeResult{NodeID: nctx.NodeID, Outputs: outputs, Raw: resp.Content}, nil
}

// outputInstruction is the trusted user turn asking for the output keys.
func outputInstruction(keys []string) string {
	switch len(keys) {
	case 0:
		return "Complete the task described in the system prompt."
	case 1:
		return fmt.Sprintf("Complete the task described in the system prompt. Respond with a JSON object with the key %q.", keys[0])
	}
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = fmt.Sprintf("%q", k)
	}
	return fmt.Sprintf("Complete the task described in the system prompt. Respond with a JSON object with the keys %s.", strings.Join(quoted, ", "))
}

// parseOutputs maps a response onto the declared output keys.
// A single key also accepts a plain-text response, stored verbatim.
func parseOutputs(nodeID string, keys []string, raw string) (map[string]any, error) {
	if len(keys) == 0 {
		return map[string]any{}, nil
	}

	obj, perr := parse.JSONObject(raw)
	if perr == nil {
		outputs := make(map[string]any, len(keys))
		var missing []string
		for _, key := range keys {
			v, ok := obj[key]
			if !ok {
				missing = append(missing, key)
				continue
			}
			outputs[key] = v
		}
		if len(missing) == 0 {
			return outputs, nil
		}
		if len(keys) > 1 {
			return nil, &domain.OutputParseError{NodeID: nodeID, Missing: missing, Raw: raw}
		}
	}

	if len(keys) == 1 {
		text := strings.TrimSpace(raw)
		if text == "" {
			return nil, &domain.OutputParseError{NodeID: nodeID, Missing: keys, Raw: raw, Err: errEmptyResponse}
		}
		return map[string]any{keys[0]: text}, nil
	}
	return nil, &domain.OutputParseError{NodeID: nodeID, Missing: keys, Raw: raw, Err: perr}
}

// presentKeys lists the node's input keys that resolved, for error reports.
func presentKeys(nctx *domain.NodeContext) []string {
	return sortedKeys(nctx.ResolveInputs())
}
