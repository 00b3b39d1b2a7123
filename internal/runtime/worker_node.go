package runtime

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"sort"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/fence"
	"github.com/aretw0/agentgraph/pkg/ports"
)

// Function is a Go function exposed to "function" actions.
// It receives its own copy of the inputs.
type Function func(ctx context.Context, inputs map[string]any) (any, error)

// ActionHandler executes one action type on behalf of a WorkerNode.
type ActionHandler func(ctx context.Context, w *WorkerNode, nodeID string, action *domain.ActionSpec, inputs map[string]any) (*domain.ActionResult, error)

// placeholder matches {{key}} references in a prompt template.
var placeholder = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// WorkerNode performs ActionSpecs by dispatching on their type.
type WorkerNode struct {
	*settings
	llm ports.LLM
}

// NewWorkerNode creates a worker bound to llm. llm may be nil when only
// function actions are used.
func NewWorkerNode(llm ports.LLM, opts ...Option) *WorkerNode {
	w := &WorkerNode{llm: llm}
	defaults := []Option{
		WithActionHandler(domain.ActionLLMCall, llmCallHandler),
		WithActionHandler(domain.ActionFunction, functionHandler),
	}
	w.settings = newSettings(append(defaults, opts...))
	return w
}

// Execute performs action with the given resolved inputs.
func (w *WorkerNode) Execute(ctx context.Context, nodeID string, action *domain.ActionSpec, inputs map[string]any) (*domain.ActionResult, error) {
	if action == nil {
		return nil, &domain.NodeError{NodeID: nodeID, Err: fmt.Errorf("%w: worker has no action", domain.ErrUnknownActionType)}
	}

	handler, ok := w.handlers[action.Type]
	if !ok {
		w.logger.Error("no handler for action type", "node_id", nodeID, "action_type", action.Type)
		return nil, &domain.NodeError{
			NodeID:     nodeID,
			ActionType: action.Type,
			Err:        fmt.Errorf("%w: %q", domain.ErrUnknownActionType, action.Type),
		}
	}

	result, err := handler(ctx, w, nodeID, action, inputs)
	if err != nil {
		var nerr *domain.NodeError
		if errors.As(err, &nerr) {
			return nil, err
		}
		return nil, &domain.NodeError{NodeID: nodeID, ActionType: action.Type, Keys: sortedKeys(inputs), Err: err}
	}
	return result, nil
}

func llmCallHandler(ctx context.Context, w *WorkerNode, nodeID string, action *domain.ActionSpec, inputs map[string]any) (*domain.ActionResult, error) {
	return w.executeLLMCall(ctx, nodeID, action, inputs)
}

// executeLLMCall sends the action prompt with every input fenced as untrusted.
// Placeholders in the prompt become references into the fenced block.
func (w *WorkerNode) executeLLMCall(ctx context.Context, nodeID string, action *domain.ActionSpec, inputs map[string]any) (*domain.ActionResult, error) {
	if w.llm == nil {
		return nil, &domain.NodeError{NodeID: nodeID, ActionType: action.Type, Err: domain.ErrNilRuntime}
	}

	content := fence.FenceMap(ReferencePlaceholders(action.Prompt), fence.UntrustedInput, inputs)
	messages := []domain.Message{{Role: domain.RoleUser, Content: content}}

	w.logger.Debug("worker calling model", "node_id", nodeID, "action_type", action.Type, "input_keys", sortedKeys(inputs))

	resp, err := w.complete(ctx, w.llm, nodeID, action.Type, messages, action.SystemPrompt)
	if err != nil {
		return nil, err
	}
	return &domain.ActionResult{Type: action.Type, Raw: resp.Content, Output: resp.Content}, nil
}

func functionHandler(ctx context.Context, w *WorkerNode, nodeID string, action *domain.ActionSpec, inputs map[string]any) (*domain.ActionResult, error) {
	fn, ok := w.functions[action.Function]
	if !ok {
		return nil, &domain.NodeError{
			NodeID:     nodeID,
			ActionType: action.Type,
			Err:        fmt.Errorf("%w: %q", domain.ErrUnknownFunction, action.Function),
		}
	}

	out, err := fn(ctx, maps.Clone(inputs))
	if err != nil {
		return nil, err
	}
	return &domain.ActionResult{Type: action.Type, Output: out}, nil
}

// ReferencePlaceholders rewrites {{key}} to [input:key], the name under which the
// value appears in the fenced block.
func ReferencePlaceholders(template string) string {
	return placeholder.ReplaceAllString(template, "[input:$1]")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
