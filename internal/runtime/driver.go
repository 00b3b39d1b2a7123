package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
)

// Checkpoint persists memory after a node has run.
type Checkpoint func(ctx context.Context, nodeID string, memory *domain.SharedMemory) error

// RunReport summarises one pass over a graph.
type RunReport struct {
	RunID     string
	Completed []string
	// Rejected holds nodes whose output could not fill their output keys. Nothing was written for them.
	Rejected []*domain.OutputParseError
	Diff     *domain.MemoryDiff
}

// Driver runs a graph's nodes in declaration order against one memory.
// Callers serialise runs that share a memory.
type Driver struct {
	*settings
	graph   *domain.Graph
	llm     ports.LLM
	llmNode *LLMNode
	worker  *WorkerNode
}

// NewDriver validates graph and prepares the nodes it needs.
func NewDriver(graph *domain.Graph, llm ports.LLM, opts ...Option) (*Driver, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is nil")
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		settings: newSettings(opts),
		graph:    graph,
		llm:      llm,
		llmNode:  NewLLMNode(opts...),
		worker:   NewWorkerNode(llm, opts...),
	}, nil
}

// Graph returns the graph the driver runs.
func (d *Driver) Graph() *domain.Graph {
	return d.graph
}

// Run executes every node once. Output parse failures are recorded in the report and the
// run continues; any other node failure stops the run and is returned with the partial report.
func (d *Driver) Run(ctx context.Context, runID string, memory *domain.SharedMemory) (*RunReport, error) {
	ctx = ContextWithRunID(ctx, runID)
	logger := d.logger.With("run_id", runID)
	before := memory.Clone()
	report := &RunReport{RunID: runID}

	defer func() {
		report.Diff = domain.Diff(before, memory)
	}()

	for i := range d.graph.Nodes {
		spec := &d.graph.Nodes[i]
		if err := ctx.Err(); err != nil {
			return report, err
		}

		d.emitNodeEnter(ctx, spec)
		err := d.runNode(ctx, spec, memory)
		d.emitNodeLeave(ctx, spec, err)

		var perr *domain.OutputParseError
		switch {
		case errors.As(err, &perr):
			logger.Warn("node output rejected", "node_id", spec.ID, "missing", perr.Missing)
			report.Rejected = append(report.Rejected, perr)
		case err != nil:
			logger.Error("node failed", "node_id", spec.ID, "recoverable", domain.IsRecoverable(err), "err", err)
			return report, err
		default:
			report.Completed = append(report.Completed, spec.ID)
		}

		if d.checkpoint != nil {
			if err := d.checkpoint(ctx, spec.ID, memory); err != nil {
				return report, fmt.Errorf("checkpoint after node %q: %w", spec.ID, err)
			}
		}
	}

	logger.Info("run finished", "completed", len(report.Completed), "rejected", len(report.Rejected))
	return report, nil
}

func (d *Driver) runNode(ctx context.Context, spec *domain.NodeSpec, memory *domain.SharedMemory) error {
	var model domain.ModelRuntime
	if d.llm != nil {
		model = d.llm
	}
	nctx := domain.NewNodeContext(model, spec, memory)

	switch spec.NodeType {
	case domain.NodeTypeLLMGenerate:
		_, err := d.llmNode.Execute(ctx, nctx)
		return err
	case domain.NodeTypeWorker:
		result, err := d.worker.Execute(ctx, spec.ID, spec.Action, nctx.ResolveInputs())
		if err != nil {
			return err
		}
		return storeActionOutput(spec, result, memory)
	default:
		return &domain.NodeError{NodeID: spec.ID, Err: fmt.Errorf("unknown node type %q", spec.NodeType)}
	}
}

// storeActionOutput writes a worker result. With one declared output key the whole
// output is stored under it. With several, the output must supply every key: a map
// result is used as is and a text result is parsed as a JSON object. Nothing is written
// unless all keys are present.
func storeActionOutput(spec *domain.NodeSpec, result *domain.ActionResult, memory *domain.SharedMemory) error {
	if len(spec.OutputKeys) == 0 || result == nil {
		return nil
	}
	if len(spec.OutputKeys) == 1 {
		memory.Set(spec.OutputKeys[0], result.Output)
		return nil
	}

	var values map[string]any
	switch out := result.Output.(type) {
	case map[string]any:
		values = make(map[string]any, len(spec.OutputKeys))
		var missing []string
		for _, key := range spec.OutputKeys {
			v, present := out[key]
			if !present {
				missing = append(missing, key)
				continue
			}
			values[key] = v
		}
		if len(missing) > 0 {
			return &domain.OutputParseError{NodeID: spec.ID, Missing: missing, Raw: rawOutput(result)}
		}
	case string:
		parsed, err := parseOutputs(spec.ID, spec.OutputKeys, out)
		if err != nil {
			return err
		}
		values = parsed
	default:
		return &domain.OutputParseError{
			NodeID:  spec.ID,
			Missing: spec.OutputKeys,
			Raw:     rawOutput(result),
			Err:     fmt.Errorf("output of type %T cannot fill %d keys", result.Output, len(spec.OutputKeys)),
		}
	}

	memory.Apply(values)
	return nil
}

func rawOutput(result *domain.ActionResult) string {
	if result.Raw != "" {
		return result.Raw
	}
	return fmt.Sprintf("%v", result.Output)
}
