package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/aretw0/agentgraph"
	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/internal/parse"
	"github.com/aretw0/agentgraph/pkg/ports"
)

// ErrNoFormatter is returned when plain text must be formatted but no model is available.
var ErrNoFormatter = errors.New("natural-language input needs a model; send a JSON object instead")

// Runner handles the request loop of an Engine using the provided IO.
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdin/stdout.
	Handler IOHandler

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	// RunID pins all requests to a single run when set.
	RunID string

	// Formatter converts natural language into input keys. Defaults to the engine's model.
	Formatter ports.LLM

	// Once stops the loop after the first successful run.
	Once bool

	engine *agentgraph.Engine
}

// New creates a Runner for engine.
func New(engine *agentgraph.Engine, opts ...Option) *Runner {
	r := &Runner{engine: engine}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	if r.Formatter == nil {
		r.Formatter = engine.LLM()
	}
	return r
}

// Run reads requests until the input is exhausted, the user types "exit", or ctx ends.
// Node failures are reported to the user and the loop goes on.
func (r *Runner) Run(ctx context.Context) error {
	for {
		line, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		inputs, err := r.Inputs(ctx, line)
		if err != nil {
			r.Logger.Warn("input rejected", "err", err)
			if err := r.Handler.SystemOutput(ctx, fmt.Sprintf("Could not read input: %v", err)); err != nil {
				return err
			}
			continue
		}

		result, err := r.engine.Run(ctx, r.RunID, inputs)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.Logger.Error("run failed", "err", err)
			if err := r.Handler.SystemOutput(ctx, fmt.Sprintf("Run failed: %v", err)); err != nil {
				return err
			}
			continue
		}

		if err := r.Handler.Output(ctx, result); err != nil {
			return err
		}
		if r.Once {
			return nil
		}
	}
}

// Inputs converts one request line into values for the graph's input keys.
// JSON objects are taken verbatim; a graph with a single input key takes plain text as
// that key's value; anything else is formatted by the model.
func (r *Runner) Inputs(ctx context.Context, line string) (map[string]any, error) {
	clean, err := SanitizeInput(line)
	if err != nil {
		return nil, err
	}

	graph := r.engine.Graph()
	keys := graph.InputKeys()

	if strings.HasPrefix(strings.TrimSpace(clean), "{") {
		if obj, err := parse.JSONObject(clean); err == nil {
			return obj, nil
		}
	}
	if len(keys) == 1 {
		return map[string]any{keys[0]: clean}, nil
	}
	if r.Formatter == nil {
		return nil, ErrNoFormatter
	}
	return FormatNaturalLanguage(ctx, r.Formatter, clean, keys, agentDescription(r.engine))
}

// agentDescription summarises the graph for the formatter prompt.
func agentDescription(engine *agentgraph.Engine) string {
	graph := engine.Graph()
	var parts []string
	if graph.Name != "" {
		parts = append(parts, graph.Name)
	}
	for _, n := range graph.Nodes {
		if n.Description != "" {
			parts = append(parts, n.Description)
		}
	}
	return strings.Join(parts, ". ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
