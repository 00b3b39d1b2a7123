package agentgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/internal/runtime"
	"github.com/aretw0/agentgraph/pkg/adapters/memory"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/aretw0/agentgraph/pkg/session"
	"github.com/google/uuid"
)

// Version is the library version reported by the CLI and the MCP server.
const Version = "0.4.0"

// Function is a Go function callable from "function" worker actions.
type Function = runtime.Function

// Engine is the high-level entry point for the library.
// It wraps the internal driver with run persistence and per-run locking.
type Engine struct {
	graph     *domain.Graph
	llm       ports.LLM
	driver    *runtime.Driver
	sessions  *session.Manager
	store     ports.MemoryStore
	locker    ports.DistributedLocker
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	functions map[string]Function
	Name      string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithStore sets where run memory is persisted. Defaults to an in-memory store.
func WithStore(store ports.MemoryStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables distributed run locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithFunction registers a function for "function" worker actions.
func WithFunction(name string, fn Function) Option {
	return func(e *Engine) {
		e.functions[name] = fn
	}
}

// New builds an engine for graph. llm may be nil for graphs made only of function workers.
func New(graph *domain.Graph, llm ports.LLM, opts ...Option) (*Engine, error) {
	eng := &Engine{
		graph:     graph,
		llm:       llm,
		functions: make(map[string]Function),
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if graph != nil && graph.Name != "" {
		eng.Name = graph.Name
		eng.logger = eng.logger.With("graph", eng.Name)
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, sessionOpts...)

	runtimeOpts := []runtime.Option{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithCheckpoint(eng.checkpoint),
	}
	for name, fn := range eng.functions {
		runtimeOpts = append(runtimeOpts, runtime.WithFunction(name, fn))
	}

	driver, err := runtime.NewDriver(graph, llm, runtimeOpts...)
	if err != nil {
		return nil, err
	}
	eng.driver = driver
	return eng, nil
}

// Result is the outcome of one run.
type Result struct {
	RunID     string               `json:"run_id"`
	Outputs   map[string]any       `json:"outputs"`
	Completed []string             `json:"completed"`
	Rejected  []string             `json:"rejected,omitempty"`
	Changed   []string             `json:"changed,omitempty"`
	Memory    *domain.SharedMemory `json:"memory"`
}

// Run seeds the run's memory with inputs and executes the graph once, holding the run
// lock throughout. An empty runID starts a fresh run with a generated ID.
// The partial Result is returned alongside a node failure.
func (e *Engine) Run(ctx context.Context, runID string, inputs map[string]any) (*Result, error) {
	if runID == "" {
		runID = uuid.NewString()
	}

	var result *Result
	err := e.sessions.WithRun(ctx, runID, nil, func(ctx context.Context, mem *domain.SharedMemory) error {
		mem.Apply(inputs)

		report, runErr := e.driver.Run(ctx, runID, mem)
		result = e.newResult(runID, report, mem)

		// Persist what the run got to, even when it was canceled or failed.
		if err := e.store.Save(context.WithoutCancel(ctx), runID, mem); err != nil {
			return errors.Join(runErr, fmt.Errorf("failed to save run: %w", err))
		}
		return runErr
	})
	if err != nil {
		return result, fmt.Errorf("run %s: %w", runID, err)
	}
	return result, nil
}

func (e *Engine) newResult(runID string, report *runtime.RunReport, mem *domain.SharedMemory) *Result {
	res := &Result{
		RunID:     runID,
		Outputs:   make(map[string]any),
		Completed: report.Completed,
		Memory:    mem,
	}
	for _, key := range e.graph.OutputKeys() {
		if v, ok := mem.Get(key); ok {
			res.Outputs[key] = v
		}
	}
	for _, perr := range report.Rejected {
		res.Rejected = append(res.Rejected, perr.NodeID)
	}
	if report.Diff != nil {
		res.Changed = report.Diff.Keys()
	}
	return res
}

func (e *Engine) checkpoint(ctx context.Context, nodeID string, mem *domain.SharedMemory) error {
	e.logger.Debug("checkpoint", "run_id", runtime.RunIDFromContext(ctx), "node_id", nodeID)
	return e.store.Save(ctx, runtime.RunIDFromContext(ctx), mem)
}

// Memory loads a run's persisted memory.
func (e *Engine) Memory(ctx context.Context, runID string) (*domain.SharedMemory, error) {
	return e.sessions.Load(ctx, runID)
}

// Runs lists persisted run IDs.
func (e *Engine) Runs(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// DeleteRun removes a run's memory.
func (e *Engine) DeleteRun(ctx context.Context, runID string) error {
	return e.sessions.Delete(ctx, runID)
}

// Graph returns the graph definition for introspection tools.
func (e *Engine) Graph() *domain.Graph {
	return e.graph
}

// LLM returns the model the engine was built with.
func (e *Engine) LLM() ports.LLM {
	return e.llm
}
