package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/domain"
)

// settings holds the knobs shared by nodes and the driver.
type settings struct {
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	functions  map[string]Function
	handlers   map[domain.ActionType]ActionHandler
	checkpoint Checkpoint
}

// Option configures a node or the driver.
type Option func(*settings)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithFunction registers a Go function callable by "function" actions.
func WithFunction(name string, fn Function) Option {
	return func(s *settings) {
		s.functions[name] = fn
	}
}

// WithActionHandler installs or replaces the handler for an action type.
func WithActionHandler(actionType domain.ActionType, handler ActionHandler) Option {
	return func(s *settings) {
		s.handlers[actionType] = handler
	}
}

// WithCheckpoint sets the function the driver calls after every node.
func WithCheckpoint(fn Checkpoint) Option {
	return func(s *settings) {
		s.checkpoint = fn
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{
		logger:    logging.NewNop(),
		functions: make(map[string]Function),
		handlers:  make(map[domain.ActionType]ActionHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type runIDKey struct{}

// ContextWithRunID tags ctx with the run being executed, for event attribution.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run ID set by ContextWithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
