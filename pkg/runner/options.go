package runner

import (
	"log/slog"

	"github.com/aretw0/agentgraph/pkg/ports"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithRunID pins every request to one run, so memory accumulates across lines.
// Without it each line starts a fresh run.
func WithRunID(id string) Option {
	return func(r *Runner) {
		r.RunID = id
	}
}

// WithFormatter sets the model used to turn natural language into inputs.
// Defaults to the engine's model.
func WithFormatter(llm ports.LLM) Option {
	return func(r *Runner) {
		r.Formatter = llm
	}
}

// WithOnce makes the runner stop after the first completed request.
func WithOnce(once bool) Option {
	return func(r *Runner) {
		r.Once = once
	}
}
