package ports

import (
	"context"

	"github.com/aretw0/agentgraph/pkg/domain"
)

// LLM is the model capability consumed by nodes.
// Transport, authentication and retries belong to the implementation.
type LLM interface {
	// Complete sends messages, with system as the system string, and returns the reply.
	// It blocks until the model answers, ctx is canceled, or the transport fails.
	Complete(ctx context.Context, messages []domain.Message, system string) (*domain.Response, error)
}

// LLMFunc adapts a function to the LLM interface.
type LLMFunc func(ctx context.Context, messages []domain.Message, system string) (*domain.Response, error)

// Complete calls f.
func (f LLMFunc) Complete(ctx context.Context, messages []domain.Message, system string) (*domain.Response, error) {
	return f(ctx, messages, system)
}
