package runtime

import (
	"context"
	"sync"

	"github.com/aretw0/agentgraph/pkg/domain"
)

type llmCall struct {
	Messages []domain.Message
	System   string
}

// fakeLLM replays canned replies in order and records every call.
type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []llmCall
}

func (f *fakeLLM) Complete(ctx context.Context, messages []domain.Message, system string) (*domain.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, llmCall{Messages: messages, System: system})
	if f.err != nil {
		return nil, f.err
	}
	reply := ""
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	return &domain.Response{Content: reply, Model: "fake"}, nil
}

func (f *fakeLLM) lastCall() llmCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}
