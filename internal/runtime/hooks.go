package runtime

import (
	"context"
	"time"

	"github.com/aretw0/agentgraph/pkg/domain"
)

func (s *settings) emitNodeEnter(ctx context.Context, spec *domain.NodeSpec) {
	if s.hooks.OnNodeEnter == nil {
		return
	}
	s.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: newEventBase(ctx, domain.EventNodeEnter),
		NodeID:    spec.ID,
		NodeType:  spec.NodeType,
	})
}

func (s *settings) emitNodeLeave(ctx context.Context, spec *domain.NodeSpec, err error) {
	if s.hooks.OnNodeLeave == nil {
		return
	}
	s.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: newEventBase(ctx, domain.EventNodeLeave),
		NodeID:    spec.ID,
		NodeType:  spec.NodeType,
		Err:       err,
	})
}

func (s *settings) emitModelCall(ctx context.Context, nodeID string, actionType domain.ActionType, promptBytes int) {
	if s.hooks.OnModelCall == nil {
		return
	}
	s.hooks.OnModelCall(ctx, &domain.ModelEvent{
		EventBase:   newEventBase(ctx, domain.EventModelCall),
		NodeID:      nodeID,
		ActionType:  actionType,
		PromptBytes: promptBytes,
	})
}

func (s *settings) emitModelReturn(ctx context.Context, nodeID string, actionType domain.ActionType, elapsed time.Duration, err error) {
	if s.hooks.OnModelReturn == nil {
		return
	}
	s.hooks.OnModelReturn(ctx, &domain.ModelEvent{
		EventBase:  newEventBase(ctx, domain.EventModelReturn),
		NodeID:     nodeID,
		ActionType: actionType,
		Duration:   elapsed,
		IsError:    err != nil,
	})
}

func newEventBase(ctx context.Context, t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		RunID:     RunIDFromContext(ctx),
	}
}

// complete wraps a model call with model hooks and timing.
func (s *settings) complete(ctx context.Context, llm domain.ModelRuntime, nodeID string, actionType domain.ActionType, messages []domain.Message, system string) (*domain.Response, error) {
	size := len(system)
	for _, m := range messages {
		size += len(m.Content)
	}

	s.emitModelCall(ctx, nodeID, actionType, size)
	start := time.Now()
	resp, err := llm.Complete(ctx, messages, system)
	s.emitModelReturn(ctx, nodeID, actionType, time.Since(start), err)
	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	return resp, err
}
