package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter   EventType = "node_enter"
	EventNodeLeave   EventType = "node_leave"
	EventModelCall   EventType = "model_call"
	EventModelReturn EventType = "model_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeType NodeType `json:"node_type"`
	Err      error    `json:"-"`
}

// ModelEvent represents a model round trip issued by a node.
// It carries sizes, never prompt content.
type ModelEvent struct {
	EventBase
	NodeID      string        `json:"node_id"`
	ActionType  ActionType    `json:"action_type,omitempty"`
	PromptBytes int           `json:"prompt_bytes"`
	Duration    time.Duration `json:"duration,omitempty"`
	IsError     bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter   func(context.Context, *NodeEvent)
	OnNodeLeave   func(context.Context, *NodeEvent)
	OnModelCall   func(context.Context, *ModelEvent)
	OnModelReturn func(context.Context, *ModelEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:   chainNode(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave:   chainNode(h.OnNodeLeave, other.OnNodeLeave),
		OnModelCall:   chainModel(h.OnModelCall, other.OnModelCall),
		OnModelReturn: chainModel(h.OnModelReturn, other.OnModelReturn),
	}
}

func chainNode(a, b func(context.Context, *NodeEvent)) func(context.Context, *NodeEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *NodeEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainModel(a, b func(context.Context, *ModelEvent)) func(context.Context, *ModelEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *ModelEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
