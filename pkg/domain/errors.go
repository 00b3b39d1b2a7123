package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownActionType is returned when a worker has no handler for an ActionSpec's type.
// It signals a graph-authoring defect and is never retried.
var ErrUnknownActionType = errors.New("unknown action type")

// ErrUnknownFunction is returned when a function action names an unregistered function.
var ErrUnknownFunction = errors.New("unknown function")

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrNilRuntime is returned when a node needs the model but its context carries none.
var ErrNilRuntime = errors.New("model runtime is not configured")

// NodeError tags a node failure with the node id and action type.
// Its message never includes prompt content; the wrapped error carries the cause.
type NodeError struct {
	NodeID     string
	ActionType ActionType
	Keys       []string // Input keys involved in the failed call
	Err        error
}

func (e *NodeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "node %q", e.NodeID)
	if e.ActionType != "" {
		fmt.Fprintf(&b, " (action %s)", e.ActionType)
	}
	if len(e.Keys) > 0 {
		fmt.Fprintf(&b, " keys=%v", e.Keys)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *NodeError) Unwrap() error { return e.Err }

// Recoverable reports whether the driver may retry or route around the failure.
// Configuration defects are not recoverable.
func (e *NodeError) Recoverable() bool {
	return !errors.Is(e.Err, ErrUnknownActionType) &&
		!errors.Is(e.Err, ErrUnknownFunction) &&
		!errors.Is(e.Err, ErrNilRuntime)
}

// OutputParseError reports a model response that did not carry the expected output keys.
// Raw holds the response for diagnosis and is deliberately left out of Error().
type OutputParseError struct {
	NodeID  string
	Missing []string
	Raw     string
	Err     error
}

func (e *OutputParseError) Error() string {
	msg := fmt.Sprintf("node %q: unparseable output", e.NodeID)
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(", missing keys %v", e.Missing)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OutputParseError) Unwrap() error { return e.Err }

// Recoverable is always true: a bad response never corrupts memory.
func (e *OutputParseError) Recoverable() bool { return true }

// GraphError aggregates the defects found while validating a graph.
type GraphError struct {
	Problems []string
}

func (e *GraphError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid graph: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid graph: %d problems:\n- %s", len(e.Problems), strings.Join(e.Problems, "\n- "))
}

// IsRecoverable reports whether err is a node failure the driver may retry.
func IsRecoverable(err error) bool {
	var r interface{ Recoverable() bool }
	if errors.As(err, &r) {
		return r.Recoverable()
	}
	return false
}
