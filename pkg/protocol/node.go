// Package protocol defines the interfaces and contracts between the graph
// walker and pluggable node executors.
package protocol

import (
	"context"
	"errors"

	"github.com/veloflow/veloflow/pkg/models"
)

// ErrInvalidNodeConfig marks definition-level configuration errors (missing
// condition expression, missing agent id). These are never retried and abort
// the whole execution regardless of the node's retry policy.
var ErrInvalidNodeConfig = errors.New("invalid node configuration")

// ExecutionScope is the view a node executor gets of the running execution.
type ExecutionScope interface {
	// ExecutionID returns the id of the running execution.
	ExecutionID() string

	// WorkflowID returns the id of the workflow being executed.
	WorkflowID() string

	// Variables returns a shallow snapshot of the current variable bag.
	Variables() map[string]any

	// SetVariable writes a value into the variable bag. Keys are not
	// namespaced per node; colliding writers across parallel branches race
	// with last-write-wins semantics.
	SetVariable(key string, value any)

	// SetOutput records the execution's final output payload.
	SetOutput(output any)

	// Log records a line on the execution and appends a durable audit
	// entry. Logging is best-effort and never fails the node.
	Log(level models.LogLevel, node *models.Node, message string, data map[string]any)
}

// NodeExecutor implements the behavior of one node type.
type NodeExecutor interface {
	// Type returns the node type this executor handles.
	Type() models.NodeType

	// Execute runs the node against the current execution scope.
	Execute(ctx context.Context, scope ExecutionScope, node *models.Node) (*models.NodeResult, error)

	// Schema returns the JSON schema for the node's data bag, used to
	// validate definitions before execution. A nil schema skips validation.
	Schema() map[string]any
}
