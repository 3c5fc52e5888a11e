// Package task provides the generic task node.
package task

import (
	"context"
	"time"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/protocol"
)

const defaultDelay = 100 * time.Millisecond

// Runner performs the actual work of a task node. The default runner
// simulates work with a fixed delay; deployments substitute a real hook.
type Runner func(ctx context.Context, scope protocol.ExecutionScope, node *models.Node) error

// Executor runs a generic task and records its completion under the node's
// configured variable.
type Executor struct {
	runner Runner
}

func NewExecutor() *Executor {
	return &Executor{runner: defaultRunner}
}

// NewExecutorWithRunner creates a task executor with a custom work hook.
func NewExecutorWithRunner(runner Runner) *Executor {
	return &Executor{runner: runner}
}

func defaultRunner(ctx context.Context, _ protocol.ExecutionScope, _ *models.Node) error {
	select {
	case <-time.After(defaultDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeTask
}

func (e *Executor) Execute(ctx context.Context, scope protocol.ExecutionScope, node *models.Node) (*models.NodeResult, error) {
	taskName, ok := node.DataString("taskName")
	if !ok || taskName == "" {
		taskName = node.ID
	}

	err := e.runner(ctx, scope, node)
	if err != nil {
		return nil, err
	}

	output := map[string]any{
		"taskName":  taskName,
		"status":    "completed",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if varName, ok := node.DataString("var"); ok && varName != "" {
		scope.SetVariable(varName, output)
	}

	return &models.NodeResult{
		NodeID:  node.ID,
		Success: true,
		Message: taskName,
		Output:  output,
	}, nil
}

func (e *Executor) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"taskName": map[string]any{"type": "string"},
			"var":      map[string]any{"type": "string"},
		},
	}
}
