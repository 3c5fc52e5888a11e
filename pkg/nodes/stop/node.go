// Package stop provides the terminating node of a workflow branch.
package stop

import (
	"context"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/protocol"
)

const defaultOutput = "Workflow completed"

// Executor ends a branch and records the execution's final output payload.
type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeStop
}

func (e *Executor) Execute(_ context.Context, scope protocol.ExecutionScope, node *models.Node) (*models.NodeResult, error) {
	output, exists := node.Data["output"]
	if !exists || output == nil {
		output = defaultOutput
	}

	scope.SetOutput(output)

	message, _ := output.(string)

	return &models.NodeResult{
		NodeID:  node.ID,
		Success: true,
		Message: message,
		Output:  output,
	}, nil
}

func (e *Executor) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"output": map[string]any{},
		},
	}
}
