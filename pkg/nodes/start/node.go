// Package start provides the entry-point node of a workflow graph.
package start

import (
	"context"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/protocol"
)

// Executor is a no-op passthrough; the start node only anchors the walk.
type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeStart
}

func (e *Executor) Execute(_ context.Context, _ protocol.ExecutionScope, node *models.Node) (*models.NodeResult, error) {
	return &models.NodeResult{NodeID: node.ID, Success: true}, nil
}

func (e *Executor) Schema() map[string]any {
	return nil
}
