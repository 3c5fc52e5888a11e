// Package passthrough provides the no-op executor used for node types the
// engine does not recognize. Unknown node types must never abort a workflow.
package passthrough

import (
	"context"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/protocol"
)

type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Type() models.NodeType {
	return ""
}

func (e *Executor) Execute(_ context.Context, _ protocol.ExecutionScope, node *models.Node) (*models.NodeResult, error) {
	return &models.NodeResult{NodeID: node.ID, Success: true}, nil
}

func (e *Executor) Schema() map[string]any {
	return nil
}
