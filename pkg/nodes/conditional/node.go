// Package conditional provides the branching node of a workflow graph.
package conditional

import (
	"context"
	"fmt"

	"github.com/veloflow/veloflow/pkg/condition"
	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/protocol"
)

// Branch handles used on outgoing edges of a condition node.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
)

// Executor evaluates the node's condition expression against the variable
// bag. The walker routes outgoing edges by the reported branch; this executor
// never traverses edges itself.
type Executor struct {
	evaluator *condition.Evaluator
}

func NewExecutor(evaluator *condition.Evaluator) *Executor {
	return &Executor{evaluator: evaluator}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeCondition
}

func (e *Executor) Execute(_ context.Context, scope protocol.ExecutionScope, node *models.Node) (*models.NodeResult, error) {
	expression, ok := node.DataString("condition")
	if !ok || expression == "" {
		return nil, fmt.Errorf("condition node %s requires a condition expression: %w", node.ID, protocol.ErrInvalidNodeConfig)
	}

	result := e.evaluator.Evaluate(expression, scope.Variables())

	scope.Log(models.LogLevelInfo, node,
		fmt.Sprintf("Condition %q evaluated to %t", expression, result),
		map[string]any{"condition_result": result},
	)

	return &models.NodeResult{
		NodeID:          node.ID,
		Success:         true,
		ConditionResult: &result,
	}, nil
}

// Handle returns the branch handle selected by a condition result.
func Handle(result bool) string {
	if result {
		return HandleTrue
	}

	return HandleFalse
}

func (e *Executor) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"condition"},
		"properties": map[string]any{
			"condition": map[string]any{"type": "string", "minLength": 1},
		},
	}
}
