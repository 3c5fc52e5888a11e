// Package logmessage provides a node that emits an interpolated message to
// the execution's logs.
package logmessage

import (
	"context"

	"github.com/veloflow/veloflow/pkg/interpolate"
	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/protocol"
)

// Executor renders the configured message against the variable bag and logs
// it at the configured level.
type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeLogMessage
}

func (e *Executor) Execute(_ context.Context, scope protocol.ExecutionScope, node *models.Node) (*models.NodeResult, error) {
	template, _ := node.DataString("message")
	message := interpolate.Interpolate(template, scope.Variables())

	scope.Log(level(node), node, message, nil)

	return &models.NodeResult{
		NodeID:  node.ID,
		Success: true,
		Message: message,
	}, nil
}

func level(node *models.Node) models.LogLevel {
	raw, _ := node.DataString("level")

	switch models.LogLevel(raw) {
	case models.LogLevelWarn:
		return models.LogLevelWarn
	case models.LogLevelError:
		return models.LogLevelError
	default:
		return models.LogLevelInfo
	}
}

func (e *Executor) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
			"level":   map[string]any{"enum": []any{"info", "warn", "error"}},
		},
	}
}
