package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/protocol"
)

type stubExecutor struct {
	nodeType models.NodeType
	schema   map[string]any
}

func (e *stubExecutor) Type() models.NodeType { return e.nodeType }

func (e *stubExecutor) Execute(context.Context, protocol.ExecutionScope, *models.Node) (*models.NodeResult, error) {
	return &models.NodeResult{Success: true}, nil
}

func (e *stubExecutor) Schema() map[string]any { return e.schema }

func TestExecutorForRegisteredType(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(slog.Default())
	executor := &stubExecutor{nodeType: models.NodeTypeTask}
	reg.Register(executor)

	assert.Equal(t, executor, reg.ExecutorFor(models.NodeTypeTask))
}

func TestExecutorForUnknownTypeUsesFallback(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(slog.Default())

	assert.Nil(t, reg.ExecutorFor("mystery"))

	fallback := &stubExecutor{nodeType: ""}
	reg.RegisterFallback(fallback)

	assert.Equal(t, fallback, reg.ExecutorFor("mystery"))
}

func TestValidateDefinition(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(slog.Default())
	reg.Register(&stubExecutor{
		nodeType: models.NodeTypeCondition,
		schema: map[string]any{
			"type":     "object",
			"required": []any{"condition"},
			"properties": map[string]any{
				"condition": map[string]any{"type": "string", "minLength": 1},
			},
		},
	})

	valid := &models.Definition{Nodes: []*models.Node{
		{ID: "c1", Type: models.NodeTypeCondition, Data: map[string]any{"condition": "x > 1"}},
	}}
	require.NoError(t, reg.ValidateDefinition(valid))

	invalid := &models.Definition{Nodes: []*models.Node{
		{ID: "c1", Type: models.NodeTypeCondition},
	}}
	err := reg.ValidateDefinition(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c1")

	// Unknown node types are accepted as-is.
	unknown := &models.Definition{Nodes: []*models.Node{
		{ID: "u1", Type: "mystery"},
	}}
	require.NoError(t, reg.ValidateDefinition(unknown))
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(slog.Default())

	_, ok := reg.HealthCheck()
	assert.False(t, ok)

	reg.Register(&stubExecutor{nodeType: models.NodeTypeTask})

	message, ok := reg.HealthCheck()
	assert.True(t, ok)
	assert.Contains(t, message, "1 node executors")
}
