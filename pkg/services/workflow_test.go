package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/persistence"
	"github.com/veloflow/veloflow/pkg/persistence/file"
	"github.com/veloflow/veloflow/pkg/protocol"
	"github.com/veloflow/veloflow/pkg/registry"
)

// schemaExecutor publishes a schema requiring a condition expression.
type schemaExecutor struct{}

func (e *schemaExecutor) Type() models.NodeType { return models.NodeTypeCondition }

func (e *schemaExecutor) Execute(context.Context, protocol.ExecutionScope, *models.Node) (*models.NodeResult, error) {
	return &models.NodeResult{Success: true}, nil
}

func (e *schemaExecutor) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"condition"},
		"properties": map[string]any{
			"condition": map[string]any{"type": "string"},
		},
	}
}

func newTestService(t *testing.T) (*Workflow, persistence.Persistence) {
	t.Helper()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	return NewWorkflow(store, registry.NewRegistry(slog.Default())), store
}

func validWorkflow() *models.Workflow {
	return &models.Workflow{
		Name:   "release gate",
		Status: models.WorkflowStatusDraft,
		Definition: &models.Definition{
			Nodes: []*models.Node{
				{ID: "begin", Type: models.NodeTypeStart},
				{ID: "done", Type: models.NodeTypeStop},
			},
			Edges: []*models.Edge{
				{ID: "e1", Source: "begin", Target: "done"},
			},
		},
	}
}

func TestSaveWorkflowAssignsIDAndTimestamps(t *testing.T) {
	t.Parallel()

	service, store := newTestService(t)

	saved, err := service.SaveWorkflow(t.Context(), validWorkflow())
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, saved.UpdatedAt.IsZero())

	stored, err := store.Workflows().ByID(t.Context(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "release gate", stored.Name)
}

func TestSaveWorkflowValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*models.Workflow)
		sentinel error
	}{
		{
			name:     "short name",
			mutate:   func(w *models.Workflow) { w.Name = "ab" },
			sentinel: ErrWorkflowInvalid,
		},
		{
			name:     "missing definition",
			mutate:   func(w *models.Workflow) { w.Definition = nil },
			sentinel: ErrWorkflowInvalid,
		},
		{
			name:     "no nodes",
			mutate:   func(w *models.Workflow) { w.Definition.Nodes = nil },
			sentinel: ErrNodesRequired,
		},
		{
			name: "no start node",
			mutate: func(w *models.Workflow) {
				w.Definition.Nodes = []*models.Node{{ID: "done", Type: models.NodeTypeStop}}
				w.Definition.Edges = nil
			},
			sentinel: ErrStartNodeRequired,
		},
		{
			name: "duplicate node id",
			mutate: func(w *models.Workflow) {
				w.Definition.Nodes = append(w.Definition.Nodes,
					&models.Node{ID: "done", Type: models.NodeTypeTask})
			},
			sentinel: ErrDuplicateNodeID,
		},
		{
			name: "dangling edge target",
			mutate: func(w *models.Workflow) {
				w.Definition.Edges = append(w.Definition.Edges,
					&models.Edge{ID: "e2", Source: "begin", Target: "phantom"})
			},
			sentinel: ErrDanglingEdge,
		},
		{
			name: "cycle",
			mutate: func(w *models.Workflow) {
				w.Definition.Nodes = append(w.Definition.Nodes,
					&models.Node{ID: "a", Type: models.NodeTypeTask},
					&models.Node{ID: "b", Type: models.NodeTypeTask})
				w.Definition.Edges = append(w.Definition.Edges,
					&models.Edge{ID: "e2", Source: "begin", Target: "a"},
					&models.Edge{ID: "e3", Source: "a", Target: "b"},
					&models.Edge{ID: "e4", Source: "b", Target: "a"})
			},
			sentinel: ErrCyclicDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			service, _ := newTestService(t)

			workflow := validWorkflow()
			tt.mutate(workflow)

			_, err := service.SaveWorkflow(t.Context(), workflow)
			require.ErrorIs(t, err, tt.sentinel)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestSaveWorkflowNil(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)

	_, err := service.SaveWorkflow(t.Context(), nil)
	require.ErrorIs(t, err, ErrWorkflowNil)
	assert.True(t, IsValidationError(err))
}

func TestSaveWorkflowNodeDataSchema(t *testing.T) {
	t.Parallel()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	reg := registry.NewRegistry(slog.Default())
	reg.Register(&schemaExecutor{})

	service := NewWorkflow(store, reg)

	workflow := validWorkflow()
	workflow.Definition.Nodes = append(workflow.Definition.Nodes,
		&models.Node{ID: "check", Type: models.NodeTypeCondition})
	workflow.Definition.Edges = append(workflow.Definition.Edges,
		&models.Edge{ID: "e2", Source: "begin", Target: "check"})

	_, err = service.SaveWorkflow(t.Context(), workflow)
	require.ErrorIs(t, err, ErrInvalidNodeData)
}

func TestFetchListDelete(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)

	saved, err := service.SaveWorkflow(t.Context(), validWorkflow())
	require.NoError(t, err)

	fetched, err := service.FetchByID(t.Context(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, fetched.ID)

	workflows, err := service.ListWorkflows(t.Context())
	require.NoError(t, err)
	assert.Len(t, workflows, 1)

	require.NoError(t, service.DeleteWorkflow(t.Context(), saved.ID))

	_, err = service.FetchByID(t.Context(), saved.ID)
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)

	message, healthy := service.HealthCheck(t.Context())
	assert.True(t, healthy)
	assert.Contains(t, message, "healthy")

	uninitalized := NewWorkflow(nil, nil)

	_, healthy = uninitalized.HealthCheck(t.Context())
	assert.False(t, healthy)
}
