package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/protocol"
)

type fakeScope struct {
	variables map[string]any
}

func (s *fakeScope) ExecutionID() string         { return "exec-1" }
func (s *fakeScope) WorkflowID() string          { return "wf-1" }
func (s *fakeScope) Variables() map[string]any   { return s.variables }
func (s *fakeScope) SetVariable(k string, v any) { s.variables[k] = v }
func (s *fakeScope) SetOutput(any)               {}

func (s *fakeScope) Log(models.LogLevel, *models.Node, string, map[string]any) {}

func TestExecuteStoresOutputUnderVar(t *testing.T) {
	t.Parallel()

	executor := NewExecutorWithRunner(func(context.Context, protocol.ExecutionScope, *models.Node) error {
		return nil
	})
	scope := &fakeScope{variables: map[string]any{}}

	node := &models.Node{
		ID:   "task-1",
		Type: models.NodeTypeTask,
		Data: map[string]any{"taskName": "sync-users", "var": "syncResult"},
	}

	result, err := executor.Execute(t.Context(), scope, node)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "sync-users", result.Message)

	stored, ok := scope.variables["syncResult"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sync-users", stored["taskName"])
	assert.Equal(t, "completed", stored["status"])
	assert.NotEmpty(t, stored["timestamp"])
}

func TestExecuteDefaultsTaskNameToNodeID(t *testing.T) {
	t.Parallel()

	executor := NewExecutorWithRunner(func(context.Context, protocol.ExecutionScope, *models.Node) error {
		return nil
	})
	scope := &fakeScope{variables: map[string]any{}}

	node := &models.Node{ID: "task-7", Type: models.NodeTypeTask}

	result, err := executor.Execute(t.Context(), scope, node)
	require.NoError(t, err)
	assert.Equal(t, "task-7", result.Message)

	// No var configured, nothing stored.
	assert.Empty(t, scope.variables)
}

func TestExecuteRunnerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("task blew up")
	executor := NewExecutorWithRunner(func(context.Context, protocol.ExecutionScope, *models.Node) error {
		return boom
	})
	scope := &fakeScope{variables: map[string]any{}}

	_, err := executor.Execute(t.Context(), scope, &models.Node{ID: "task-1", Type: models.NodeTypeTask})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestDefaultRunnerHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	executor := NewExecutor()
	scope := &fakeScope{variables: map[string]any{}}

	_, err := executor.Execute(ctx, scope, &models.Node{ID: "task-1", Type: models.NodeTypeTask})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
