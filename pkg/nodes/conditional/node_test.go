package conditional

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloflow/veloflow/pkg/condition"
	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/protocol"
)

type fakeScope struct {
	variables map[string]any
	logs      []string
}

func (s *fakeScope) ExecutionID() string        { return "exec-1" }
func (s *fakeScope) WorkflowID() string         { return "wf-1" }
func (s *fakeScope) Variables() map[string]any  { return s.variables }
func (s *fakeScope) SetVariable(k string, v any) { s.variables[k] = v }
func (s *fakeScope) SetOutput(any)              {}

func (s *fakeScope) Log(_ models.LogLevel, _ *models.Node, message string, _ map[string]any) {
	s.logs = append(s.logs, message)
}

func TestExecuteTrueBranch(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(condition.NewEvaluator(slog.Default()))
	scope := &fakeScope{variables: map[string]any{"amount": float64(150)}}

	node := &models.Node{
		ID:   "cond-1",
		Type: models.NodeTypeCondition,
		Data: map[string]any{"condition": "amount > 100"},
	}

	result, err := executor.Execute(t.Context(), scope, node)
	require.NoError(t, err)
	require.NotNil(t, result.ConditionResult)
	assert.True(t, *result.ConditionResult)
	assert.True(t, result.Success)
	require.Len(t, scope.logs, 1)
	assert.Contains(t, scope.logs[0], "evaluated to true")
}

func TestExecuteFalseBranch(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(condition.NewEvaluator(slog.Default()))
	scope := &fakeScope{variables: map[string]any{"amount": float64(50)}}

	node := &models.Node{
		ID:   "cond-1",
		Type: models.NodeTypeCondition,
		Data: map[string]any{"condition": "amount > 100"},
	}

	result, err := executor.Execute(t.Context(), scope, node)
	require.NoError(t, err)
	require.NotNil(t, result.ConditionResult)
	assert.False(t, *result.ConditionResult)
}

func TestExecuteEvaluationErrorRoutesFalse(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(condition.NewEvaluator(slog.Default()))
	scope := &fakeScope{variables: map[string]any{}}

	node := &models.Node{
		ID:   "cond-1",
		Type: models.NodeTypeCondition,
		Data: map[string]any{"condition": "amount >"},
	}

	result, err := executor.Execute(t.Context(), scope, node)
	require.NoError(t, err)
	require.NotNil(t, result.ConditionResult)
	assert.False(t, *result.ConditionResult)
}

func TestExecuteMissingConditionIsFatal(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(condition.NewEvaluator(slog.Default()))
	scope := &fakeScope{variables: map[string]any{}}

	node := &models.Node{ID: "cond-1", Type: models.NodeTypeCondition}

	_, err := executor.Execute(t.Context(), scope, node)
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrInvalidNodeConfig)
}

func TestHandle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HandleTrue, Handle(true))
	assert.Equal(t, HandleFalse, Handle(false))
}
