package file

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	p, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	return p
}

func newTestExecution(id string) *models.WorkflowExecution {
	return &models.WorkflowExecution{
		ID:         id,
		WorkflowID: "wf-1",
		State:      models.ExecutionStateRunning,
		StartedAt:  time.Now().UTC(),
		StartedBy:  "test",
		Variables:  map[string]any{"a": float64(1)},
		NodeStates: map[string]*models.NodeExecutionState{
			"node-1": {State: models.NodeStatePending},
		},
	}
}

func TestExecutionCreateAndByID(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	executions := p.Executions()

	execution := newTestExecution("exec-create")
	require.NoError(t, executions.Create(t.Context(), execution))

	loaded, err := executions.ByID(t.Context(), "exec-create")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", loaded.WorkflowID)
	assert.Equal(t, models.ExecutionStateRunning, loaded.State)
	assert.Equal(t, models.NodeStatePending, loaded.NodeStates["node-1"].State)
}

func TestExecutionByIDNotFound(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)

	_, err := p.Executions().ByID(t.Context(), "exec-missing")
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
}

func TestExecutionUpdateRejectsTerminal(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	executions := p.Executions()

	execution := newTestExecution("exec-terminal")
	require.NoError(t, executions.Create(t.Context(), execution))

	now := time.Now().UTC()
	execution.State = models.ExecutionStateCompleted
	execution.CompletedAt = &now
	require.NoError(t, executions.Update(t.Context(), execution))

	execution.State = models.ExecutionStateRunning

	err := executions.Update(t.Context(), execution)
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrExecutionTerminal)
	assert.True(t, persistence.IsExecutionTerminal(err))
}

func TestPatchNodeStateMergesPartialPatches(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	executions := p.Executions()

	require.NoError(t, executions.Create(t.Context(), newTestExecution("exec-merge")))

	started := time.Now().UTC()
	require.NoError(t, executions.PatchNodeState(t.Context(), "exec-merge", "node-1", &models.NodeExecutionState{
		State:     models.NodeStateRunning,
		StartedAt: &started,
	}))

	completed := started.Add(time.Second)
	require.NoError(t, executions.PatchNodeState(t.Context(), "exec-merge", "node-1", &models.NodeExecutionState{
		State:       models.NodeStateCompleted,
		CompletedAt: &completed,
		Output:      map[string]any{"status": "completed"},
	}))

	loaded, err := executions.ByID(t.Context(), "exec-merge")
	require.NoError(t, err)

	state := loaded.NodeStates["node-1"]
	require.NotNil(t, state)
	assert.Equal(t, models.NodeStateCompleted, state.State)
	// The completion patch carried no StartedAt; the earlier value survives.
	require.NotNil(t, state.StartedAt)
	assert.Equal(t, started.Unix(), state.StartedAt.Unix())
	require.NotNil(t, state.CompletedAt)
	assert.NotNil(t, state.Output)
}

func TestPatchNodeStateRejectsRegression(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	executions := p.Executions()

	require.NoError(t, executions.Create(t.Context(), newTestExecution("exec-regress")))

	require.NoError(t, executions.PatchNodeState(t.Context(), "exec-regress", "node-1", &models.NodeExecutionState{
		State: models.NodeStateCompleted,
	}))

	err := executions.PatchNodeState(t.Context(), "exec-regress", "node-1", &models.NodeExecutionState{
		State: models.NodeStateRunning,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrStateRegression)

	// Same-state patches are not regressions.
	require.NoError(t, executions.PatchNodeState(t.Context(), "exec-regress", "node-1", &models.NodeExecutionState{
		State: models.NodeStateCompleted,
	}))
}

func TestPatchNodeStateRejectsTerminalExecution(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	executions := p.Executions()

	execution := newTestExecution("exec-done")
	require.NoError(t, executions.Create(t.Context(), execution))

	now := time.Now().UTC()
	execution.State = models.ExecutionStateCanceled
	execution.CompletedAt = &now
	require.NoError(t, executions.Update(t.Context(), execution))

	err := executions.PatchNodeState(t.Context(), "exec-done", "node-1", &models.NodeExecutionState{
		State: models.NodeStateRunning,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrExecutionTerminal)
}

func TestExecutionLogLifecycle(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	logs := p.ExecutionLogs()

	log := &models.ExecutionLog{
		ID:          "log-1",
		ExecutionID: "exec-log",
		WorkflowID:  "wf-1",
		Status:      models.ExecutionLogStatusRunning,
		StartTime:   time.Now().UTC(),
	}
	require.NoError(t, logs.Create(t.Context(), log))

	loaded, err := logs.ByExecutionID(t.Context(), "exec-log")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionLogStatusRunning, loaded.Status)
	assert.Nil(t, loaded.EndTime)

	end := time.Now().UTC()
	require.NoError(t, logs.Finalize(t.Context(), "exec-log", models.ExecutionLogStatusCompleted, end))

	loaded, err = logs.ByExecutionID(t.Context(), "exec-log")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionLogStatusCompleted, loaded.Status)
	require.NotNil(t, loaded.EndTime)
}

func TestExecutionLogEntriesPreserveOrder(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	logs := p.ExecutionLogs()

	for i, message := range []string{"first", "second", "third"} {
		require.NoError(t, logs.AppendEntry(t.Context(), &models.LogEntry{
			ID:          string(rune('a' + i)),
			ExecutionID: "exec-entries",
			NodeID:      "node-1",
			Level:       models.LogLevelInfo,
			Message:     message,
			Timestamp:   time.Now().UTC(),
		}))
	}

	entries, err := logs.Entries(t.Context(), "exec-entries")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
	assert.Equal(t, "third", entries[2].Message)
}

func TestExecutionLogEntriesMissingFile(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)

	entries, err := p.ExecutionLogs().Entries(t.Context(), "exec-none")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidateIDRejectsTraversal(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)

	err := p.Executions().Create(t.Context(), newTestExecution("../escape"))
	require.Error(t, err)

	_, err = p.Executions().ByID(t.Context(), "a/b")
	require.Error(t, err)
}
