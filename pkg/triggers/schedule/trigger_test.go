package schedule

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() map[string]any {
	return map[string]any{
		"id":          "nightly",
		"cron":        "0 3 * * *",
		"workflow_id": "wf-report",
	}
}

func TestNewTrigger(t *testing.T) {
	t.Parallel()

	trigger, err := NewTrigger(validConfig(), slog.Default())
	require.NoError(t, err)

	assert.Equal(t, "nightly", trigger.ID)
	assert.Equal(t, "0 3 * * *", trigger.CronExpr)
	assert.Equal(t, "wf-report", trigger.WorkflowID)
	assert.True(t, trigger.Enabled)
}

func TestNewTriggerValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(config map[string]any)
		wantErr string
	}{
		{
			name:    "missing id",
			mutate:  func(config map[string]any) { delete(config, "id") },
			wantErr: "ID is required",
		},
		{
			name:    "missing cron",
			mutate:  func(config map[string]any) { delete(config, "cron") },
			wantErr: "cron expression is required",
		},
		{
			name:    "missing workflow_id",
			mutate:  func(config map[string]any) { delete(config, "workflow_id") },
			wantErr: "workflow_id is required",
		},
		{
			name:    "invalid cron expression",
			mutate:  func(config map[string]any) { config["cron"] = "every full moon" },
			wantErr: "invalid cron expression",
		},
		{
			name:    "non-string cron",
			mutate:  func(config map[string]any) { config["cron"] = 42 },
			wantErr: "cron expression is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			config := validConfig()
			tt.mutate(config)

			trigger, err := NewTrigger(config, slog.Default())
			require.Error(t, err)
			assert.Nil(t, trigger)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunInvokesCallback(t *testing.T) {
	t.Parallel()

	trigger, err := NewTrigger(validConfig(), slog.Default())
	require.NoError(t, err)

	var (
		mu         sync.Mutex
		workflowID string
		startedBy  string
	)

	trigger.callback = func(_ context.Context, wfID, by string, variables map[string]any) error {
		mu.Lock()
		defer mu.Unlock()
		workflowID = wfID
		startedBy = by
		assert.Nil(t, variables)

		return nil
	}

	trigger.run(t.Context())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "wf-report", workflowID)
	assert.Equal(t, "schedule:nightly", startedBy)
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	trigger, err := NewTrigger(validConfig(), slog.Default())
	require.NoError(t, err)

	assert.NoError(t, trigger.Stop(t.Context()))
}
