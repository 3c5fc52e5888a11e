package queue

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrigger(t *testing.T) {
	t.Parallel()

	trigger, err := NewTrigger(t.Context(), map[string]any{
		"queue": "veloflow:jobs",
		"connection": map[string]any{
			"addr":     "redis.internal:6379",
			"password": "hunter2",
			"db":       "3",
		},
	}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, "veloflow:jobs", trigger.Queue)
	assert.True(t, trigger.Enabled)
	assert.Equal(t, map[string]string{
		"addr":     "redis.internal:6379",
		"password": "hunter2",
		"db":       "3",
	}, trigger.Connection)
}

func TestNewTriggerDropsNonStringConnectionValues(t *testing.T) {
	t.Parallel()

	trigger, err := NewTrigger(t.Context(), map[string]any{
		"queue": "jobs",
		"connection": map[string]any{
			"addr": "localhost:6379",
			"db":   3,
		},
	}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"addr": "localhost:6379"}, trigger.Connection)
}

func TestNewTriggerRequiresQueue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config map[string]any
	}{
		{name: "missing queue", config: map[string]any{}},
		{name: "non-string queue", config: map[string]any{"queue": 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			trigger, err := NewTrigger(t.Context(), tt.config, slog.Default())
			require.Error(t, err)
			assert.Nil(t, trigger)
			assert.Contains(t, err.Error(), "queue name is required")
		})
	}
}

func TestParseDB(t *testing.T) {
	t.Parallel()

	trigger := &Trigger{}

	db, err := trigger.parseDB("5")
	require.NoError(t, err)
	assert.Equal(t, 5, db)

	_, err = trigger.parseDB("not-a-number")
	assert.Error(t, err)
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	trigger, err := NewTrigger(t.Context(), map[string]any{"queue": "jobs"}, slog.Default())
	require.NoError(t, err)

	assert.NoError(t, trigger.Stop(t.Context()))
}
