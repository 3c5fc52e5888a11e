package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloflow/veloflow/pkg/models"
)

func TestBuildPayload(t *testing.T) {
	t.Parallel()

	req := InvokeRequest{
		Prompt:       "Summarize the report",
		OutputFormat: "json",
		Variables:    map[string]any{"report": "q3"},
		ExecutionID:  "exec-123",
		WorkflowID:   "wf-1",
	}

	t.Run("openai assistant", func(t *testing.T) {
		t.Parallel()

		payload := BuildPayload(&models.Agent{Provider: models.AgentProviderOpenAIAssistant}, req)

		messages, ok := payload["messages"].([]map[string]any)
		require.True(t, ok)
		require.Len(t, messages, 1)
		assert.Equal(t, "user", messages[0]["role"])
		assert.Equal(t, "Summarize the report", messages[0]["content"])

		assert.Equal(t, "gpt-4", payload["model"])
		assert.Equal(t, map[string]any{"type": "json_object"}, payload["response_format"])
		assert.Equal(t, "exec-123", payload["workflow_execution_id"])
		assert.Equal(t, "wf-1", payload["workflow_id"])
	})

	t.Run("openai assistant text format", func(t *testing.T) {
		t.Parallel()

		textReq := req
		textReq.OutputFormat = "text"

		payload := BuildPayload(&models.Agent{Provider: models.AgentProviderOpenAIAssistant}, textReq)
		assert.Equal(t, map[string]any{"type": "text"}, payload["response_format"])
	})

	t.Run("superagi", func(t *testing.T) {
		t.Parallel()

		payload := BuildPayload(&models.Agent{Provider: models.AgentProviderSuperAGI}, req)

		assert.Equal(t, "Summarize the report", payload["input"])
		assert.Equal(t, "json", payload["output_type"])
		assert.Equal(t, req.Variables, payload["context_variables"])
		assert.Equal(t, "exec-123", payload["workflow_execution_id"])
	})

	t.Run("autogen", func(t *testing.T) {
		t.Parallel()

		payload := BuildPayload(&models.Agent{Provider: models.AgentProviderAutoGen}, req)

		assert.Equal(t, "Summarize the report", payload["prompt"])
		assert.Equal(t, "json", payload["output_format"])
		assert.Equal(t, req.Variables, payload["context_variables"])
	})

	t.Run("custom and unknown providers", func(t *testing.T) {
		t.Parallel()

		for _, provider := range []models.AgentProvider{models.AgentProviderCustom, "homegrown"} {
			payload := BuildPayload(&models.Agent{Provider: provider}, req)

			assert.Equal(t, "Summarize the report", payload["prompt"])
			assert.Equal(t, "json", payload["format"])
			assert.Equal(t, req.Variables, payload["context"])
			assert.Equal(t, "wf-1", payload["workflow_id"])
		}
	})
}
