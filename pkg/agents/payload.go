package agents

import "github.com/veloflow/veloflow/pkg/models"

// InvokeRequest carries everything needed to shape a provider-specific
// request payload.
type InvokeRequest struct {
	Prompt       string
	OutputFormat string // "json" or "text"
	Variables    map[string]any
	ExecutionID  string
	WorkflowID   string
}

// BuildPayload shapes the request body for the agent's provider. Unknown
// providers get the custom/default shape.
func BuildPayload(agent *models.Agent, req InvokeRequest) map[string]any {
	switch agent.Provider {
	case models.AgentProviderOpenAIAssistant:
		responseType := "text"
		if req.OutputFormat == "json" {
			responseType = "json_object"
		}

		return map[string]any{
			"messages": []map[string]any{
				{"role": "user", "content": req.Prompt},
			},
			"model":                 "gpt-4",
			"response_format":       map[string]any{"type": responseType},
			"workflow_execution_id": req.ExecutionID,
			"workflow_id":           req.WorkflowID,
		}

	case models.AgentProviderSuperAGI:
		return map[string]any{
			"input":                 req.Prompt,
			"output_type":           req.OutputFormat,
			"workflow_execution_id": req.ExecutionID,
			"workflow_id":           req.WorkflowID,
			"context_variables":     req.Variables,
		}

	case models.AgentProviderAutoGen:
		return map[string]any{
			"prompt":                req.Prompt,
			"output_format":         req.OutputFormat,
			"context_variables":     req.Variables,
			"workflow_execution_id": req.ExecutionID,
			"workflow_id":           req.WorkflowID,
		}

	default:
		return map[string]any{
			"prompt":                req.Prompt,
			"format":                req.OutputFormat,
			"context":               req.Variables,
			"workflow_execution_id": req.ExecutionID,
			"workflow_id":           req.WorkflowID,
		}
	}
}
