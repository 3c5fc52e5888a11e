// Package web provides HTTP handlers and request/response types for the
// workflow execution API.
package web

// ExecuteWorkflowRequest is the request body for starting an execution.
// Variables override the workflow's own seed variables for this run.
type ExecuteWorkflowRequest struct {
	StartedBy string         `json:"started_by"`
	Variables map[string]any `json:"variables,omitempty"`
}

// ExecuteWorkflowResponse acknowledges an accepted execution.
type ExecuteWorkflowResponse struct {
	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	State       string `json:"state"`
}

// CancelExecutionRequest is the request body for canceling an execution.
type CancelExecutionRequest struct {
	CanceledBy string `json:"canceled_by"`
}
