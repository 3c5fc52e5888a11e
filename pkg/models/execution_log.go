package models

import "time"

// ExecutionLogStatus represents the lifecycle state of an execution's durable
// audit log. Cancellation is recorded as failed for audit uniformity.
type ExecutionLogStatus string

const (
	ExecutionLogStatusRunning   ExecutionLogStatus = "running"
	ExecutionLogStatusCompleted ExecutionLogStatus = "completed"
	ExecutionLogStatusFailed    ExecutionLogStatus = "failed"
)

// LogLevel classifies log entries.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ExecutionLog is the durable, queryable audit trail header for one
// execution, paired one-to-one with a WorkflowExecution.
type ExecutionLog struct {
	ID          string             `json:"id"`
	ExecutionID string             `json:"execution_id"`
	WorkflowID  string             `json:"workflow_id"`
	Status      ExecutionLogStatus `json:"status"`
	StartTime   time.Time          `json:"start_time"`
	EndTime     *time.Time         `json:"end_time,omitempty"`
}

// LogEntry is one ordered child record of an ExecutionLog.
type LogEntry struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id,omitempty"`
	NodeType    string         `json:"node_type,omitempty"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
