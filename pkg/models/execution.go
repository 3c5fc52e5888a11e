package models

import "time"

// ExecutionState represents the lifecycle state of a workflow execution.
type ExecutionState string

const (
	ExecutionStatePending   ExecutionState = "pending"
	ExecutionStateRunning   ExecutionState = "running"
	ExecutionStateCompleted ExecutionState = "completed"
	ExecutionStateFailed    ExecutionState = "failed"
	ExecutionStateCanceled  ExecutionState = "canceled"
)

// Terminal reports whether the state admits no further transitions.
func (s ExecutionState) Terminal() bool {
	switch s {
	case ExecutionStateCompleted, ExecutionStateFailed, ExecutionStateCanceled:
		return true
	default:
		return false
	}
}

// NodeState represents the per-node execution state.
type NodeState string

const (
	NodeStatePending   NodeState = "pending"
	NodeStateRunning   NodeState = "running"
	NodeStateCompleted NodeState = "completed"
	NodeStateFailed    NodeState = "failed"
	NodeStateSkipped   NodeState = "skipped"
)

// nodeStateRank orders node states so transitions can be checked for
// monotonicity: pending -> running -> {completed|failed|skipped}.
func nodeStateRank(s NodeState) int {
	switch s {
	case NodeStatePending:
		return 0
	case NodeStateRunning:
		return 1
	default:
		return 2
	}
}

// CanTransition reports whether moving from s to next respects the
// never-regress invariant.
func (s NodeState) CanTransition(next NodeState) bool {
	return nodeStateRank(next) > nodeStateRank(s)
}

// NodeExecutionState is the durable per-node record of one execution.
type NodeExecutionState struct {
	State       NodeState  `json:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Output      any        `json:"output,omitempty"`
}

// ExecutionLogLine is a lightweight in-memory log line accumulated on the
// execution record, distinct from the durable LogEntry audit trail.
type ExecutionLogLine struct {
	NodeID    string    `json:"node_id,omitempty"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// WorkflowExecution is a single run instance of a workflow definition.
// It is mutated throughout the graph walk and becomes immutable once in a
// terminal state.
type WorkflowExecution struct {
	ID          string                         `json:"id"`
	WorkflowID  string                         `json:"workflow_id"`
	State       ExecutionState                 `json:"state"`
	StartedAt   time.Time                      `json:"started_at"`
	CompletedAt *time.Time                     `json:"completed_at,omitempty"`
	StartedBy   string                         `json:"started_by"`
	Variables   map[string]any                 `json:"variables,omitempty"`
	NodeStates  map[string]*NodeExecutionState `json:"node_states,omitempty"`
	Logs        []ExecutionLogLine             `json:"logs,omitempty"`
	Output      any                            `json:"output,omitempty"`
	Error       string                         `json:"error,omitempty"`
}
