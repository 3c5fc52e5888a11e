package models

import "time"

// NodeType identifies the behavior attached to a workflow node.
type NodeType string

const (
	NodeTypeStart      NodeType = "start"
	NodeTypeStop       NodeType = "stop"
	NodeTypeLogMessage NodeType = "log_message"
	NodeTypeCondition  NodeType = "condition"
	NodeTypeAgentTask  NodeType = "agent_task"
	NodeTypeTask       NodeType = "task"
)

// Node is a typed unit of work in a workflow graph. Data carries the
// type-specific parameters (message/level, condition expression, agent ids,
// retry policy) exactly as the editor produced them.
type Node struct {
	ID   string         `json:"id"   validate:"required"`
	Type NodeType       `json:"type" validate:"required"`
	Data map[string]any `json:"data,omitempty"`
}

// DataString returns the string value stored under key, if present.
func (n *Node) DataString(key string) (string, bool) {
	value, ok := n.Data[key].(string)

	return value, ok
}

// DataInt returns the integer value stored under key, tolerating the float64
// that JSON decoding produces. Returns fallback when the key is absent or not
// numeric; an explicit zero is honored.
func (n *Node) DataInt(key string, fallback int) int {
	raw, exists := n.Data[key]
	if !exists {
		return fallback
	}

	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// DataBool returns the boolean value stored under key, false when absent.
func (n *Node) DataBool(key string) bool {
	value, _ := n.Data[key].(bool)

	return value
}

// Retry policy keys shared by every node type.
const (
	nodeDataRetries           = "retries"
	nodeDataBackoffSeconds    = "backoffSeconds"
	nodeDataContinueOnFailure = "continueOnFailure"
)

// MaxRetries returns the node's configured retry budget, zero by default.
func (n *Node) MaxRetries() int {
	return n.DataInt(nodeDataRetries, 0)
}

// Backoff returns the delay between retry attempts, one second by default.
// An explicit zero disables the delay.
func (n *Node) Backoff() time.Duration {
	return time.Duration(n.DataInt(nodeDataBackoffSeconds, 1)) * time.Second
}

// ContinueOnFailure reports whether the walk should proceed to this node's
// children after its retries are exhausted.
func (n *Node) ContinueOnFailure() bool {
	return n.DataBool(nodeDataContinueOnFailure)
}

// Edge is a directed link between two nodes. SourceHandle marks the branch a
// condition node routes through ("true"/"false"); Data.Condition is an
// independent guard expression evaluated against the variable bag before the
// target is traversed.
type Edge struct {
	ID           string    `json:"id"`
	Source       string    `json:"source" validate:"required"`
	Target       string    `json:"target" validate:"required"`
	SourceHandle string    `json:"sourceHandle,omitempty"`
	Data         *EdgeData `json:"data,omitempty"`
}

// EdgeData carries the optional gating expression of an edge.
type EdgeData struct {
	Condition string `json:"condition,omitempty"`
}

// Condition returns the edge's guard expression, empty when unguarded.
func (e *Edge) Condition() string {
	if e.Data == nil {
		return ""
	}

	return e.Data.Condition
}

// MatchesHandle reports whether this edge participates in a condition branch.
// Edges without a source handle match either branch.
func (e *Edge) MatchesHandle(handle string) bool {
	return e.SourceHandle == "" || e.SourceHandle == handle
}

// NodeResult is the outcome of a single node execution.
type NodeResult struct {
	NodeID          string `json:"node_id"`
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	Output          any    `json:"output,omitempty"`
	ConditionResult *bool  `json:"condition_result,omitempty"`
	Error           string `json:"error,omitempty"`
}
