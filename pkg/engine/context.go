package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/persistence"
)

// Context owns the mutable state of one execution: the variable bag, the
// per-node execution states, the accumulated log lines and the final output.
// Parallel branches share it, so every access goes through the mutex. State
// transitions are pushed to the durable store as merge-patches the moment
// they happen, keeping partial progress observable mid-run.
type Context struct {
	executionID string
	workflowID  string
	store       persistence.Persistence
	logger      *slog.Logger

	mu         sync.Mutex
	variables  map[string]any
	nodeStates map[string]*models.NodeExecutionState
	visited    map[string]struct{}
	logs       []models.ExecutionLogLine
	output     any

	canceled atomic.Bool
}

// NewContext builds the execution context with every node of the definition
// initialized to pending.
func NewContext(executionID, workflowID string, seed map[string]any, definition *models.Definition, store persistence.Persistence, logger *slog.Logger) *Context {
	variables := make(map[string]any, len(seed))
	for key, value := range seed {
		variables[key] = value
	}

	nodeStates := make(map[string]*models.NodeExecutionState, len(definition.Nodes))
	for _, node := range definition.Nodes {
		nodeStates[node.ID] = &models.NodeExecutionState{State: models.NodeStatePending}
	}

	return &Context{
		executionID: executionID,
		workflowID:  workflowID,
		store:       store,
		logger:      logger,
		variables:   variables,
		nodeStates:  nodeStates,
		visited:     make(map[string]struct{}, len(definition.Nodes)),
	}
}

// BeginNode records the first arrival at a node. Each node runs at most once
// per execution: later arrivals from sibling branches at a join node return
// false and must not re-execute it.
func (c *Context) BeginNode(nodeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, seen := c.visited[nodeID]; seen {
		return false
	}

	c.visited[nodeID] = struct{}{}

	return true
}

func (c *Context) ExecutionID() string {
	return c.executionID
}

func (c *Context) WorkflowID() string {
	return c.workflowID
}

// Variables returns a shallow snapshot of the variable bag.
func (c *Context) Variables() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make(map[string]any, len(c.variables))
	for key, value := range c.variables {
		snapshot[key] = value
	}

	return snapshot
}

// SetVariable writes into the variable bag. Keys are not namespaced per
// node: colliding writers across parallel branches race with
// last-write-wins semantics.
func (c *Context) SetVariable(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.variables[key] = value
}

func (c *Context) SetOutput(output any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.output = output
}

func (c *Context) Output() any {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.output
}

// Cancel flags the execution so branches stop at the next node boundary.
// In-flight executors run to completion or their own timeout.
func (c *Context) Cancel() {
	c.canceled.Store(true)
}

func (c *Context) IsCanceled() bool {
	return c.canceled.Load()
}

// NodeStates returns a deep snapshot of the per-node states.
func (c *Context) NodeStates() map[string]*models.NodeExecutionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make(map[string]*models.NodeExecutionState, len(c.nodeStates))
	for nodeID, state := range c.nodeStates {
		copied := *state
		snapshot[nodeID] = &copied
	}

	return snapshot
}

// LogLines returns a snapshot of the in-memory log lines.
func (c *Context) LogLines() []models.ExecutionLogLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]models.ExecutionLogLine, len(c.logs))
	copy(lines, c.logs)

	return lines
}

// Log appends a line to the in-memory log and a durable audit entry.
// Persistence failures here never fail the caller; logging is best-effort.
func (c *Context) Log(level models.LogLevel, node *models.Node, message string, data map[string]any) {
	now := time.Now().UTC()

	line := models.ExecutionLogLine{
		Level:     level,
		Message:   message,
		Timestamp: now,
	}

	entry := &models.LogEntry{
		ID:          uuid.New().String(),
		ExecutionID: c.executionID,
		Level:       level,
		Message:     message,
		Data:        data,
		Timestamp:   now,
	}

	if node != nil {
		line.NodeID = node.ID
		entry.NodeID = node.ID
		entry.NodeType = string(node.Type)
	}

	c.mu.Lock()
	c.logs = append(c.logs, line)
	c.mu.Unlock()

	err := c.store.ExecutionLogs().AppendEntry(context.Background(), entry)
	if err != nil {
		c.logger.Error("Failed to append durable log entry", "error", err, "message", message)
	}
}

// MarkNodeRunning transitions a node to running and stamps its start time.
// Re-entry on retry re-stamps the start time; the node stays running across
// retry attempts.
func (c *Context) MarkNodeRunning(ctx context.Context, node *models.Node) {
	now := time.Now().UTC()

	c.setNodeState(node.ID, func(state *models.NodeExecutionState) {
		state.State = models.NodeStateRunning
		state.StartedAt = &now
	})

	c.patchNodeState(ctx, node.ID, &models.NodeExecutionState{
		State:     models.NodeStateRunning,
		StartedAt: &now,
	})
}

// MarkNodeCompleted finalizes a node with its output.
func (c *Context) MarkNodeCompleted(ctx context.Context, node *models.Node, output any) {
	now := time.Now().UTC()

	c.setNodeState(node.ID, func(state *models.NodeExecutionState) {
		state.State = models.NodeStateCompleted
		state.CompletedAt = &now
		state.Output = output
	})

	c.patchNodeState(ctx, node.ID, &models.NodeExecutionState{
		State:       models.NodeStateCompleted,
		CompletedAt: &now,
		Output:      output,
	})
}

// MarkNodeFailed finalizes a node with its error message.
func (c *Context) MarkNodeFailed(ctx context.Context, node *models.Node, errMsg string) {
	now := time.Now().UTC()

	c.setNodeState(node.ID, func(state *models.NodeExecutionState) {
		state.State = models.NodeStateFailed
		state.CompletedAt = &now
		state.Error = errMsg
	})

	c.patchNodeState(ctx, node.ID, &models.NodeExecutionState{
		State:       models.NodeStateFailed,
		CompletedAt: &now,
		Error:       errMsg,
	})
}

// MarkNodeSkipped records that a conditional edge guard routed around the
// node. Skipped nodes are never transitioned to running.
func (c *Context) MarkNodeSkipped(ctx context.Context, node *models.Node) {
	now := time.Now().UTC()

	c.setNodeState(node.ID, func(state *models.NodeExecutionState) {
		state.State = models.NodeStateSkipped
		state.CompletedAt = &now
	})

	c.patchNodeState(ctx, node.ID, &models.NodeExecutionState{
		State:       models.NodeStateSkipped,
		CompletedAt: &now,
	})
}

// setNodeState applies mutate under the mutex, refusing regressions so the
// observed state sequence stays monotonic.
func (c *Context) setNodeState(nodeID string, mutate func(*models.NodeExecutionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, exists := c.nodeStates[nodeID]
	if !exists {
		state = &models.NodeExecutionState{State: models.NodeStatePending}
		c.nodeStates[nodeID] = state
	}

	next := *state
	mutate(&next)

	if next.State != state.State && !state.State.CanTransition(next.State) {
		c.logger.Error("Refusing node state regression",
			"node_id", nodeID, "from", state.State, "to", next.State)

		return
	}

	*state = next
}

// patchNodeState pushes a merge-patch for one node to the durable store.
// Writes that land after the execution reached a terminal state are stale
// and dropped; other persistence failures are logged and swallowed so the
// walk itself is never aborted by observability plumbing.
func (c *Context) patchNodeState(ctx context.Context, nodeID string, patch *models.NodeExecutionState) {
	err := c.store.Executions().PatchNodeState(ctx, c.executionID, nodeID, patch)
	if err == nil {
		return
	}

	if persistence.IsExecutionTerminal(err) {
		c.logger.DebugContext(ctx, "Dropping stale node-state write for terminal execution",
			"node_id", nodeID, "state", patch.State)

		return
	}

	c.logger.ErrorContext(ctx, "Failed to persist node-state transition",
		"node_id", nodeID, "state", patch.State, "error", err)
}
