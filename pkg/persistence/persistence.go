// Package persistence provides the durable storage abstraction for
// workflows, agents, executions and their audit logs.
package persistence

import (
	"context"
	"time"

	"github.com/veloflow/veloflow/pkg/models"
)

// Persistence aggregates the repositories of one storage backend.
type Persistence interface {
	Workflows() WorkflowRepository
	Agents() AgentRepository
	Executions() ExecutionRepository
	ExecutionLogs() ExecutionLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions. The engine only reads
// them; writes exist for the editor boundary and for tests.
type WorkflowRepository interface {
	List(ctx context.Context) ([]*models.Workflow, error)
	ByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// AgentRepository stores external agent service definitions.
type AgentRepository interface {
	List(ctx context.Context) ([]*models.Agent, error)
	ByID(ctx context.Context, id string) (*models.Agent, error)
	Save(ctx context.Context, agent *models.Agent) error
}

// ExecutionRepository stores workflow execution records. Node-state updates
// are partial merges keyed by node id, never whole-document replacement, so
// concurrent sibling branches cannot clobber unrelated entries.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.WorkflowExecution) error
	ByID(ctx context.Context, id string) (*models.WorkflowExecution, error)

	// Update replaces the mutable fields of an execution record (state,
	// variables, logs, output, error, completion time). Updates against an
	// execution already in a terminal state fail with ErrExecutionTerminal.
	Update(ctx context.Context, execution *models.WorkflowExecution) error

	// PatchNodeState merges the non-zero fields of patch into the stored
	// node-state record for (executionID, nodeID). Patches that would
	// regress the node's state fail with ErrStateRegression; patches that
	// arrive after the execution reached a terminal state fail with
	// ErrExecutionTerminal.
	PatchNodeState(ctx context.Context, executionID, nodeID string, patch *models.NodeExecutionState) error
}

// ExecutionLogRepository stores the durable audit trail.
type ExecutionLogRepository interface {
	Create(ctx context.Context, log *models.ExecutionLog) error
	ByExecutionID(ctx context.Context, executionID string) (*models.ExecutionLog, error)
	Finalize(ctx context.Context, executionID string, status models.ExecutionLogStatus, endTime time.Time) error

	AppendEntry(ctx context.Context, entry *models.LogEntry) error
	Entries(ctx context.Context, executionID string) ([]*models.LogEntry, error)
}
