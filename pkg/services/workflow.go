package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/persistence"
	"github.com/veloflow/veloflow/pkg/registry"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	validate    *validator.Validate
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, reg *registry.Registry) *Workflow {
	return &Workflow{
		persistence: persistence,
		registry:    reg,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflows returns all stored workflow definitions.
func (w *Workflow) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.Workflows().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID returns one workflow by id.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.Workflows().ByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch workflow %s: %w", id, err)
	}

	return workflow, nil
}

// SaveWorkflow validates and stores a workflow definition. Workflows arrive
// fully formed from the external editor; validation here is a gate, not an
// authoring aid.
func (w *Workflow) SaveWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, NewValidationError("SaveWorkflow", "workflow is required", ErrWorkflowNil)
	}

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	err := w.validate.Struct(workflow)
	if err != nil {
		return nil, NewValidationError("SaveWorkflow", err.Error(), ErrWorkflowInvalid)
	}

	err = w.validateDefinition(workflow.Definition)
	if err != nil {
		return nil, err
	}

	err = w.persistence.Workflows().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("save workflow %s: %w", workflow.ID, err)
	}

	return workflow, nil
}

// DeleteWorkflow removes a workflow definition.
func (w *Workflow) DeleteWorkflow(ctx context.Context, id string) error {
	err := w.persistence.Workflows().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete workflow %s: %w", id, err)
	}

	return nil
}

func (w *Workflow) validateDefinition(definition *models.Definition) error {
	if definition == nil || len(definition.Nodes) == 0 {
		return NewValidationError("SaveWorkflow", "definition has no nodes", ErrNodesRequired)
	}

	if definition.StartNode() == nil {
		return NewValidationError("SaveWorkflow", "definition has no start node", ErrStartNodeRequired)
	}

	seen := make(map[string]struct{}, len(definition.Nodes))

	for _, node := range definition.Nodes {
		if _, dup := seen[node.ID]; dup {
			return NewValidationError("SaveWorkflow",
				fmt.Sprintf("node id %s appears more than once", node.ID), ErrDuplicateNodeID)
		}

		seen[node.ID] = struct{}{}
	}

	for _, edge := range definition.Edges {
		if definition.NodeByID(edge.Source) == nil {
			return NewValidationError("SaveWorkflow",
				fmt.Sprintf("edge %s source %s does not exist", edge.ID, edge.Source), ErrDanglingEdge)
		}

		if definition.NodeByID(edge.Target) == nil {
			return NewValidationError("SaveWorkflow",
				fmt.Sprintf("edge %s target %s does not exist", edge.ID, edge.Target), ErrDanglingEdge)
		}
	}

	if offender, cyclic := definition.DetectCycle(); cyclic {
		return NewValidationError("SaveWorkflow",
			fmt.Sprintf("cycle detected at node %s", offender), ErrCyclicDefinition)
	}

	if w.registry != nil {
		err := w.registry.ValidateDefinition(definition)
		if err != nil {
			return NewValidationError("SaveWorkflow", err.Error(), ErrInvalidNodeData)
		}
	}

	return nil
}
