package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/persistence"
)

const (
	workflowsDir = "workflows"
	agentsDir    = "agents"
)

// WorkflowRepository handles workflow definition documents.
type WorkflowRepository struct {
	root string
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (r *WorkflowRepository) List(_ context.Context) ([]*models.Workflow, error) {
	var workflows []*models.Workflow

	err := listDocs(r.root, workflowsDir, func(data []byte) error {
		var workflow models.Workflow

		if err := json.Unmarshal(data, &workflow); err != nil {
			return fmt.Errorf("failed to unmarshal workflow: %w", err)
		}

		workflows = append(workflows, &workflow)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].ID < workflows[j].ID
	})

	return workflows, nil
}

func (r *WorkflowRepository) ByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := readDoc(r.root, workflowsDir, id, &workflow, persistence.ErrWorkflowNotFound)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	if err := validateID(workflow.ID); err != nil {
		return fmt.Errorf("invalid workflow id: %w", err)
	}

	return writeDoc(r.root, workflowsDir, workflow.ID, workflow)
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return fmt.Errorf("invalid workflow id: %w", err)
	}

	err := os.Remove(filepath.Join(r.root, workflowsDir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.ErrWorkflowNotFound
		}

		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

// AgentRepository handles agent definition documents.
type AgentRepository struct {
	root string
}

func NewAgentRepository(root string) *AgentRepository {
	return &AgentRepository{root: root}
}

func (r *AgentRepository) List(_ context.Context) ([]*models.Agent, error) {
	var agents []*models.Agent

	err := listDocs(r.root, agentsDir, func(data []byte) error {
		var agent models.Agent

		if err := json.Unmarshal(data, &agent); err != nil {
			return fmt.Errorf("failed to unmarshal agent: %w", err)
		}

		agents = append(agents, &agent)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(agents, func(i, j int) bool {
		return agents[i].ID < agents[j].ID
	})

	return agents, nil
}

func (r *AgentRepository) ByID(_ context.Context, id string) (*models.Agent, error) {
	var agent models.Agent

	err := readDoc(r.root, agentsDir, id, &agent, persistence.ErrAgentNotFound)
	if err != nil {
		return nil, err
	}

	return &agent, nil
}

func (r *AgentRepository) Save(_ context.Context, agent *models.Agent) error {
	if err := validateID(agent.ID); err != nil {
		return fmt.Errorf("invalid agent id: %w", err)
	}

	return writeDoc(r.root, agentsDir, agent.ID, agent)
}
