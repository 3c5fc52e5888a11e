// Package agenttask provides the node that delegates work to an external
// HTTP-based agent service.
package agenttask

import (
	"context"
	"fmt"
	"time"

	"github.com/veloflow/veloflow/pkg/agents"
	"github.com/veloflow/veloflow/pkg/interpolate"
	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/persistence"
	"github.com/veloflow/veloflow/pkg/protocol"
)

const defaultTimeoutSeconds = 60

// Executor resolves the configured agent, shapes the provider-specific
// request and stores the raw response in the variable bag.
type Executor struct {
	agents persistence.AgentRepository
	client *agents.Client
}

func NewExecutor(agentRepo persistence.AgentRepository, client *agents.Client) *Executor {
	return &Executor{
		agents: agentRepo,
		client: client,
	}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeAgentTask
}

func (e *Executor) Execute(ctx context.Context, scope protocol.ExecutionScope, node *models.Node) (*models.NodeResult, error) {
	agentID, ok := node.DataString("agentId")
	if !ok || agentID == "" {
		return nil, fmt.Errorf("agent task node %s requires an agentId: %w", node.ID, protocol.ErrInvalidNodeConfig)
	}

	prompt, ok := node.DataString("taskPrompt")
	if !ok || prompt == "" {
		return nil, fmt.Errorf("agent task node %s requires a taskPrompt: %w", node.ID, protocol.ErrInvalidNodeConfig)
	}

	agent, err := e.agents.ByID(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent %s: %w", agentID, err)
	}

	variables := scope.Variables()

	outputFormat, _ := node.DataString("outputFormat")
	if outputFormat == "" {
		outputFormat = "text"
	}

	timeout := time.Duration(node.DataInt("timeout", defaultTimeoutSeconds)) * time.Second

	response, err := e.client.Invoke(ctx, agent, agents.InvokeRequest{
		Prompt:       interpolate.Interpolate(prompt, variables),
		OutputFormat: outputFormat,
		Variables:    variables,
		ExecutionID:  scope.ExecutionID(),
		WorkflowID:   scope.WorkflowID(),
	}, timeout)
	if err != nil {
		return nil, err
	}

	varName, ok := node.DataString("var")
	if !ok || varName == "" {
		varName = fmt.Sprintf("agent_%s_result", node.ID)
	}

	scope.SetVariable(varName, response)

	return &models.NodeResult{
		NodeID:  node.ID,
		Success: true,
		Output:  response,
	}, nil
}

func (e *Executor) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"agentId", "taskPrompt"},
		"properties": map[string]any{
			"agentId":      map[string]any{"type": "string", "minLength": 1},
			"taskPrompt":   map[string]any{"type": "string", "minLength": 1},
			"outputFormat": map[string]any{"enum": []any{"text", "json"}},
			"timeout":      map[string]any{"type": "number", "minimum": 1},
			"var":          map[string]any{"type": "string"},
		},
	}
}
