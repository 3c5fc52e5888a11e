package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/persistence"
)

// AgentRepository handles agent-related database operations.
type AgentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAgentRepository(db *sql.DB, logger *slog.Logger) *AgentRepository {
	return &AgentRepository{db: db, logger: logger}
}

const agentColumns = `
	id
  , name
  , description
  , provider
  , endpoint
  , config
  , enabled
  , created_at
  , updated_at
`

func (r *AgentRepository) List(ctx context.Context) ([]*models.Agent, error) {
	query := `SELECT` + agentColumns + `FROM agents ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	agents := make([]*models.Agent, 0)

	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}

		agents = append(agents, agent)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating agents: %w", err)
	}

	return agents, nil
}

func (r *AgentRepository) ByID(ctx context.Context, id string) (*models.Agent, error) {
	query := `SELECT` + agentColumns + `FROM agents WHERE id = $1`

	agent, err := scanAgent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrAgentNotFound
		}

		return nil, fmt.Errorf("failed to scan agent: %w", err)
	}

	return agent, nil
}

func (r *AgentRepository) Save(ctx context.Context, agent *models.Agent) error {
	config, err := json.Marshal(agent.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	query := `
		INSERT INTO agents (id, name, description, provider, endpoint, config, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , provider = EXCLUDED.provider
		  , endpoint = EXCLUDED.endpoint
		  , config = EXCLUDED.config
		  , enabled = EXCLUDED.enabled
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		agent.ID,
		agent.Name,
		agent.Description,
		agent.Provider,
		agent.Endpoint,
		config,
		agent.Enabled,
		agent.CreatedAt,
		agent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save agent: %w", err)
	}

	return nil
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	var (
		agent  models.Agent
		config []byte
	)

	err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Description,
		&agent.Provider,
		&agent.Endpoint,
		&config,
		&agent.Enabled,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(config) > 0 {
		err = json.Unmarshal(config, &agent.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	return &agent, nil
}
