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

// ExecutionRepository handles execution records and their per-node states.
// Node states live in a child table so merge-patches touch single rows.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	variables, err := json.Marshal(execution.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, state, started_at, completed_at, started_by, variables, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.State,
		execution.StartedAt,
		execution.CompletedAt,
		execution.StartedBy,
		variables,
		execution.Error,
	)
	if err != nil {
		return persistence.NewExecutionError("create", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) ByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , state
		  , started_at
		  , completed_at
		  , started_by
		  , variables
		  , logs
		  , output
		  , error
		FROM executions
		WHERE id = $1
	`

	var (
		execution models.WorkflowExecution
		variables []byte
		logs      []byte
		output    []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.State,
		&execution.StartedAt,
		&execution.CompletedAt,
		&execution.StartedBy,
		&variables,
		&logs,
		&output,
		&execution.Error,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, persistence.NewExecutionError("load", id, err)
	}

	err = unmarshalInto(variables, &execution.Variables)
	if err != nil {
		return nil, persistence.NewExecutionError("load", id, err)
	}

	err = unmarshalInto(logs, &execution.Logs)
	if err != nil {
		return nil, persistence.NewExecutionError("load", id, err)
	}

	err = unmarshalInto(output, &execution.Output)
	if err != nil {
		return nil, persistence.NewExecutionError("load", id, err)
	}

	execution.NodeStates, err = r.nodeStates(ctx, id)
	if err != nil {
		return nil, err
	}

	return &execution, nil
}

// Update rewrites the execution row and its node states. Updates to an
// already terminal execution are rejected with ErrExecutionTerminal, except
// when the update itself carries the same terminal state.
func (r *ExecutionRepository) Update(ctx context.Context, execution *models.WorkflowExecution) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewExecutionError("update", execution.ID, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	current, err := lockExecutionState(ctx, tx, execution.ID)
	if err != nil {
		return err
	}

	if current.Terminal() && current != execution.State {
		return persistence.NewExecutionError("update", execution.ID, persistence.ErrExecutionTerminal)
	}

	variables, err := json.Marshal(execution.Variables)
	if err != nil {
		return persistence.NewExecutionError("update", execution.ID, err)
	}

	logs, err := json.Marshal(execution.Logs)
	if err != nil {
		return persistence.NewExecutionError("update", execution.ID, err)
	}

	output, err := json.Marshal(execution.Output)
	if err != nil {
		return persistence.NewExecutionError("update", execution.ID, err)
	}

	query := `
		UPDATE executions SET
			state = $2
		  , completed_at = $3
		  , variables = $4
		  , logs = $5
		  , output = $6
		  , error = $7
		WHERE id = $1
	`

	_, err = tx.ExecContext(ctx, query,
		execution.ID,
		execution.State,
		execution.CompletedAt,
		variables,
		logs,
		output,
		execution.Error,
	)
	if err != nil {
		return persistence.NewExecutionError("update", execution.ID, err)
	}

	for nodeID, state := range execution.NodeStates {
		err = upsertNodeState(ctx, tx, execution.ID, nodeID, state)
		if err != nil {
			return persistence.NewNodeStateError("update", execution.ID, nodeID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return persistence.NewExecutionError("update", execution.ID, err)
	}

	return nil
}

// PatchNodeState merge-patches a single node state row: fields the patch
// leaves unset keep their stored values. Terminal executions reject patches
// with ErrExecutionTerminal; backwards state transitions are rejected with
// ErrStateRegression.
func (r *ExecutionRepository) PatchNodeState(ctx context.Context, executionID, nodeID string, patch *models.NodeExecutionState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewNodeStateError("patch", executionID, nodeID, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	executionState, err := lockExecutionState(ctx, tx, executionID)
	if err != nil {
		return err
	}

	if executionState.Terminal() {
		return persistence.NewNodeStateError("patch", executionID, nodeID, persistence.ErrExecutionTerminal)
	}

	current, exists, err := lockNodeState(ctx, tx, executionID, nodeID)
	if err != nil {
		return persistence.NewNodeStateError("patch", executionID, nodeID, err)
	}

	if !exists {
		current = &models.NodeExecutionState{State: models.NodeStatePending}
	}

	if patch.State != "" && patch.State != current.State && !current.State.CanTransition(patch.State) {
		return persistence.NewNodeStateError("patch", executionID, nodeID, persistence.ErrStateRegression)
	}

	merged := mergeNodeState(current, patch)

	err = upsertNodeState(ctx, tx, executionID, nodeID, merged)
	if err != nil {
		return persistence.NewNodeStateError("patch", executionID, nodeID, err)
	}

	err = tx.Commit()
	if err != nil {
		return persistence.NewNodeStateError("patch", executionID, nodeID, err)
	}

	return nil
}

func (r *ExecutionRepository) nodeStates(ctx context.Context, executionID string) (map[string]*models.NodeExecutionState, error) {
	query := `
		SELECT node_id, state, started_at, completed_at, error, output
		FROM execution_node_states
		WHERE execution_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, persistence.NewExecutionError("load", executionID, err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	states := make(map[string]*models.NodeExecutionState)

	for rows.Next() {
		var (
			nodeID string
			state  models.NodeExecutionState
			output []byte
		)

		err = rows.Scan(&nodeID, &state.State, &state.StartedAt, &state.CompletedAt, &state.Error, &output)
		if err != nil {
			return nil, persistence.NewExecutionError("load", executionID, err)
		}

		err = unmarshalInto(output, &state.Output)
		if err != nil {
			return nil, persistence.NewExecutionError("load", executionID, err)
		}

		states[nodeID] = &state
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewExecutionError("load", executionID, err)
	}

	return states, nil
}

func lockExecutionState(ctx context.Context, tx *sql.Tx, executionID string) (models.ExecutionState, error) {
	var state models.ExecutionState

	err := tx.QueryRowContext(ctx, `SELECT state FROM executions WHERE id = $1 FOR UPDATE`, executionID).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", persistence.ErrExecutionNotFound
		}

		return "", persistence.NewExecutionError("lock", executionID, err)
	}

	return state, nil
}

func lockNodeState(ctx context.Context, tx *sql.Tx, executionID, nodeID string) (*models.NodeExecutionState, bool, error) {
	query := `
		SELECT state, started_at, completed_at, error, output
		FROM execution_node_states
		WHERE execution_id = $1 AND node_id = $2
		FOR UPDATE
	`

	var (
		state  models.NodeExecutionState
		output []byte
	)

	err := tx.QueryRowContext(ctx, query, executionID, nodeID).Scan(
		&state.State, &state.StartedAt, &state.CompletedAt, &state.Error, &output)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, err
	}

	err = unmarshalInto(output, &state.Output)
	if err != nil {
		return nil, false, err
	}

	return &state, true, nil
}

func mergeNodeState(current, patch *models.NodeExecutionState) *models.NodeExecutionState {
	merged := *current

	if patch.State != "" {
		merged.State = patch.State
	}

	if patch.StartedAt != nil {
		merged.StartedAt = patch.StartedAt
	}

	if patch.CompletedAt != nil {
		merged.CompletedAt = patch.CompletedAt
	}

	if patch.Error != "" {
		merged.Error = patch.Error
	}

	if patch.Output != nil {
		merged.Output = patch.Output
	}

	return &merged
}

func upsertNodeState(ctx context.Context, tx *sql.Tx, executionID, nodeID string, state *models.NodeExecutionState) error {
	output, err := json.Marshal(state.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	query := `
		INSERT INTO execution_node_states (execution_id, node_id, state, started_at, completed_at, error, output)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (execution_id, node_id) DO UPDATE SET
			state = EXCLUDED.state
		  , started_at = EXCLUDED.started_at
		  , completed_at = EXCLUDED.completed_at
		  , error = EXCLUDED.error
		  , output = EXCLUDED.output
	`

	_, err = tx.ExecContext(ctx, query,
		executionID, nodeID, state.State, state.StartedAt, state.CompletedAt, state.Error, output)

	return err
}

func unmarshalInto(raw []byte, target any) error {
	if len(raw) == 0 {
		return nil
	}

	return json.Unmarshal(raw, target)
}
