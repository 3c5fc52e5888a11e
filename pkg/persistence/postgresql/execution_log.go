package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/persistence"
)

// ExecutionLogRepository stores the durable audit trail: one log header per
// execution and its ordered entries.
type ExecutionLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionLogRepository(db *sql.DB, logger *slog.Logger) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db, logger: logger}
}

func (r *ExecutionLogRepository) Create(ctx context.Context, log *models.ExecutionLog) error {
	query := `
		INSERT INTO execution_logs (id, execution_id, workflow_id, status, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID, log.ExecutionID, log.WorkflowID, log.Status, log.StartTime, log.EndTime)
	if err != nil {
		return fmt.Errorf("failed to create execution log: %w", err)
	}

	return nil
}

func (r *ExecutionLogRepository) ByExecutionID(ctx context.Context, executionID string) (*models.ExecutionLog, error) {
	query := `
		SELECT id, execution_id, workflow_id, status, start_time, end_time
		FROM execution_logs
		WHERE execution_id = $1
	`

	var log models.ExecutionLog

	err := r.db.QueryRowContext(ctx, query, executionID).Scan(
		&log.ID, &log.ExecutionID, &log.WorkflowID, &log.Status, &log.StartTime, &log.EndTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionLogNotFound
		}

		return nil, fmt.Errorf("failed to load execution log: %w", err)
	}

	return &log, nil
}

func (r *ExecutionLogRepository) Finalize(ctx context.Context, executionID string, status models.ExecutionLogStatus, endTime time.Time) error {
	query := `
		UPDATE execution_logs SET status = $2, end_time = $3
		WHERE execution_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, executionID, status, endTime)
	if err != nil {
		return fmt.Errorf("failed to finalize execution log: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finalized rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrExecutionLogNotFound
	}

	return nil
}

func (r *ExecutionLogRepository) AppendEntry(ctx context.Context, entry *models.LogEntry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal entry data: %w", err)
	}

	query := `
		INSERT INTO execution_log_entries (id, execution_id, node_id, node_type, level, message, data, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID, entry.ExecutionID, entry.NodeID, entry.NodeType, entry.Level, entry.Message, data, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	return nil
}

func (r *ExecutionLogRepository) Entries(ctx context.Context, executionID string) ([]*models.LogEntry, error) {
	query := `
		SELECT id, execution_id, node_id, node_type, level, message, data, timestamp
		FROM execution_log_entries
		WHERE execution_id = $1
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]*models.LogEntry, 0)

	for rows.Next() {
		var (
			entry models.LogEntry
			data  []byte
		)

		err = rows.Scan(&entry.ID, &entry.ExecutionID, &entry.NodeID, &entry.NodeType,
			&entry.Level, &entry.Message, &data, &entry.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}

		err = unmarshalInto(data, &entry.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry data: %w", err)
		}

		entries = append(entries, &entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating log entries: %w", err)
	}

	return entries, nil
}
