package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/persistence"
)

const (
	executionsDir    = "executions"
	executionLogsDir = "execution_logs"
	logEntriesDir    = "log_entries"
)

// ExecutionRepository handles execution documents. Parallel branches of one
// execution patch node states concurrently, so every read-modify-write cycle
// runs under the repository mutex.
type ExecutionRepository struct {
	root string
	mu   sync.Mutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (r *ExecutionRepository) Create(_ context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateID(execution.ID); err != nil {
		return fmt.Errorf("invalid execution id: %w", err)
	}

	return writeDoc(r.root, executionsDir, execution.ID, execution)
}

func (r *ExecutionRepository) ByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(id)
}

func (r *ExecutionRepository) load(id string) (*models.WorkflowExecution, error) {
	var execution models.WorkflowExecution

	err := readDoc(r.root, executionsDir, id, &execution, persistence.ErrExecutionNotFound)
	if err != nil {
		return nil, err
	}

	return &execution, nil
}

// Update replaces the mutable fields of the stored execution. Writes against
// a terminal execution fail with ErrExecutionTerminal.
func (r *ExecutionRepository) Update(_ context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load(execution.ID)
	if err != nil {
		return err
	}

	if current.State.Terminal() {
		return persistence.NewExecutionError("Update", execution.ID, persistence.ErrExecutionTerminal)
	}

	return writeDoc(r.root, executionsDir, execution.ID, execution)
}

// PatchNodeState merges patch into the stored record for (executionID,
// nodeID). Only non-zero fields of patch are applied, so a completion patch
// cannot clobber the started timestamp written by an earlier patch.
func (r *ExecutionRepository) PatchNodeState(_ context.Context, executionID, nodeID string, patch *models.NodeExecutionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.load(executionID)
	if err != nil {
		return err
	}

	if execution.State.Terminal() {
		return persistence.NewNodeStateError("PatchNodeState", executionID, nodeID, persistence.ErrExecutionTerminal)
	}

	if execution.NodeStates == nil {
		execution.NodeStates = make(map[string]*models.NodeExecutionState)
	}

	current, exists := execution.NodeStates[nodeID]
	if !exists {
		current = &models.NodeExecutionState{State: models.NodeStatePending}
		execution.NodeStates[nodeID] = current
	}

	if patch.State != "" && patch.State != current.State && !current.State.CanTransition(patch.State) {
		return persistence.NewNodeStateError("PatchNodeState", executionID, nodeID, persistence.ErrStateRegression)
	}

	err = mergo.Merge(current, patch, mergo.WithOverride)
	if err != nil {
		return persistence.NewNodeStateError("PatchNodeState", executionID, nodeID, err)
	}

	return writeDoc(r.root, executionsDir, executionID, execution)
}

// ExecutionLogRepository handles the durable audit trail. Log headers are
// keyed by execution id; entries are appended to a JSON-lines file to
// preserve arrival order.
type ExecutionLogRepository struct {
	root string
	mu   sync.Mutex
}

func NewExecutionLogRepository(root string) *ExecutionLogRepository {
	return &ExecutionLogRepository{root: root}
}

func (r *ExecutionLogRepository) Create(_ context.Context, log *models.ExecutionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateID(log.ExecutionID); err != nil {
		return fmt.Errorf("invalid execution id: %w", err)
	}

	return writeDoc(r.root, executionLogsDir, log.ExecutionID, log)
}

func (r *ExecutionLogRepository) ByExecutionID(_ context.Context, executionID string) (*models.ExecutionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var log models.ExecutionLog

	err := readDoc(r.root, executionLogsDir, executionID, &log, persistence.ErrExecutionLogNotFound)
	if err != nil {
		return nil, err
	}

	return &log, nil
}

func (r *ExecutionLogRepository) Finalize(_ context.Context, executionID string, status models.ExecutionLogStatus, endTime time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var log models.ExecutionLog

	err := readDoc(r.root, executionLogsDir, executionID, &log, persistence.ErrExecutionLogNotFound)
	if err != nil {
		return err
	}

	log.Status = status
	log.EndTime = &endTime

	return writeDoc(r.root, executionLogsDir, executionID, &log)
}

func (r *ExecutionLogRepository) AppendEntry(_ context.Context, entry *models.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateID(entry.ExecutionID); err != nil {
		return fmt.Errorf("invalid execution id: %w", err)
	}

	entriesDir := filepath.Join(r.root, logEntriesDir)

	err := os.MkdirAll(entriesDir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create log entries directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	path := filepath.Join(entriesDir, entry.ExecutionID+".jsonl")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // #nosec G304 -- execution id is validated above
	if err != nil {
		return fmt.Errorf("failed to open log entries file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	_, err = f.Write(append(data, '\n'))
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	return nil
}

func (r *ExecutionLogRepository) Entries(_ context.Context, executionID string) ([]*models.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateID(executionID); err != nil {
		return nil, fmt.Errorf("invalid execution id: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(r.root, logEntriesDir, executionID+".jsonl")) // #nosec G304 -- execution id is validated above
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read log entries for %s: %w", executionID, err)
	}

	var entries []*models.LogEntry

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var entry models.LogEntry

		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal log entry for %s: %w", executionID, err)
		}

		entries = append(entries, &entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan log entries for %s: %w", executionID, err)
	}

	return entries, nil
}
