// Package engine executes workflow definitions: it walks the node graph,
// maintains per-execution state, and records a durable audit trail.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/veloflow/veloflow/pkg/condition"
	"github.com/veloflow/veloflow/pkg/eventbus"
	"github.com/veloflow/veloflow/pkg/events"
	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/persistence"
	"github.com/veloflow/veloflow/pkg/registry"
)

// Engine orchestrates workflow executions. ExecuteWorkflow returns as soon as
// the execution record exists; the walk itself runs on a background goroutine
// tracked for shutdown.
type Engine struct {
	store      persistence.Persistence
	registry   *registry.Registry
	conditions *condition.Evaluator
	logger     *slog.Logger

	eventBus eventbus.EventPublisher
	tracer   trace.Tracer

	mu      sync.Mutex
	running map[string]*Context

	wg sync.WaitGroup
}

// Option customizes optional engine collaborators.
type Option func(*Engine)

// WithEventBus publishes execution lifecycle events to the given bus.
func WithEventBus(bus eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.eventBus = bus
	}
}

// WithTracer enables span creation around node executions.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func New(store persistence.Persistence, reg *registry.Registry, conditions *condition.Evaluator, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		store:      store,
		registry:   reg,
		conditions: conditions,
		logger:     logger.With("module", "engine"),
		running:    make(map[string]*Context),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

func generateExecutionID() string {
	return "exec-" + uuid.New().String()[:8]
}

// ExecuteWorkflow starts an asynchronous execution of the given workflow and
// returns its execution id. The execution record and its audit log header are
// created synchronously so the id is immediately queryable; the graph walk
// runs in the background. Variable overrides take precedence over the
// workflow's own seed variables.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflowID, startedBy string, overrides map[string]any) (string, error) {
	workflow, err := e.store.Workflows().ByID(ctx, workflowID)
	if err != nil {
		return "", fmt.Errorf("load workflow %s: %w", workflowID, err)
	}

	if workflow.Status != models.WorkflowStatusPublished {
		return "", fmt.Errorf("workflow %s has status %s: %w", workflowID, workflow.Status, ErrWorkflowNotExecutable)
	}

	executionID := generateExecutionID()
	now := time.Now().UTC()

	seed := make(map[string]any, len(workflow.Variables)+len(overrides))
	for key, value := range workflow.Variables {
		seed[key] = value
	}

	for key, value := range overrides {
		seed[key] = value
	}

	execution := &models.WorkflowExecution{
		ID:         executionID,
		WorkflowID: workflowID,
		State:      models.ExecutionStatePending,
		StartedAt:  now,
		StartedBy:  startedBy,
		Variables:  seed,
	}

	err = e.store.Executions().Create(ctx, execution)
	if err != nil {
		return "", fmt.Errorf("create execution record: %w", err)
	}

	err = e.store.ExecutionLogs().Create(ctx, &models.ExecutionLog{
		ID:          uuid.New().String(),
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Status:      models.ExecutionLogStatusRunning,
		StartTime:   now,
	})
	if err != nil {
		return "", fmt.Errorf("create execution log: %w", err)
	}

	e.logger.Info("Execution accepted",
		"workflow_id", workflowID,
		"execution_id", executionID,
		"started_by", startedBy)

	e.publish(ctx, events.ExecutionStarted{
		BaseEvent: e.baseEvent(events.ExecutionStartedEvent, workflowID, executionID),
		StartedBy: startedBy,
	})

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		// The walk outlives the caller's request context.
		e.startExecution(context.WithoutCancel(ctx), workflow, execution)
	}()

	return executionID, nil
}

// startExecution validates the definition, flips the record to running, walks
// the graph and finalizes the record. Every failure path lands in
// failExecution so the record and audit log always reach a terminal state.
func (e *Engine) startExecution(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution) {
	definition := workflow.Definition

	if definition == nil || definition.StartNode() == nil {
		e.failExecution(ctx, execution, ErrNoStartNode)

		return
	}

	if offender, cyclic := definition.DetectCycle(); cyclic {
		e.failExecution(ctx, execution,
			fmt.Errorf("%w: detected at node %s", ErrCyclicDefinition, offender))

		return
	}

	execCtx := NewContext(execution.ID, workflow.ID, execution.Variables, definition, e.store, e.logger)

	e.mu.Lock()
	e.running[execution.ID] = execCtx
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.running, execution.ID)
		e.mu.Unlock()
	}()

	execution.State = models.ExecutionStateRunning
	execution.NodeStates = execCtx.NodeStates()

	err := e.store.Executions().Update(ctx, execution)
	if err != nil {
		e.failExecution(ctx, execution, fmt.Errorf("mark execution running: %w", err))

		return
	}

	walker := NewWalker(definition, execCtx, e.registry, e.conditions, e.logger, e.tracer, e.notifyNode(workflow.ID, execution.ID))

	walkErr := walker.Run(ctx)

	if execCtx.IsCanceled() {
		// CancelExecution already finalized the record and the audit log.
		e.logger.Info("Execution walk stopped after cancellation", "execution_id", execution.ID)

		return
	}

	if walkErr != nil {
		execution.NodeStates = execCtx.NodeStates()
		execution.Logs = execCtx.LogLines()
		e.failExecution(ctx, execution, walkErr)

		return
	}

	e.completeExecution(ctx, execution, execCtx)
}

func (e *Engine) completeExecution(ctx context.Context, execution *models.WorkflowExecution, execCtx *Context) {
	now := time.Now().UTC()

	execution.State = models.ExecutionStateCompleted
	execution.CompletedAt = &now
	execution.Variables = execCtx.Variables()
	execution.NodeStates = execCtx.NodeStates()
	execution.Logs = execCtx.LogLines()
	execution.Output = execCtx.Output()

	err := e.store.Executions().Update(ctx, execution)
	if err != nil && !persistence.IsExecutionTerminal(err) {
		e.logger.Error("Failed to finalize execution record", "execution_id", execution.ID, "error", err)
	}

	err = e.store.ExecutionLogs().Finalize(ctx, execution.ID, models.ExecutionLogStatusCompleted, now)
	if err != nil {
		e.logger.Error("Failed to finalize execution log", "execution_id", execution.ID, "error", err)
	}

	e.logger.Info("Execution completed",
		"workflow_id", execution.WorkflowID,
		"execution_id", execution.ID,
		"duration", now.Sub(execution.StartedAt))

	e.publish(ctx, events.ExecutionCompleted{
		BaseEvent: e.baseEvent(events.ExecutionCompletedEvent, execution.WorkflowID, execution.ID),
		Output:    execution.Output,
		Duration:  now.Sub(execution.StartedAt),
	})
}

func (e *Engine) failExecution(ctx context.Context, execution *models.WorkflowExecution, cause error) {
	now := time.Now().UTC()

	execution.State = models.ExecutionStateFailed
	execution.CompletedAt = &now
	execution.Error = cause.Error()

	err := e.store.Executions().Update(ctx, execution)
	if err != nil && !persistence.IsExecutionTerminal(err) {
		e.logger.Error("Failed to persist failed execution", "execution_id", execution.ID, "error", err)
	}

	err = e.store.ExecutionLogs().Finalize(ctx, execution.ID, models.ExecutionLogStatusFailed, now)
	if err != nil {
		e.logger.Error("Failed to finalize execution log", "execution_id", execution.ID, "error", err)
	}

	e.logger.Error("Execution failed",
		"workflow_id", execution.WorkflowID,
		"execution_id", execution.ID,
		"error", cause)

	e.publish(ctx, events.ExecutionFailed{
		BaseEvent: e.baseEvent(events.ExecutionFailedEvent, execution.WorkflowID, execution.ID),
		Error:     cause.Error(),
	})
}

// CancelExecution requests cooperative cancellation of a live execution. The
// record is marked canceled immediately; nodes already in flight run to
// completion but no new nodes start. Canceling a finished execution is an
// error naming its terminal state.
func (e *Engine) CancelExecution(ctx context.Context, executionID, canceledBy string) error {
	execution, err := e.store.Executions().ByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("load execution %s: %w", executionID, err)
	}

	if execution.State.Terminal() {
		return fmt.Errorf("cannot cancel execution %s: already in state %s: %w",
			executionID, execution.State, ErrExecutionFinished)
	}

	e.mu.Lock()
	execCtx := e.running[executionID]
	e.mu.Unlock()

	if execCtx != nil {
		execCtx.Cancel()
		execution.Variables = execCtx.Variables()
		execution.NodeStates = execCtx.NodeStates()
		execution.Logs = execCtx.LogLines()
	}

	now := time.Now().UTC()
	execution.State = models.ExecutionStateCanceled
	execution.CompletedAt = &now

	err = e.store.Executions().Update(ctx, execution)
	if err != nil {
		return fmt.Errorf("persist cancellation of %s: %w", executionID, err)
	}

	err = e.store.ExecutionLogs().AppendEntry(ctx, &models.LogEntry{
		ID:          uuid.New().String(),
		ExecutionID: executionID,
		Level:       models.LogLevelWarn,
		Message:     fmt.Sprintf("Execution canceled by %s", canceledBy),
		Timestamp:   now,
	})
	if err != nil {
		e.logger.Error("Failed to record cancellation entry", "execution_id", executionID, "error", err)
	}

	err = e.store.ExecutionLogs().Finalize(ctx, executionID, models.ExecutionLogStatusFailed, now)
	if err != nil {
		e.logger.Error("Failed to finalize execution log", "execution_id", executionID, "error", err)
	}

	e.logger.Warn("Execution canceled",
		"execution_id", executionID,
		"canceled_by", canceledBy)

	e.publish(ctx, events.ExecutionCanceled{
		BaseEvent:  e.baseEvent(events.ExecutionCanceledEvent, execution.WorkflowID, executionID),
		CanceledBy: canceledBy,
	})

	return nil
}

// ExecutionStatus joins an execution record with its durable audit trail.
type ExecutionStatus struct {
	Execution *models.WorkflowExecution `json:"execution"`
	Log       *models.ExecutionLog      `json:"log,omitempty"`
	Entries   []*models.LogEntry        `json:"entries,omitempty"`
}

// GetExecutionStatus returns the execution record together with its audit log
// header and entries. A missing audit log is tolerated; a missing execution
// is persistence.ErrExecutionNotFound.
func (e *Engine) GetExecutionStatus(ctx context.Context, executionID string) (*ExecutionStatus, error) {
	execution, err := e.store.Executions().ByID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", executionID, err)
	}

	status := &ExecutionStatus{Execution: execution}

	log, err := e.store.ExecutionLogs().ByExecutionID(ctx, executionID)
	if err != nil && !errors.Is(err, persistence.ErrExecutionLogNotFound) {
		return nil, fmt.Errorf("load execution log %s: %w", executionID, err)
	}

	status.Log = log

	if log != nil {
		entries, err := e.store.ExecutionLogs().Entries(ctx, executionID)
		if err != nil {
			return nil, fmt.Errorf("load execution log entries %s: %w", executionID, err)
		}

		status.Entries = entries
	}

	return status, nil
}

// Shutdown waits for in-flight executions to drain or the context to expire.
func (e *Engine) Shutdown(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) notifyNode(workflowID, executionID string) func(ctx context.Context, nodeID string, state models.NodeState, errMsg string) {
	return func(ctx context.Context, nodeID string, state models.NodeState, errMsg string) {
		if state == models.NodeStateFailed {
			e.publish(ctx, events.NodeFailed{
				BaseEvent: e.baseEvent(events.NodeFailedEvent, workflowID, executionID),
				NodeID:    nodeID,
				Error:     errMsg,
			})

			return
		}

		e.publish(ctx, events.NodeFinished{
			BaseEvent: e.baseEvent(events.NodeFinishedEvent, workflowID, executionID),
			NodeID:    nodeID,
			State:     state,
		})
	}
}

func (e *Engine) baseEvent(eventType events.EventType, workflowID, executionID string) events.BaseEvent {
	return events.BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkflowID:  workflowID,
		ExecutionID: executionID,
	}
}

func (e *Engine) publish(ctx context.Context, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	err := e.eventBus.Publish(ctx, string(event.GetType()), event)
	if err != nil {
		e.logger.Error("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
