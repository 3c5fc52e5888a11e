// Package main provides the Veloflow worker: it hosts the execution engine
// and starts runs from queue messages and cron schedules.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/veloflow/veloflow/pkg/cmd"
	"github.com/veloflow/veloflow/pkg/condition"
	"github.com/veloflow/veloflow/pkg/engine"
	"github.com/veloflow/veloflow/pkg/eventbus"
	"github.com/veloflow/veloflow/pkg/otelhelper"
	"github.com/veloflow/veloflow/pkg/persistence"
	"github.com/veloflow/veloflow/pkg/protocol"
	"github.com/veloflow/veloflow/pkg/triggers/queue"
	"github.com/veloflow/veloflow/pkg/triggers/schedule"
)

const shutdownTimeout = 30 * time.Second

type Worker struct {
	id          string
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	logger      *slog.Logger

	queueName string
	redisAddr string
	schedules []string

	engine   *engine.Engine
	triggers []protocol.Trigger
}

func NewWorker(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	queueName string,
	redisAddr string,
	schedules []string,
) *Worker {
	return &Worker{
		id:          id,
		persistence: persistence,
		eventBus:    eventBus,
		logger:      logger,
		queueName:   queueName,
		redisAddr:   redisAddr,
		schedules:   schedules,
	}
}

// Run starts the engine and every configured trigger, then blocks until the
// process receives an interrupt.
func (w *Worker) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	evaluator := condition.NewEvaluator(w.logger)
	registry := cmd.NewRegistry(w.logger, evaluator, w.persistence)

	engineOpts := []engine.Option{engine.WithEventBus(w.eventBus)}

	tracerProvider, err := otelhelper.InitTracer(ctx, "veloflow-worker")
	if err != nil {
		w.logger.Error("Failed to initialize tracer", "error", err)
	} else {
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				w.logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()

		engineOpts = append(engineOpts, engine.WithTracer(tracerProvider.Tracer("veloflow-worker")))
	}

	w.engine = engine.New(w.persistence, registry, evaluator, w.logger, engineOpts...)

	err = w.startTriggers(ctx)
	if err != nil {
		return err
	}

	if len(w.triggers) == 0 {
		return fmt.Errorf("no triggers configured; set --queue or --schedule")
	}

	w.logger.InfoContext(ctx, "Worker started", "triggers", len(w.triggers))

	<-ctx.Done()

	return w.shutdown()
}

func (w *Worker) startTriggers(ctx context.Context) error {
	callback := w.executeCallback()

	if w.queueName != "" {
		trigger, err := queue.NewTrigger(ctx, map[string]any{
			"queue": w.queueName,
			"connection": map[string]any{
				"addr": w.redisAddr,
			},
		}, w.logger)
		if err != nil {
			return fmt.Errorf("failed to create queue trigger: %w", err)
		}

		err = trigger.Start(ctx, callback)
		if err != nil {
			return fmt.Errorf("failed to start queue trigger: %w", err)
		}

		w.triggers = append(w.triggers, trigger)
	}

	for i, spec := range w.schedules {
		workflowID, cronExpr, found := strings.Cut(spec, "@")
		if !found {
			return fmt.Errorf("invalid schedule %q, expected 'workflow-id@cron-expr'", spec)
		}

		trigger, err := schedule.NewTrigger(map[string]any{
			"id":          fmt.Sprintf("%s-schedule-%d", w.id, i),
			"cron":        cronExpr,
			"workflow_id": workflowID,
		}, w.logger)
		if err != nil {
			return fmt.Errorf("failed to create schedule trigger: %w", err)
		}

		err = trigger.Start(ctx, callback)
		if err != nil {
			return fmt.Errorf("failed to start schedule trigger: %w", err)
		}

		w.triggers = append(w.triggers, trigger)
	}

	return nil
}

func (w *Worker) executeCallback() protocol.TriggerCallback {
	return func(ctx context.Context, workflowID, startedBy string, variables map[string]any) error {
		executionID, err := w.engine.ExecuteWorkflow(ctx, workflowID, startedBy, variables)
		if err != nil {
			return err
		}

		w.logger.InfoContext(ctx, "Triggered workflow execution",
			"workflow_id", workflowID,
			"execution_id", executionID,
			"started_by", startedBy)

		return nil
	}
}

func (w *Worker) shutdown() error {
	w.logger.Info("Shutting down worker")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, trigger := range w.triggers {
		err := trigger.Stop(ctx)
		if err != nil {
			w.logger.Error("Failed to stop trigger", "error", err)
		}
	}

	err := w.engine.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("engine shutdown: %w", err)
	}

	return nil
}
