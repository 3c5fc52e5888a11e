package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/veloflow/veloflow/pkg/condition"
	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/nodes/conditional"
	"github.com/veloflow/veloflow/pkg/otelhelper"
	"github.com/veloflow/veloflow/pkg/protocol"
	"github.com/veloflow/veloflow/pkg/registry"
)

// Walker drives one execution through the workflow graph: it executes nodes,
// follows outgoing edges with parallel fan-out, applies per-node retry and
// backoff, and propagates failures up the recursive walk.
//
// Join semantics are wait-all: every sibling branch settles before errors
// propagate, so retries and continue-on-failure in one branch are never cut
// short by a failure in another.
type Walker struct {
	definition *models.Definition
	execCtx    *Context
	registry   *registry.Registry
	conditions *condition.Evaluator
	logger     *slog.Logger
	tracer     trace.Tracer
	notify     func(ctx context.Context, nodeID string, state models.NodeState, errMsg string)
}

func NewWalker(
	definition *models.Definition,
	execCtx *Context,
	reg *registry.Registry,
	conditions *condition.Evaluator,
	logger *slog.Logger,
	tracer trace.Tracer,
	notify func(ctx context.Context, nodeID string, state models.NodeState, errMsg string),
) *Walker {
	return &Walker{
		definition: definition,
		execCtx:    execCtx,
		registry:   reg,
		conditions: conditions,
		logger:     logger.With("module", "graph_walker"),
		tracer:     tracer,
		notify:     notify,
	}
}

// Run walks the graph from the definition's start node.
func (w *Walker) Run(ctx context.Context) error {
	start := w.definition.StartNode()
	if start == nil {
		return ErrNoStartNode
	}

	_, err := w.executeNode(ctx, start, 0)

	return err
}

// executeNode is the recursive heart of the engine. retryCount tracks the
// current attempt for this node only; fan-out into children always starts
// fresh at zero.
func (w *Walker) executeNode(ctx context.Context, node *models.Node, retryCount int) (*models.NodeResult, error) {
	if w.execCtx.IsCanceled() {
		return nil, nil
	}

	// A join node is reached once per incoming branch; only the first
	// arrival executes it. Retry attempts re-enter with retryCount > 0.
	if retryCount == 0 && !w.execCtx.BeginNode(node.ID) {
		return nil, nil
	}

	w.execCtx.MarkNodeRunning(ctx, node)
	w.execCtx.Log(models.LogLevelInfo, node,
		fmt.Sprintf("Executing node: %s (%s)", node.ID, node.Type), nil)

	result, err := w.dispatch(ctx, node)
	if err != nil {
		return w.handleFailure(ctx, node, retryCount, err)
	}

	if result == nil {
		result = &models.NodeResult{NodeID: node.ID, Success: true}
	}

	w.execCtx.MarkNodeCompleted(ctx, node, result.Output)
	w.emit(ctx, node.ID, models.NodeStateCompleted, "")

	if node.Type == models.NodeTypeCondition {
		// Condition nodes select their own outgoing edges by branch handle
		// and return directly instead of the generic edge-following below.
		branch := false
		if result.ConditionResult != nil {
			branch = *result.ConditionResult
		}

		err := w.followEdges(ctx, node, w.branchEdges(ctx, node, branch))
		if err != nil {
			return nil, err
		}

		return result, nil
	}

	edges := w.definition.OutgoingEdges(node.ID)
	if len(edges) == 0 {
		// Leaf of the branch; stop nodes terminate here.
		return result, nil
	}

	err = w.followEdges(ctx, node, edges)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// dispatch resolves the node's executor and runs it under a span.
func (w *Walker) dispatch(ctx context.Context, node *models.Node) (*models.NodeResult, error) {
	executor := w.registry.ExecutorFor(node.Type)
	if executor == nil {
		return &models.NodeResult{NodeID: node.ID, Success: true}, nil
	}

	if w.tracer == nil {
		return executor.Execute(ctx, w.execCtx, node)
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "engine.node",
		attribute.String(otelhelper.ExecutionIDKey, w.execCtx.ExecutionID()),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	result, err := executor.Execute(ctx, w.execCtx, node)
	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, node.ID))
	}

	return result, err
}

// handleFailure applies the per-node retry policy and, once retries are
// exhausted, either continues into the node's children or propagates the
// error up the walk. Definition-level configuration errors bypass both the
// retry budget and continue-on-failure.
func (w *Walker) handleFailure(ctx context.Context, node *models.Node, retryCount int, execErr error) (*models.NodeResult, error) {
	w.execCtx.Log(models.LogLevelError, node,
		fmt.Sprintf("Node %s failed: %v", node.ID, execErr),
		map[string]any{"error": execErr.Error()},
	)

	fatal := errors.Is(execErr, protocol.ErrInvalidNodeConfig)

	if !fatal && retryCount < node.MaxRetries() {
		w.execCtx.Log(models.LogLevelInfo, node,
			fmt.Sprintf("Retrying node %s (attempt %d of %d)", node.ID, retryCount+1, node.MaxRetries()), nil)

		err := sleep(ctx, node.Backoff())
		if err != nil {
			w.execCtx.MarkNodeFailed(ctx, node, execErr.Error())

			return nil, fmt.Errorf("node %s retry interrupted: %w", node.ID, err)
		}

		return w.executeNode(ctx, node, retryCount+1)
	}

	w.execCtx.MarkNodeFailed(ctx, node, execErr.Error())
	w.emit(ctx, node.ID, models.NodeStateFailed, execErr.Error())

	if !fatal && node.ContinueOnFailure() {
		// Edge guards are re-evaluated against the current variable bag
		// before continuing into the children.
		err := w.followEdges(ctx, node, w.definition.OutgoingEdges(node.ID))
		if err != nil {
			return nil, err
		}

		return &models.NodeResult{NodeID: node.ID, Success: false, Error: execErr.Error()}, nil
	}

	return nil, fmt.Errorf("node %s failed: %w", node.ID, execErr)
}

// followEdges launches every eligible target concurrently and joins them
// all. Targets behind a false edge guard are marked skipped and never
// traversed.
func (w *Walker) followEdges(ctx context.Context, node *models.Node, edges []*models.Edge) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, edge := range edges {
		target := w.definition.NodeByID(edge.Target)
		if target == nil {
			errs = append(errs, fmt.Errorf("edge %s of node %s references unknown node %s", edge.ID, node.ID, edge.Target))

			continue
		}

		if guard := edge.Condition(); guard != "" && !w.conditions.Evaluate(guard, w.execCtx.Variables()) {
			w.execCtx.MarkNodeSkipped(ctx, target)
			w.execCtx.Log(models.LogLevelInfo, target,
				fmt.Sprintf("Skipping node %s: edge condition evaluated to false", target.ID), nil)
			w.emit(ctx, target.ID, models.NodeStateSkipped, "")

			continue
		}

		wg.Add(1)

		go func(target *models.Node) {
			defer wg.Done()

			_, err := w.executeNode(ctx, target, 0)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(target)
	}

	wg.Wait()

	return errors.Join(errs...)
}

// branchEdges selects the outgoing edges of a condition node matching the
// evaluated branch. Edges without a source handle match either branch.
// Targets on the branch not taken are marked skipped, unless the taken
// branch can still reach them downstream.
func (w *Walker) branchEdges(ctx context.Context, node *models.Node, result bool) []*models.Edge {
	handle := conditional.Handle(result)

	var selected, rejected []*models.Edge

	for _, edge := range w.definition.OutgoingEdges(node.ID) {
		if edge.MatchesHandle(handle) {
			selected = append(selected, edge)
		} else {
			rejected = append(rejected, edge)
		}
	}

	reachable := w.reachableFrom(selected)

	for _, edge := range rejected {
		target := w.definition.NodeByID(edge.Target)
		if target == nil {
			continue
		}

		if _, joined := reachable[target.ID]; joined {
			continue
		}

		w.execCtx.MarkNodeSkipped(ctx, target)
		w.execCtx.Log(models.LogLevelInfo, target,
			fmt.Sprintf("Skipping node %s: condition branch not taken", target.ID), nil)
		w.emit(ctx, target.ID, models.NodeStateSkipped, "")
	}

	return selected
}

// reachableFrom collects every node id reachable by following edges out of
// the given edges' targets.
func (w *Walker) reachableFrom(edges []*models.Edge) map[string]struct{} {
	reachable := make(map[string]struct{})

	queue := make([]string, 0, len(edges))
	for _, edge := range edges {
		queue = append(queue, edge.Target)
	}

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]

		if _, seen := reachable[nodeID]; seen {
			continue
		}

		reachable[nodeID] = struct{}{}

		for _, edge := range w.definition.OutgoingEdges(nodeID) {
			queue = append(queue, edge.Target)
		}
	}

	return reachable
}

func (w *Walker) emit(ctx context.Context, nodeID string, state models.NodeState, errMsg string) {
	if w.notify != nil {
		w.notify(ctx, nodeID, state, errMsg)
	}
}

// sleep waits for the retry backoff, honoring context cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
