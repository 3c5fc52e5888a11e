package engine

import "errors"

var (
	// ErrNoStartNode is returned when a workflow definition has no start node.
	ErrNoStartNode = errors.New("workflow definition has no start node")

	// ErrCyclicDefinition is returned when the workflow graph contains a cycle.
	ErrCyclicDefinition = errors.New("workflow definition contains a cycle")

	// ErrExecutionFinished is returned when canceling an execution that
	// already reached a terminal state.
	ErrExecutionFinished = errors.New("execution already finished")

	// ErrWorkflowNotExecutable is returned when a workflow in draft or
	// unpublished status is submitted for execution.
	ErrWorkflowNotExecutable = errors.New("workflow is not executable")
)
