package protocol

import "context"

// TriggerCallback is invoked by a trigger when a workflow should run.
// Variables override the workflow's seed variables for the triggered run.
type TriggerCallback func(ctx context.Context, workflowID, startedBy string, variables map[string]any) error

// Trigger starts workflow executions from an external stimulus (queue
// message, cron tick).
type Trigger interface {
	// Validate checks the trigger configuration before Start.
	Validate(ctx context.Context) error

	// Start begins listening and invokes the callback for each stimulus.
	Start(ctx context.Context, callback TriggerCallback) error

	// Stop shuts the trigger down and waits for in-flight work.
	Stop(ctx context.Context) error
}
