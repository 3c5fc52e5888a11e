// Package cmd provides common initialization functions for the command-line
// binaries.
package cmd

import (
	"log/slog"
	"net/http"

	"github.com/veloflow/veloflow/pkg/agents"
	"github.com/veloflow/veloflow/pkg/condition"
	"github.com/veloflow/veloflow/pkg/nodes/agenttask"
	"github.com/veloflow/veloflow/pkg/nodes/conditional"
	"github.com/veloflow/veloflow/pkg/nodes/logmessage"
	"github.com/veloflow/veloflow/pkg/nodes/passthrough"
	"github.com/veloflow/veloflow/pkg/nodes/start"
	"github.com/veloflow/veloflow/pkg/nodes/stop"
	"github.com/veloflow/veloflow/pkg/nodes/task"
	"github.com/veloflow/veloflow/pkg/persistence"
	"github.com/veloflow/veloflow/pkg/registry"
)

// NewRegistry builds a registry with every native node executor registered,
// plus the passthrough fallback for unknown node types.
func NewRegistry(logger *slog.Logger, evaluator *condition.Evaluator, store persistence.Persistence) *registry.Registry {
	reg := registry.NewRegistry(logger)

	agentClient := agents.NewClient(http.DefaultClient, logger)

	reg.Register(start.NewExecutor())
	reg.Register(stop.NewExecutor())
	reg.Register(logmessage.NewExecutor())
	reg.Register(conditional.NewExecutor(evaluator))
	reg.Register(task.NewExecutor())
	reg.Register(agenttask.NewExecutor(store.Agents(), agentClient))

	reg.RegisterFallback(passthrough.NewExecutor())

	return reg
}
