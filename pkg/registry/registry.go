// Package registry maintains the set of node executors available to the
// graph walker and validates workflow definitions against their schemas.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/veloflow/veloflow/pkg/models"
	"github.com/veloflow/veloflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

type Registry struct {
	logger    *slog.Logger
	executors map[models.NodeType]protocol.NodeExecutor
	fallback  protocol.NodeExecutor
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "registry"),
		executors: make(map[models.NodeType]protocol.NodeExecutor),
	}
}

// Register adds an executor for its node type, replacing any previous one.
func (r *Registry) Register(executor protocol.NodeExecutor) {
	r.executors[executor.Type()] = executor
}

// RegisterFallback sets the executor used for unknown node types. Unknown
// types must never abort a workflow, so the fallback is a passthrough.
func (r *Registry) RegisterFallback(executor protocol.NodeExecutor) {
	r.fallback = executor
}

// ExecutorFor resolves the executor for a node type, falling back to the
// registered passthrough for unknown types.
func (r *Registry) ExecutorFor(nodeType models.NodeType) protocol.NodeExecutor {
	if executor, ok := r.executors[nodeType]; ok {
		return executor
	}

	if r.fallback == nil {
		return nil
	}

	r.logger.Debug("No executor registered for node type, using passthrough", "node_type", nodeType)

	return r.fallback
}

// Types returns the registered node types.
func (r *Registry) Types() []models.NodeType {
	types := make([]models.NodeType, 0, len(r.executors))
	for nodeType := range r.executors {
		types = append(types, nodeType)
	}

	return types
}

// ValidateDefinition checks every node's data bag against the schema
// published by its executor. Nodes of unknown type are accepted as-is.
func (r *Registry) ValidateDefinition(definition *models.Definition) error {
	for _, node := range definition.Nodes {
		executor, ok := r.executors[node.Type]
		if !ok {
			continue
		}

		schema := executor.Schema()
		if schema == nil {
			continue
		}

		data := node.Data
		if data == nil {
			data = map[string]any{}
		}

		result, err := gojsonschema.Validate(
			gojsonschema.NewGoLoader(schema),
			gojsonschema.NewGoLoader(data),
		)
		if err != nil {
			return fmt.Errorf("failed to validate node %s: %w", node.ID, err)
		}

		if !result.Valid() {
			return fmt.Errorf("node %s (%s) has invalid data: %s", node.ID, node.Type, result.Errors()[0].String())
		}
	}

	return nil
}

// HealthCheck reports whether the registry is usable.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.executors) == 0 {
		return "no node executors registered", false
	}

	return fmt.Sprintf("%d node executors registered", len(r.executors)), true
}
