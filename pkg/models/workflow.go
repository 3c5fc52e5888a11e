// Package models defines the core domain models for graph-based workflow execution.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft       WorkflowStatus = "draft"       // Editable, not executable
	WorkflowStatusPublished   WorkflowStatus = "published"   // Current active, executable
	WorkflowStatusUnpublished WorkflowStatus = "unpublished" // Historical, not executable
)

// Workflow is an immutable declarative workflow definition. The engine only
// reads it; creation and editing belong to the external editor.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"      validate:"required"`
	Definition  *Definition    `json:"definition"  validate:"required"`
	Variables   map[string]any `json:"variables,omitempty"` // Seed variable bag for executions
	Version     int            `json:"version"`
	Owner       string         `json:"owner"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Definition holds the node/edge graph of a workflow. Viewport is purely
// presentational editor state and is ignored by the engine.
type Definition struct {
	Nodes    []*Node   `json:"nodes"`
	Edges    []*Edge   `json:"edges"`
	Viewport *Viewport `json:"viewport,omitempty"`
}

// Viewport carries editor pan/zoom state for the external UI.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// NodeByID returns the node with the given id, or nil.
func (d *Definition) NodeByID(id string) *Node {
	for _, node := range d.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// StartNode returns the workflow's start node. Well-formed definitions carry
// exactly one; the first is used if the editor produced more.
func (d *Definition) StartNode() *Node {
	for _, node := range d.Nodes {
		if node.Type == NodeTypeStart {
			return node
		}
	}

	return nil
}

// OutgoingEdges returns every edge whose source is the given node id, in
// definition order.
func (d *Definition) OutgoingEdges(nodeID string) []*Edge {
	var edges []*Edge

	for _, edge := range d.Edges {
		if edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}

// DetectCycle reports the first node found to be reachable from itself. The
// walker assumes a DAG; definitions with cycles are rejected before execution
// rather than recursing forever.
func (d *Definition) DetectCycle() (string, bool) {
	const (
		unvisited = iota
		inProgress
		done
	)

	colors := make(map[string]int, len(d.Nodes))

	var visit func(nodeID string) (string, bool)

	visit = func(nodeID string) (string, bool) {
		colors[nodeID] = inProgress

		for _, edge := range d.OutgoingEdges(nodeID) {
			switch colors[edge.Target] {
			case inProgress:
				return edge.Target, true
			case unvisited:
				if offender, found := visit(edge.Target); found {
					return offender, true
				}
			}
		}

		colors[nodeID] = done

		return "", false
	}

	for _, node := range d.Nodes {
		if colors[node.ID] == unvisited {
			if offender, found := visit(node.ID); found {
				return offender, true
			}
		}
	}

	return "", false
}
