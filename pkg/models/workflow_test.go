package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionStartNode(t *testing.T) {
	t.Parallel()

	definition := &Definition{
		Nodes: []*Node{
			{ID: "log-1", Type: NodeTypeLogMessage},
			{ID: "start-1", Type: NodeTypeStart},
			{ID: "start-2", Type: NodeTypeStart},
		},
	}

	start := definition.StartNode()
	require.NotNil(t, start)
	assert.Equal(t, "start-1", start.ID)

	empty := &Definition{Nodes: []*Node{{ID: "log-1", Type: NodeTypeLogMessage}}}
	assert.Nil(t, empty.StartNode())
}

func TestDefinitionNodeByID(t *testing.T) {
	t.Parallel()

	definition := &Definition{
		Nodes: []*Node{
			{ID: "a", Type: NodeTypeStart},
			{ID: "b", Type: NodeTypeStop},
		},
	}

	require.NotNil(t, definition.NodeByID("b"))
	assert.Equal(t, NodeTypeStop, definition.NodeByID("b").Type)
	assert.Nil(t, definition.NodeByID("missing"))
}

func TestDefinitionOutgoingEdges(t *testing.T) {
	t.Parallel()

	definition := &Definition{
		Edges: []*Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "a", Target: "c"},
			{ID: "e3", Source: "b", Target: "c"},
		},
	}

	edges := definition.OutgoingEdges("a")
	require.Len(t, edges, 2)
	assert.Equal(t, "e1", edges[0].ID)
	assert.Equal(t, "e2", edges[1].ID)

	assert.Empty(t, definition.OutgoingEdges("c"))
}

func TestDefinitionDetectCycle(t *testing.T) {
	t.Parallel()

	acyclic := &Definition{
		Nodes: []*Node{
			{ID: "a", Type: NodeTypeStart},
			{ID: "b", Type: NodeTypeTask},
			{ID: "c", Type: NodeTypeStop},
		},
		Edges: []*Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "a", Target: "c"},
			{ID: "e3", Source: "b", Target: "c"},
		},
	}

	_, found := acyclic.DetectCycle()
	assert.False(t, found)

	cyclic := &Definition{
		Nodes: []*Node{
			{ID: "a", Type: NodeTypeStart},
			{ID: "b", Type: NodeTypeTask},
			{ID: "c", Type: NodeTypeTask},
		},
		Edges: []*Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "c"},
			{ID: "e3", Source: "c", Target: "b"},
		},
	}

	offender, found := cyclic.DetectCycle()
	assert.True(t, found)
	assert.Equal(t, "b", offender)

	selfLoop := &Definition{
		Nodes: []*Node{{ID: "a", Type: NodeTypeStart}},
		Edges: []*Edge{{ID: "e1", Source: "a", Target: "a"}},
	}

	offender, found = selfLoop.DetectCycle()
	assert.True(t, found)
	assert.Equal(t, "a", offender)
}
