package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dealerhub/internal/entities"
)

func TestScenarioValidate(t *testing.T) {
	t.Run("valid graph", func(t *testing.T) {
		sc := &entities.Scenario{
			ID:          1,
			EntryNodeID: "start",
			Nodes: []entities.ScenarioNode{
				{ID: "start", Type: entities.NodeStart, NextNodeID: "menu"},
				{ID: "menu", Type: entities.NodeMenu, Branches: map[string]string{"a": "end", "b": ""}},
				{ID: "end", Type: entities.NodeMessage},
			},
		}
		assert.NoError(t, sc.Validate())
	})

	t.Run("missing entry node", func(t *testing.T) {
		sc := &entities.Scenario{
			ID:          2,
			EntryNodeID: "gone",
			Nodes:       []entities.ScenarioNode{{ID: "start", Type: entities.NodeStart}},
		}
		assert.ErrorIs(t, sc.Validate(), entities.ErrMissingEntry)
	})

	t.Run("empty entry node id", func(t *testing.T) {
		sc := &entities.Scenario{ID: 3, Nodes: []entities.ScenarioNode{{ID: "start"}}}
		assert.ErrorIs(t, sc.Validate(), entities.ErrMissingEntry)
	})

	t.Run("dangling next reference", func(t *testing.T) {
		sc := &entities.Scenario{
			ID:          4,
			EntryNodeID: "start",
			Nodes: []entities.ScenarioNode{
				{ID: "start", Type: entities.NodeStart, NextNodeID: "missing"},
			},
		}
		assert.ErrorIs(t, sc.Validate(), entities.ErrDanglingNode)
	})

	t.Run("dangling branch reference", func(t *testing.T) {
		sc := &entities.Scenario{
			ID:          5,
			EntryNodeID: "menu",
			Nodes: []entities.ScenarioNode{
				{ID: "menu", Type: entities.NodeMenu, Branches: map[string]string{"a": "missing"}},
			},
		}
		assert.ErrorIs(t, sc.Validate(), entities.ErrDanglingNode)
	})
}

func TestNodeWaits(t *testing.T) {
	waiting := []entities.NodeType{entities.NodeAskInput, entities.NodeMenu, entities.NodeSearchCars}
	for _, typ := range waiting {
		n := entities.ScenarioNode{ID: "n", Type: typ}
		assert.True(t, n.Waits(), "%s should wait", typ)
	}

	passing := []entities.NodeType{entities.NodeStart, entities.NodeMessage, entities.NodeAction, entities.NodeShowCars}
	for _, typ := range passing {
		n := entities.ScenarioNode{ID: "n", Type: typ}
		assert.False(t, n.Waits(), "%s should not wait", typ)
	}
}

func TestScenarioNodeLookup(t *testing.T) {
	sc := &entities.Scenario{
		EntryNodeID: "a",
		Nodes: []entities.ScenarioNode{
			{ID: "a", Type: entities.NodeStart},
			{ID: "b", Type: entities.NodeMessage},
		},
	}
	assert.NotNil(t, sc.Node("a"))
	assert.Equal(t, "b", sc.Node("b").ID)
	assert.Nil(t, sc.Node("zzz"))
}
