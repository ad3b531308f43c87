package usecases

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealerhub/internal/entities"
)

// leadScenario is the canonical capture flow: greeting, two inputs, a
// save_lead action and a closing message.
func leadScenario() *entities.Scenario {
	sc := &entities.Scenario{
		ID:          1,
		Name:        "Lead capture",
		EntryNodeID: "start",
		IsActive:    true,
		Nodes: []entities.ScenarioNode{
			{ID: "start", Type: entities.NodeStart, NextNodeID: "greet"},
			{ID: "greet", Type: entities.NodeMessage, Content: entities.NodeContent{Text: "Hi! Let's find you a car."}, NextNodeID: "ask_name"},
			{ID: "ask_name", Type: entities.NodeAskInput, Content: entities.NodeContent{Prompt: "What's your name?", Variable: "name"}, NextNodeID: "ask_phone"},
			{ID: "ask_phone", Type: entities.NodeAskInput, Content: entities.NodeContent{Prompt: "Your phone number?", Variable: "phone"}, NextNodeID: "save"},
			{ID: "save", Type: entities.NodeAction, Content: entities.NodeContent{Actions: []string{"save_lead"}}, NextNodeID: "done"},
			{ID: "done", Type: entities.NodeMessage, Content: entities.NodeContent{Text: "Thanks {{name}}, we'll call you!"}},
		},
	}
	if err := sc.Validate(); err != nil {
		panic(err)
	}
	return sc
}

func textEvent(text string) entities.InboundEvent {
	return entities.InboundEvent{UpdateID: 1, BotID: 1, ChatID: "100", Platform: "telegram", Kind: entities.EventText, Text: text}
}

func callbackEvent(data string) entities.InboundEvent {
	return entities.InboundEvent{UpdateID: 1, BotID: 1, ChatID: "100", Platform: "telegram", Kind: entities.EventCallback, Text: data, CallbackID: "cb1"}
}

func TestInterpreterLeadFlow(t *testing.T) {
	sc := leadScenario()
	actions := &fakeActions{}
	it := NewInterpreter(&fakeInventory{}, actions)
	s := entities.NewSession(1, "100", "telegram", sc)
	ctx := context.Background()

	// Turn 1: fresh session runs from the entry to the first input.
	effects, err := it.Step(ctx, sc, s, textEvent("/lead"))
	require.NoError(t, err)
	require.Len(t, effects, 2)
	assert.Equal(t, "Hi! Let's find you a car.", effects[0].Text)
	assert.Equal(t, "What's your name?", effects[1].Text)
	assert.Equal(t, "ask_name", s.State)

	// Turn 2: name captured, next prompt goes out.
	effects, err = it.Step(ctx, sc, s, textEvent("Ada"))
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, "Your phone number?", effects[0].Text)
	assert.Equal(t, "Ada", s.Variables["name"])
	assert.Equal(t, "ask_phone", s.State)

	// Turn 3: phone captured, the action runs, the closer interpolates.
	effects, err = it.Step(ctx, sc, s, textEvent("+37120000000"))
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, "Thanks Ada, we'll call you!", effects[0].Text)
	assert.Equal(t, []string{"save_lead"}, actions.ran)
	assert.Equal(t, "done", s.State)
	assert.Equal(t, 3, s.MessageCount)
}

func TestInterpreterActionFailureLeavesSessionUntouched(t *testing.T) {
	sc := leadScenario()
	it := NewInterpreter(&fakeInventory{}, &fakeActions{err: errors.New("db down")})
	s := entities.NewSession(1, "100", "telegram", sc)
	ctx := context.Background()

	_, err := it.Step(ctx, sc, s, textEvent("hi"))
	require.NoError(t, err)
	_, err = it.Step(ctx, sc, s, textEvent("Ada"))
	require.NoError(t, err)

	before := *s
	effects, err := it.Step(ctx, sc, s, textEvent("+37120000000"))
	require.Error(t, err)
	assert.Nil(t, effects)
	// The failed turn changed nothing: same node, no phone captured.
	assert.Equal(t, before.State, s.State)
	assert.NotContains(t, s.Variables, "phone")
	assert.Equal(t, before.MessageCount, s.MessageCount)
}

func TestInterpreterMenu(t *testing.T) {
	sc := &entities.Scenario{
		ID:          2,
		EntryNodeID: "menu",
		Nodes: []entities.ScenarioNode{
			{ID: "menu", Type: entities.NodeMenu, Content: entities.NodeContent{
				Prompt:  "New or used?",
				Buttons: []entities.Button{{Label: "New", Data: "new"}, {Label: "Used", Data: "used"}},
			}, Branches: map[string]string{"new": "new_msg", "used": "used_msg"}},
			{ID: "new_msg", Type: entities.NodeMessage, Content: entities.NodeContent{Text: "Fresh from the factory."}},
			{ID: "used_msg", Type: entities.NodeMessage, Content: entities.NodeContent{Text: "Checked and serviced."}},
		},
	}
	require.NoError(t, sc.Validate())
	it := NewInterpreter(&fakeInventory{}, &fakeActions{})
	ctx := context.Background()

	t.Run("callback choice follows the branch", func(t *testing.T) {
		s := entities.NewSession(1, "100", "telegram", sc)
		effects, err := it.Step(ctx, sc, s, textEvent("hello"))
		require.NoError(t, err)
		require.Len(t, effects, 1)
		assert.Equal(t, entities.EffectShowMenu, effects[0].Kind)
		assert.Equal(t, "menu", s.State)

		effects, err = it.Step(ctx, sc, s, callbackEvent("used"))
		require.NoError(t, err)
		require.Len(t, effects, 2)
		assert.Equal(t, entities.EffectAnswerCallback, effects[0].Kind)
		assert.Equal(t, "Checked and serviced.", effects[1].Text)
		assert.Equal(t, "used_msg", s.State)
	})

	t.Run("stale callback is answered but does not move", func(t *testing.T) {
		s := entities.NewSession(1, "100", "telegram", sc)
		_, err := it.Step(ctx, sc, s, textEvent("hello"))
		require.NoError(t, err)

		effects, err := it.Step(ctx, sc, s, callbackEvent("deleted_option"))
		require.NoError(t, err)
		require.Len(t, effects, 1)
		assert.Equal(t, entities.EffectAnswerCallback, effects[0].Kind)
		assert.Equal(t, "menu", s.State)
	})

	t.Run("typed label works without buttons", func(t *testing.T) {
		s := entities.NewSession(1, "100", "whatsapp", sc)
		_, err := it.Step(ctx, sc, s, textEvent("hello"))
		require.NoError(t, err)

		effects, err := it.Step(ctx, sc, s, textEvent("new"))
		require.NoError(t, err)
		require.Len(t, effects, 1)
		assert.Equal(t, "Fresh from the factory.", effects[0].Text)
		assert.Equal(t, "new_msg", s.State)
	})

	t.Run("typed choice number works without buttons", func(t *testing.T) {
		s := entities.NewSession(1, "100", "whatsapp", sc)
		_, err := it.Step(ctx, sc, s, textEvent("hello"))
		require.NoError(t, err)

		effects, err := it.Step(ctx, sc, s, textEvent("2"))
		require.NoError(t, err)
		require.Len(t, effects, 1)
		assert.Equal(t, "Checked and serviced.", effects[0].Text)
	})

	t.Run("unmatched text is a quiet no-op", func(t *testing.T) {
		s := entities.NewSession(1, "100", "whatsapp", sc)
		_, err := it.Step(ctx, sc, s, textEvent("hello"))
		require.NoError(t, err)

		effects, err := it.Step(ctx, sc, s, textEvent("something else"))
		require.NoError(t, err)
		assert.Empty(t, effects)
		assert.Equal(t, "menu", s.State)
	})
}

func TestInterpreterSearchCars(t *testing.T) {
	sc := &entities.Scenario{
		ID:          3,
		EntryNodeID: "search",
		Nodes: []entities.ScenarioNode{
			{ID: "search", Type: entities.NodeSearchCars, Content: entities.NodeContent{Prompt: "What are you looking for?", Variable: "query"}, NextNodeID: "bye"},
			{ID: "bye", Type: entities.NodeMessage, Content: entities.NodeContent{Text: "Anything else, just ask."}},
		},
	}
	require.NoError(t, sc.Validate())

	inv := &fakeInventory{cars: []entities.Car{{ID: 1, Brand: "Toyota", Model: "Camry", Price: 18500, Year: 2021, City: "Riga"}}}
	it := NewInterpreter(inv, &fakeActions{})
	s := entities.NewSession(1, "100", "telegram", sc)
	ctx := context.Background()

	effects, err := it.Step(ctx, sc, s, textEvent("hi"))
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, "What are you looking for?", effects[0].Text)

	effects, err = it.Step(ctx, sc, s, textEvent("camry"))
	require.NoError(t, err)
	require.Len(t, effects, 2)
	assert.Contains(t, effects[0].Text, "Toyota Camry")
	assert.Equal(t, "Anything else, just ask.", effects[1].Text)
	assert.Equal(t, []string{"camry"}, inv.queries)
	assert.Equal(t, "camry", s.Variables["query"])
}

func TestInterpreterGraphSafety(t *testing.T) {
	it := NewInterpreter(&fakeInventory{}, &fakeActions{})
	ctx := context.Background()

	t.Run("cycle without a waiting node hits the hop budget", func(t *testing.T) {
		sc := &entities.Scenario{
			ID:          4,
			EntryNodeID: "a",
			Nodes: []entities.ScenarioNode{
				{ID: "a", Type: entities.NodeMessage, Content: entities.NodeContent{Text: "a"}, NextNodeID: "b"},
				{ID: "b", Type: entities.NodeMessage, Content: entities.NodeContent{Text: "b"}, NextNodeID: "a"},
			},
		}
		s := entities.NewSession(1, "100", "telegram", sc)
		_, err := it.Step(ctx, sc, s, textEvent("go"))
		assert.ErrorIs(t, err, entities.ErrHopBudget)
	})

	t.Run("dangling reference fails without moving the session", func(t *testing.T) {
		sc := &entities.Scenario{
			ID:          5,
			EntryNodeID: "a",
			Nodes: []entities.ScenarioNode{
				{ID: "a", Type: entities.NodeMessage, Content: entities.NodeContent{Text: "a"}, NextNodeID: "ghost"},
			},
		}
		s := entities.NewSession(1, "100", "telegram", sc)
		before := s.State
		_, err := it.Step(ctx, sc, s, textEvent("go"))
		assert.ErrorIs(t, err, entities.ErrDanglingNode)
		assert.Equal(t, before, s.State)
	})

	t.Run("session parked on a deleted node restarts from the entry", func(t *testing.T) {
		sc := leadScenario()
		s := entities.NewSession(1, "100", "telegram", sc)
		s.State = "removed_by_editor"

		effects, err := it.Step(ctx, sc, s, textEvent("hi"))
		require.NoError(t, err)
		require.NotEmpty(t, effects)
		assert.Equal(t, "ask_name", s.State)
	})
}

func TestInterpreterCompletedFlowIsInert(t *testing.T) {
	ctx := context.Background()

	t.Run("terminal action runs once", func(t *testing.T) {
		sc := &entities.Scenario{
			ID:          6,
			EntryNodeID: "start",
			Nodes: []entities.ScenarioNode{
				{ID: "start", Type: entities.NodeStart, NextNodeID: "save"},
				{ID: "save", Type: entities.NodeAction, Content: entities.NodeContent{Actions: []string{"save_lead"}}},
			},
		}
		require.NoError(t, sc.Validate())
		actions := &fakeActions{}
		it := NewInterpreter(&fakeInventory{}, actions)
		s := entities.NewSession(1, "100", "telegram", sc)

		_, err := it.Step(ctx, sc, s, textEvent("hi"))
		require.NoError(t, err)
		assert.Equal(t, []string{"save_lead"}, actions.ran)
		assert.Equal(t, "save", s.State)

		effects, err := it.Step(ctx, sc, s, textEvent("hello again"))
		require.NoError(t, err)
		assert.Empty(t, effects)
		assert.Equal(t, []string{"save_lead"}, actions.ran)
	})

	t.Run("terminal message is not re-sent", func(t *testing.T) {
		sc := leadScenario()
		it := NewInterpreter(&fakeInventory{}, &fakeActions{})
		s := entities.NewSession(1, "100", "telegram", sc)

		_, err := it.Step(ctx, sc, s, textEvent("/lead"))
		require.NoError(t, err)
		_, err = it.Step(ctx, sc, s, textEvent("Ada"))
		require.NoError(t, err)
		_, err = it.Step(ctx, sc, s, textEvent("+37120000000"))
		require.NoError(t, err)
		require.Equal(t, "done", s.State)

		effects, err := it.Step(ctx, sc, s, textEvent("thanks"))
		require.NoError(t, err)
		assert.Empty(t, effects)
		assert.Equal(t, "done", s.State)
	})
}

func TestInterpolate(t *testing.T) {
	vars := map[string]string{"name": "Ada", "city": "Riga"}
	assert.Equal(t, "Hi Ada from Riga", interpolate("Hi {{name}} from {{ city }}", vars))
	assert.Equal(t, "Hi ", interpolate("Hi {{unknown}}", vars))
	assert.Equal(t, "no placeholders", interpolate("no placeholders", vars))
}

func TestButtonRows(t *testing.T) {
	buttons := make([]entities.Button, 5)
	for i := range buttons {
		buttons[i] = entities.Button{Label: fmt.Sprintf("b%d", i), Data: fmt.Sprintf("d%d", i)}
	}
	rows := buttonRows(buttons)
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 2)
	assert.Len(t, rows[1], 2)
	assert.Len(t, rows[2], 1)
}
