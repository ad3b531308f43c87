package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dealerhub/internal/entities"
)

func TestChannelPostTransitions(t *testing.T) {
	cases := []struct {
		from    entities.PostStatus
		to      entities.PostStatus
		allowed bool
	}{
		{entities.PostActive, entities.PostUpdated, true},
		{entities.PostActive, entities.PostClosed, true},
		{entities.PostUpdated, entities.PostUpdated, true},
		{entities.PostUpdated, entities.PostClosed, true},
		{entities.PostClosed, entities.PostUpdated, false},
		{entities.PostClosed, entities.PostClosed, false},
		{entities.PostClosed, entities.PostActive, false},
		{entities.PostActive, entities.PostActive, false},
	}

	for _, tc := range cases {
		post := entities.ChannelPost{Status: tc.from}
		assert.Equal(t, tc.allowed, post.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestSessionHistoryBounded(t *testing.T) {
	s := &entities.Session{Variables: map[string]string{}}
	for i := 0; i < entities.HistoryLimit+20; i++ {
		s.Record("node", "input", "")
	}
	assert.Len(t, s.History, entities.HistoryLimit)
}

func TestSessionRestart(t *testing.T) {
	sc := &entities.Scenario{ID: 7, EntryNodeID: "start"}
	s := entities.NewSession(1, "100", "telegram", sc)
	s.State = "somewhere"
	s.Variables["name"] = "Ada"

	s.Restart(sc, "restart: /start")

	// Pre-entry: the restarting event re-enters the graph from the top.
	assert.Empty(t, s.State)
	assert.Empty(t, s.Variables)
	assert.Equal(t, 7, s.ScenarioID)
	assert.NotEmpty(t, s.History)
}
