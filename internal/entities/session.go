package entities

import "time"

// HistoryLimit bounds the per-session turn log. Oldest entries are evicted
// so a long-lived chat cannot grow a session record without bound.
const HistoryLimit = 50

// HistoryEntry is one recorded turn. History is audit/replay material only,
// it never drives control flow.
type HistoryEntry struct {
	At     time.Time `json:"at"`
	NodeID string    `json:"node_id"`
	Input  string    `json:"input,omitempty"`
	Note   string    `json:"note,omitempty"`
}

// Session is the per-(bot, chat) execution cursor plus captured variables.
// State holds the current node id and is the only cursor; the engine is the
// single writer. Created lazily on the first inbound event for the pair.
// A fresh or restarted session has an empty State: the graph has not been
// entered yet, and the next event runs the chain from the scenario entry.
type Session struct {
	ChatID       string            `json:"chat_id"`
	BotID        int               `json:"bot_id"`
	Platform     string            `json:"platform"` // "telegram" or "whatsapp"
	ScenarioID   int               `json:"scenario_id"`
	State        string            `json:"state"`
	Variables    map[string]string `json:"variables"`
	History      []HistoryEntry    `json:"history"`
	LastActive   time.Time         `json:"last_active"`
	MessageCount int               `json:"message_count"`
}

func NewSession(botID int, chatID, platform string, sc *Scenario) *Session {
	return &Session{
		ChatID:     chatID,
		BotID:      botID,
		Platform:   platform,
		ScenarioID: sc.ID,
		Variables:  make(map[string]string),
		LastActive: time.Now(),
	}
}

// Record appends a history entry, evicting the oldest past HistoryLimit.
func (s *Session) Record(nodeID, input, note string) {
	s.History = append(s.History, HistoryEntry{
		At:     time.Now(),
		NodeID: nodeID,
		Input:  input,
		Note:   note,
	})
	if len(s.History) > HistoryLimit {
		s.History = s.History[len(s.History)-HistoryLimit:]
	}
}

// Restart resets the cursor to before the scenario entry, keeping the chat
// binding: the event that caused the restart re-enters the graph and the
// entry prompts go out again. Sessions are never deleted automatically; this
// is the only reset path.
func (s *Session) Restart(sc *Scenario, note string) {
	s.ScenarioID = sc.ID
	s.State = ""
	s.Variables = make(map[string]string)
	s.Record(sc.EntryNodeID, "", note)
}
