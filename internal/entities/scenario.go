package entities

import (
	"fmt"
	"time"
)

// NodeType discriminates scenario node variants. The editor stores nodes as
// loosely-typed JSON records; they are converted to typed nodes once at load.
type NodeType string

const (
	NodeStart      NodeType = "START"
	NodeMessage    NodeType = "MESSAGE"
	NodeAskInput   NodeType = "ASK_INPUT"
	NodeMenu       NodeType = "MENU"
	NodeAction     NodeType = "ACTION"
	NodeSearchCars NodeType = "SEARCH_CARS"
	NodeShowCars   NodeType = "SHOW_CARS"
)

// Button is one labeled choice of a MENU node. Data is the callback payload
// the chat platform echoes back when the button is pressed.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// NodeContent is the type-specific payload of a scenario node. Only the
// fields relevant to the node's type are populated.
type NodeContent struct {
	Text     string   `json:"text,omitempty"`     // MESSAGE / SHOW_CARS
	Prompt   string   `json:"prompt,omitempty"`   // ASK_INPUT / SEARCH_CARS / MENU title
	Variable string   `json:"variable,omitempty"` // ASK_INPUT / SEARCH_CARS capture target
	Buttons  []Button `json:"buttons,omitempty"`  // MENU choices
	Actions  []string `json:"actions,omitempty"`  // ACTION operation names
}

// ScenarioNode is one node of a scenario graph. NextNodeID is the single
// successor; MENU nodes use Branches (button data -> successor) instead.
// Editor layout coordinates are dropped at load, they carry no semantics.
type ScenarioNode struct {
	ID         string            `json:"id"`
	Type       NodeType          `json:"type"`
	Content    NodeContent       `json:"content"`
	NextNodeID string            `json:"next_node_id,omitempty"`
	Branches   map[string]string `json:"branches,omitempty"`
}

// Waits reports whether the node parks the session until the next inbound
// event. MESSAGE-like nodes never wait; input/menu nodes always do.
func (n *ScenarioNode) Waits() bool {
	switch n.Type {
	case NodeAskInput, NodeMenu, NodeSearchCars:
		return true
	}
	return false
}

// Scenario is an immutable-per-version conversational flow graph. Mutated
// only by the editor; the engine consumes it read-only.
type Scenario struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	TriggerCommand string         `json:"trigger_command"`
	Keywords       []string       `json:"keywords"`
	IsActive       bool           `json:"is_active"`
	EntryNodeID    string         `json:"entry_node_id"`
	Nodes          []ScenarioNode `json:"nodes"`
	UpdatedAt      time.Time      `json:"updated_at"`

	index map[string]*ScenarioNode
}

// Node resolves a node id within the scenario, nil if absent.
func (s *Scenario) Node(id string) *ScenarioNode {
	if s.index == nil {
		s.buildIndex()
	}
	return s.index[id]
}

func (s *Scenario) buildIndex() {
	s.index = make(map[string]*ScenarioNode, len(s.Nodes))
	for i := range s.Nodes {
		s.index[s.Nodes[i].ID] = &s.Nodes[i]
	}
}

// Validate checks the graph invariants: the entry node resolves and every
// next/branch reference is either empty or resolves to a node in the same
// scenario. Run once when a scenario is loaded, not on every step.
func (s *Scenario) Validate() error {
	s.buildIndex()

	if s.EntryNodeID == "" {
		return fmt.Errorf("scenario %d: %w: empty entry node id", s.ID, ErrMissingEntry)
	}
	if s.index[s.EntryNodeID] == nil {
		return fmt.Errorf("scenario %d: %w: entry node %q not found", s.ID, ErrMissingEntry, s.EntryNodeID)
	}

	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.ID == "" {
			return fmt.Errorf("scenario %d: node without id", s.ID)
		}
		if n.NextNodeID != "" && s.index[n.NextNodeID] == nil {
			return fmt.Errorf("scenario %d: node %q: %w: %q", s.ID, n.ID, ErrDanglingNode, n.NextNodeID)
		}
		for data, target := range n.Branches {
			if target != "" && s.index[target] == nil {
				return fmt.Errorf("scenario %d: node %q branch %q: %w: %q", s.ID, n.ID, data, ErrDanglingNode, target)
			}
		}
	}
	return nil
}
