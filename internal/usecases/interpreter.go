package usecases

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dealerhub/internal/entities"
	"dealerhub/internal/interfaces"
	"dealerhub/internal/repository"
)

// MaxHopsPerTurn bounds the chain of non-interactive nodes one inbound event
// may execute. A cyclic graph with no waiting node hits this and surfaces as
// a graph error instead of spinning.
const MaxHopsPerTurn = 64

var varPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Interpreter advances a session through a scenario graph. Step computes the
// transition for one inbound event: it either succeeds and leaves the session
// parked at the next waiting node, or fails and leaves the session exactly as
// it was loaded.
type Interpreter struct {
	Inventory interfaces.InventoryQuerier
	Actions   interfaces.ActionRunner
}

func NewInterpreter(inventory interfaces.InventoryQuerier, actions interfaces.ActionRunner) *Interpreter {
	return &Interpreter{Inventory: inventory, Actions: actions}
}

// Step runs one turn. The session is mutated only on success; on any graph
// or action error the original record is untouched so the event can be
// retried against unchanged state.
func (it *Interpreter) Step(ctx context.Context, sc *entities.Scenario, s *entities.Session, ev entities.InboundEvent) ([]entities.Effect, error) {
	work := cloneSession(s)

	effects, err := it.step(ctx, sc, work, ev)
	if err != nil {
		return nil, err
	}

	work.LastActive = time.Now()
	work.MessageCount++
	*s = *work
	return effects, nil
}

func (it *Interpreter) step(ctx context.Context, sc *entities.Scenario, s *entities.Session, ev entities.InboundEvent) ([]entities.Effect, error) {
	if s.State == "" {
		// Fresh or restarted session: this event enters the graph, so the
		// first waiting node gets its prompt before anything is consumed
		// as input.
		return it.runChain(ctx, sc, s, sc.EntryNodeID, nil)
	}

	node := sc.Node(s.State)
	if node == nil {
		// The scenario was edited under the session and its node is gone.
		// Reset to entry rather than stranding the chat.
		s.Restart(sc, "reset: node "+s.State+" no longer exists")
		return it.runChain(ctx, sc, s, sc.EntryNodeID, nil)
	}

	if !node.Waits() {
		// The flow already ran to completion at this node. Stray messages
		// are inert: re-running the node would repeat its sends and side
		// effects. A trigger command restarts the flow through the engine.
		return nil, nil
	}

	switch node.Type {
	case entities.NodeAskInput:
		return it.resolveAskInput(ctx, sc, s, node, ev)
	case entities.NodeSearchCars:
		return it.resolveSearchCars(ctx, sc, s, node, ev)
	case entities.NodeMenu:
		return it.resolveMenu(ctx, sc, s, node, ev)
	}
	return nil, fmt.Errorf("node %q: unhandled waiting type %s", node.ID, node.Type)
}

// resolveAskInput captures the inbound text into the node's variable and
// advances. Non-text input while parked here is a no-op turn.
func (it *Interpreter) resolveAskInput(ctx context.Context, sc *entities.Scenario, s *entities.Session, node *entities.ScenarioNode, ev entities.InboundEvent) ([]entities.Effect, error) {
	if ev.Kind == entities.EventCallback || ev.Text == "" {
		return nil, nil
	}

	if node.Content.Variable != "" {
		s.Variables[node.Content.Variable] = ev.Text
	}
	s.Record(node.ID, ev.Text, "")

	if node.NextNodeID == "" {
		return nil, nil
	}
	return it.runChain(ctx, sc, s, node.NextNodeID, nil)
}

// resolveSearchCars captures the query, runs it against inventory and sends
// the matching cards before advancing.
func (it *Interpreter) resolveSearchCars(ctx context.Context, sc *entities.Scenario, s *entities.Session, node *entities.ScenarioNode, ev entities.InboundEvent) ([]entities.Effect, error) {
	if ev.Kind == entities.EventCallback || ev.Text == "" {
		return nil, nil
	}

	if node.Content.Variable != "" {
		s.Variables[node.Content.Variable] = ev.Text
	}
	s.Record(node.ID, ev.Text, "")

	cars, err := it.Inventory.Search(ctx, ev.Text)
	if err != nil {
		return nil, fmt.Errorf("node %q: inventory search: %w", node.ID, err)
	}
	effects := []entities.Effect{entities.SendText(s.ChatID, repository.FormatCards(cars))}

	if node.NextNodeID == "" {
		return effects, nil
	}
	return it.runChain(ctx, sc, s, node.NextNodeID, effects)
}

// resolveMenu matches the callback (or, on platforms without buttons, a
// typed label or choice number) against the branch table. An unmatched
// choice is a no-op turn with a hint, the session stays parked.
func (it *Interpreter) resolveMenu(ctx context.Context, sc *entities.Scenario, s *entities.Session, node *entities.ScenarioNode, ev entities.InboundEvent) ([]entities.Effect, error) {
	choice := matchChoice(node, ev)
	if choice == "" {
		if ev.CallbackID != "" {
			return []entities.Effect{entities.AnswerCallback(ev.CallbackID, "That option is no longer available")}, nil
		}
		return nil, nil
	}

	target := node.Branches[choice]
	if target == "" {
		target = node.NextNodeID
	}
	if target == "" {
		return nil, fmt.Errorf("node %q: branch %q: %w", node.ID, choice, entities.ErrDanglingNode)
	}

	s.Record(node.ID, choice, "")

	var effects []entities.Effect
	if ev.CallbackID != "" {
		effects = append(effects, entities.AnswerCallback(ev.CallbackID, ""))
	}
	return it.runChain(ctx, sc, s, target, effects)
}

// matchChoice resolves the pressed button: callback data first, then the
// typed label or 1-based number for text-only platforms.
func matchChoice(node *entities.ScenarioNode, ev entities.InboundEvent) string {
	if ev.Kind == entities.EventCallback {
		for _, b := range node.Content.Buttons {
			if b.Data == ev.Text {
				return b.Data
			}
		}
		return ""
	}

	text := strings.TrimSpace(ev.Text)
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(node.Content.Buttons) {
		return node.Content.Buttons[n-1].Data
	}
	for _, b := range node.Content.Buttons {
		if strings.EqualFold(b.Label, text) {
			return b.Data
		}
	}
	return ""
}

// runChain executes non-interactive nodes starting at nodeID until a node
// parks the session, the chain ends, or the hop budget runs out.
func (it *Interpreter) runChain(ctx context.Context, sc *entities.Scenario, s *entities.Session, nodeID string, effects []entities.Effect) ([]entities.Effect, error) {
	current := nodeID
	for hops := 0; hops < MaxHopsPerTurn; hops++ {
		node := sc.Node(current)
		if node == nil {
			return nil, fmt.Errorf("node %q: %w", current, entities.ErrDanglingNode)
		}

		switch node.Type {
		case entities.NodeStart:
			// Never a turn boundary.

		case entities.NodeMessage:
			effects = append(effects, entities.SendText(s.ChatID, interpolate(node.Content.Text, s.Variables)))
			s.Record(node.ID, "", "")

		case entities.NodeShowCars:
			query := interpolate(node.Content.Text, s.Variables)
			cars, err := it.Inventory.Search(ctx, query)
			if err != nil {
				return nil, fmt.Errorf("node %q: inventory search: %w", node.ID, err)
			}
			effects = append(effects, entities.SendText(s.ChatID, repository.FormatCards(cars)))
			s.Record(node.ID, "", "")

		case entities.NodeAction:
			// The cursor moves onto the action node before it runs, so a
			// failed action retries from here instead of re-running the
			// chain before it.
			s.State = node.ID
			for _, name := range node.Content.Actions {
				if err := it.Actions.Run(ctx, name, s); err != nil {
					return nil, fmt.Errorf("node %q: action %q: %w", node.ID, name, err)
				}
			}
			s.Record(node.ID, "", "action")

		case entities.NodeAskInput, entities.NodeSearchCars:
			effects = append(effects, entities.SendText(s.ChatID, interpolate(node.Content.Prompt, s.Variables)))
			s.State = node.ID
			return effects, nil

		case entities.NodeMenu:
			effects = append(effects, entities.ShowMenu(s.ChatID, interpolate(node.Content.Prompt, s.Variables), buttonRows(node.Content.Buttons)))
			s.State = node.ID
			return effects, nil

		default:
			return nil, fmt.Errorf("node %q: unknown type %q", node.ID, node.Type)
		}

		if node.NextNodeID == "" {
			// End of chain: park here until the next event.
			s.State = node.ID
			return effects, nil
		}
		current = node.NextNodeID
	}
	return nil, fmt.Errorf("chain from %q: %w", nodeID, entities.ErrHopBudget)
}

// interpolate substitutes {{name}} placeholders with captured variables.
// Unknown names render empty.
func interpolate(text string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(text, func(m string) string {
		name := varPattern.FindStringSubmatch(m)[1]
		return vars[name]
	})
}

// buttonRows lays buttons out two per row, matching the editor preview.
func buttonRows(buttons []entities.Button) [][]entities.Button {
	var rows [][]entities.Button
	var row []entities.Button
	for i, b := range buttons {
		row = append(row, b)
		if (i+1)%2 == 0 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func cloneSession(s *entities.Session) *entities.Session {
	c := *s
	c.Variables = make(map[string]string, len(s.Variables))
	for k, v := range s.Variables {
		c.Variables[k] = v
	}
	c.History = append([]entities.HistoryEntry(nil), s.History...)
	return &c
}
