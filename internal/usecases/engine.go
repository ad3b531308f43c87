package usecases

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dealerhub/internal/entities"
	"dealerhub/internal/infrastructure"
	"dealerhub/internal/interfaces"
	"dealerhub/internal/repository"
)

// Engine drives the whole inbound path: admit the update once, serialize on
// the (bot, chat) session, run the interpreter, persist the session, deliver
// the effects in order, then advance the durable cursor. Steps for the same
// pair never overlap; different chats proceed in parallel.
type Engine struct {
	dedup     *infrastructure.UpdateDeduplicator
	locks     *infrastructure.SessionLocks
	scenarios *repository.ScenarioRepository
	sessions  interfaces.SessionStore
	requests  *repository.RequestRepository
	cursors   *repository.CursorRepository
	interp    *Interpreter
	outbox    *Outbox
	audit     interfaces.MessageAuditor
	log       zerolog.Logger
}

func NewEngine(
	dedup *infrastructure.UpdateDeduplicator,
	locks *infrastructure.SessionLocks,
	scenarios *repository.ScenarioRepository,
	sessions interfaces.SessionStore,
	requests *repository.RequestRepository,
	cursors *repository.CursorRepository,
	interp *Interpreter,
	outbox *Outbox,
	audit interfaces.MessageAuditor,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		dedup:     dedup,
		locks:     locks,
		scenarios: scenarios,
		sessions:  sessions,
		requests:  requests,
		cursors:   cursors,
		interp:    interp,
		outbox:    outbox,
		audit:     audit,
		log:       log.With().Str("component", "engine").Logger(),
	}
}

// HandleEvent processes one raw inbound event end to end. Duplicate updates
// return ErrDuplicateUpdate and produce no effects; callers drop them
// silently.
func (e *Engine) HandleEvent(ctx context.Context, sender interfaces.ChatSender, ev entities.InboundEvent) error {
	if !e.dedup.Admit(ev.BotID, ev.Platform, ev.UpdateID) {
		return entities.ErrDuplicateUpdate
	}

	unlock := e.locks.Acquire(ev.BotID, ev.ChatID)
	defer unlock()

	e.auditIn(ev)

	session, scenario, prelude, err := e.route(ctx, ev)
	if err != nil {
		return err
	}
	if session == nil {
		// Nothing to run for this chat and no scenario claimed the text.
		e.ack(ev)
		return nil
	}

	effects, err := e.interp.Step(ctx, scenario, session, ev)
	if err != nil {
		// Graph and action errors leave the session unchanged so the event
		// can be retried; report and bail before any delivery.
		e.log.Error().Err(err).Int("bot_id", ev.BotID).Str("chat_id", ev.ChatID).Str("node", session.State).Msg("step failed")
		return err
	}

	if err := e.sessions.Put(ctx, session); err != nil {
		// Favor at-most-once advancement: without the persisted cursor the
		// effects must not go out, or a redelivery would replay them.
		return fmt.Errorf("persist session: %w", err)
	}

	e.deliver(ctx, sender, ev.BotID, append(prelude, effects...))
	e.ack(ev)
	return nil
}

// route binds the event to a session and scenario: trigger commands start or
// restart a flow, keywords start one for fresh chats, everything else
// continues the session in progress.
func (e *Engine) route(ctx context.Context, ev entities.InboundEvent) (*entities.Session, *entities.Scenario, []entities.Effect, error) {
	session, err := e.sessions.Get(ctx, ev.BotID, ev.ChatID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load session: %w", err)
	}

	var prelude []entities.Effect

	if ev.Kind == entities.EventCommand {
		sc, err := e.scenarios.Match(ctx, ev.Command, "")
		if err != nil && !errors.Is(err, entities.ErrNoScenario) {
			return nil, nil, nil, err
		}
		if sc != nil {
			if session == nil {
				session = entities.NewSession(ev.BotID, ev.ChatID, ev.Platform, sc)
			} else {
				session.Restart(sc, "restart: /"+ev.Command)
			}
			if card := e.deepLinkCard(ctx, ev.Payload); card != "" {
				prelude = append(prelude, entities.SendText(ev.ChatID, card))
			}
			return session, sc, prelude, nil
		}
		// Unknown command: fall through and treat as text for an existing
		// session, ignore otherwise.
	}

	if session == nil {
		sc, err := e.scenarios.Match(ctx, "", ev.Text)
		if errors.Is(err, entities.ErrNoScenario) {
			return nil, nil, nil, nil
		}
		if err != nil {
			return nil, nil, nil, err
		}
		return entities.NewSession(ev.BotID, ev.ChatID, ev.Platform, sc), sc, nil, nil
	}

	sc, err := e.scenarios.GetByID(ctx, session.ScenarioID)
	if err != nil {
		// The bound scenario is gone or broken; try to rebind by content.
		sc, err = e.scenarios.Match(ctx, ev.Command, ev.Text)
		if errors.Is(err, entities.ErrNoScenario) {
			return nil, nil, nil, nil
		}
		if err != nil {
			return nil, nil, nil, err
		}
		session.Restart(sc, "rebind: scenario unavailable")
	}
	return session, sc, nil, nil
}

// deepLinkCard renders the request card for a "req_<id>" start payload, the
// deep-linked entry from a channel post button.
func (e *Engine) deepLinkCard(ctx context.Context, payload string) string {
	if !strings.HasPrefix(payload, "req_") {
		return ""
	}
	id, err := strconv.Atoi(strings.TrimPrefix(payload, "req_"))
	if err != nil {
		return ""
	}
	req, err := e.requests.GetByID(ctx, id)
	if err != nil || req == nil {
		return ""
	}
	return RenderTemplate(req, entities.TemplateRaw)
}

// deliver executes the turn's effects in emission order. A permanent failure
// stops the rest of the turn: the chat is unreachable and the remaining
// effects would fail the same way.
func (e *Engine) deliver(ctx context.Context, sender interfaces.ChatSender, botID int, effects []entities.Effect) {
	for _, eff := range effects {
		if _, err := e.outbox.Execute(ctx, sender, botID, eff); err != nil {
			e.log.Error().Err(err).Int("bot_id", botID).Str("chat_id", eff.ChatID).Str("kind", string(eff.Kind)).Msg("effect delivery failed")
			if entities.IsPermanentDelivery(err) {
				return
			}
		}
	}
}

// ack advances the durable watermark after the update is fully applied.
// Best-effort: losing it only widens the replay window on restart, which the
// in-memory deduplicator absorbs.
func (e *Engine) ack(ev entities.InboundEvent) {
	if e.cursors == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.cursors.Advance(ctx, ev.BotID, ev.Platform, ev.UpdateID); err != nil {
		e.log.Warn().Err(err).Int("bot_id", ev.BotID).Msg("cursor advance failed")
	}
}

func (e *Engine) auditIn(ev entities.InboundEvent) {
	if e.audit == nil || ev.Text == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.audit.Log(ctx, &entities.MessageLog{
		BotID:     ev.BotID,
		ChatID:    ev.ChatID,
		Direction: "in",
		Content:   ev.Text,
	}); err != nil {
		e.log.Warn().Err(err).Str("chat_id", ev.ChatID).Msg("audit log write failed")
	}
}
