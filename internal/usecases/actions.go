package usecases

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"dealerhub/internal/entities"
	"dealerhub/internal/repository"
)

// ActionFunc is one named ACTION operation. Actions run synchronous to the
// turn; an error aborts the step before the node advances.
type ActionFunc func(ctx context.Context, session *entities.Session) error

// ActionRegistry dispatches ACTION node operations by name. Built-ins cover
// the dealership flows; callers may register more.
type ActionRegistry struct {
	funcs map[string]ActionFunc
	log   zerolog.Logger
}

func NewActionRegistry(leads *repository.LeadRepository, requests *repository.RequestRepository, log zerolog.Logger) *ActionRegistry {
	r := &ActionRegistry{
		funcs: make(map[string]ActionFunc),
		log:   log.With().Str("component", "actions").Logger(),
	}

	r.Register("save_lead", func(ctx context.Context, s *entities.Session) error {
		return leads.Create(ctx, &entities.Lead{
			Name:       s.Variables["name"],
			Phone:      s.Variables["phone"],
			Source:     s.Platform,
			BotID:      s.BotID,
			ChatID:     s.ChatID,
			ScenarioID: s.ScenarioID,
		})
	})

	r.Register("save_request", func(ctx context.Context, s *entities.Session) error {
		title := s.Variables["title"]
		if title == "" {
			title = s.Variables["car"]
		}
		if title == "" {
			return fmt.Errorf("save_request: no title captured")
		}
		return requests.Create(ctx, &entities.Request{
			Title:   title,
			Budget:  s.Variables["budget"],
			City:    s.Variables["city"],
			Year:    s.Variables["year"],
			Contact: s.Variables["phone"],
			Status:  "open",
		})
	})

	return r
}

func (r *ActionRegistry) Register(name string, fn ActionFunc) {
	r.funcs[name] = fn
}

// Run executes a named action. Unknown names are an error: a scenario
// referencing a missing action is a broken graph, not a silent skip.
func (r *ActionRegistry) Run(ctx context.Context, name string, session *entities.Session) error {
	fn, ok := r.funcs[name]
	if !ok {
		return fmt.Errorf("unknown action %q", name)
	}
	if err := fn(ctx, session); err != nil {
		return err
	}
	r.log.Debug().Str("action", name).Int("bot_id", session.BotID).Str("chat_id", session.ChatID).Msg("action executed")
	return nil
}
