package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealerhub/internal/entities"
)

// SessionRepository persists one session row per (bot, chat). The engine is
// the single writer; Put upserts the whole record after a successful step.
type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get returns the session for the pair, nil when none exists yet.
func (r *SessionRepository) Get(ctx context.Context, botID int, chatID string) (*entities.Session, error) {
	var s entities.Session
	var variables, history []byte
	err := r.db.QueryRow(ctx, `
		SELECT bot_id, chat_id, platform, scenario_id, state, variables, history, last_active, message_count
		FROM bot_sessions WHERE bot_id=$1 AND chat_id=$2
	`, botID, chatID).Scan(&s.BotID, &s.ChatID, &s.Platform, &s.ScenarioID, &s.State, &variables, &history, &s.LastActive, &s.MessageCount)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(variables, &s.Variables); err != nil {
		return nil, fmt.Errorf("decode session variables: %w", err)
	}
	if err := json.Unmarshal(history, &s.History); err != nil {
		return nil, fmt.Errorf("decode session history: %w", err)
	}
	if s.Variables == nil {
		s.Variables = make(map[string]string)
	}
	return &s, nil
}

// Put upserts the session record.
func (r *SessionRepository) Put(ctx context.Context, s *entities.Session) error {
	variables, err := json.Marshal(s.Variables)
	if err != nil {
		return err
	}
	history, err := json.Marshal(s.History)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO bot_sessions (bot_id, chat_id, platform, scenario_id, state, variables, history, last_active, message_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (bot_id, chat_id) DO UPDATE SET
			platform=EXCLUDED.platform,
			scenario_id=EXCLUDED.scenario_id,
			state=EXCLUDED.state,
			variables=EXCLUDED.variables,
			history=EXCLUDED.history,
			last_active=EXCLUDED.last_active,
			message_count=EXCLUDED.message_count
	`, s.BotID, s.ChatID, s.Platform, s.ScenarioID, s.State, variables, history, s.LastActive, s.MessageCount)
	return err
}
