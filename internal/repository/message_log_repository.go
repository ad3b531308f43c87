package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"dealerhub/internal/entities"
)

// MessageLogRepository records chat traffic for audit. Callers treat writes
// as fire-and-forget: logging failure is observed in logs, never in the
// result of the send it accompanies.
type MessageLogRepository struct {
	db *pgxpool.Pool
}

func NewMessageLogRepository(db *pgxpool.Pool) *MessageLogRepository {
	return &MessageLogRepository{db: db}
}

func (r *MessageLogRepository) Log(ctx context.Context, m *entities.MessageLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_log (bot_id, chat_id, direction, content, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, m.BotID, m.ChatID, m.Direction, m.Content)
	return err
}

// RecentByChat returns the newest entries for one chat, newest first.
func (r *MessageLogRepository) RecentByChat(ctx context.Context, botID int, chatID string, limit int) ([]entities.MessageLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, bot_id, chat_id, direction, COALESCE(content,''), created_at
		FROM message_log WHERE bot_id=$1 AND chat_id=$2
		ORDER BY id DESC LIMIT $3
	`, botID, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []entities.MessageLog
	for rows.Next() {
		var m entities.MessageLog
		if err := rows.Scan(&m.ID, &m.BotID, &m.ChatID, &m.Direction, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, m)
	}
	return logs, rows.Err()
}
