package interfaces

import (
	"context"

	"dealerhub/internal/entities"
)

// ChatSender delivers one turn's effects against a chat platform. Implemented
// by the Telegram bot instance and the WhatsApp client. Send returns the
// platform message id of the published message (0 when the platform has no
// numeric ids).
type ChatSender interface {
	SendText(ctx context.Context, chatID, text string, rows [][]entities.Button) (messageID int, err error)
	EditText(ctx context.Context, chatID string, messageID int, text string, rows [][]entities.Button) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// InventoryQuerier is the inventory collaborator behind SEARCH_CARS and
// SHOW_CARS nodes.
type InventoryQuerier interface {
	Search(ctx context.Context, query string) ([]entities.Car, error)
}

// ActionRunner executes a named side-effecting ACTION operation. A returned
// error aborts the step before the node advances.
type ActionRunner interface {
	Run(ctx context.Context, name string, session *entities.Session) error
}

// BotResolver maps a bot id to its credentials and delivery configuration.
type BotResolver interface {
	Resolve(ctx context.Context, botID int) (*entities.Bot, error)
}

// SessionStore persists the per-(bot, chat) session record.
type SessionStore interface {
	Get(ctx context.Context, botID int, chatID string) (*entities.Session, error)
	Put(ctx context.Context, s *entities.Session) error
}

// MessageAuditor records chat traffic best-effort.
type MessageAuditor interface {
	Log(ctx context.Context, m *entities.MessageLog) error
}
