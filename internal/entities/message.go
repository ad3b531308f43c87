package entities

import "time"

// MessageLog is one audit record of an inbound or outbound chat message.
// Writes are best-effort: a failed log write never fails the send it logs.
type MessageLog struct {
	ID        int       `json:"id"`
	BotID     int       `json:"bot_id"`
	ChatID    string    `json:"chat_id"`
	Direction string    `json:"direction"` // "in" / "out"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
