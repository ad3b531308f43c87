package entities

import "time"

// DeliveryMode selects how a bot receives updates.
type DeliveryMode string

const (
	DeliveryPolling DeliveryMode = "polling"
	DeliveryWebhook DeliveryMode = "webhook"
)

// Bot is a registered chat-platform bot bound to a company. Token and
// ChannelID come from the registry lookup before any publish/edit/close.
type Bot struct {
	ID           int          `json:"id"`
	CompanyID    int          `json:"company_id"`
	Username     string       `json:"username"`
	Token        string       `json:"-"`
	ChannelID    string       `json:"channel_id"`
	DeliveryMode DeliveryMode `json:"delivery_mode"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
}
