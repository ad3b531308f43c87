package entities

import "time"

// PostStatus is the lifecycle state of a published channel card. Transitions
// are one-directional: ACTIVE -> UPDATED -> CLOSED. Publishing again after
// CLOSED creates a new post, it never reopens the old one.
type PostStatus string

const (
	PostActive  PostStatus = "ACTIVE"
	PostUpdated PostStatus = "UPDATED"
	PostClosed  PostStatus = "CLOSED"
)

// PostTemplate selects how a request snapshot is rendered into channel text.
type PostTemplate string

const (
	TemplateRaw       PostTemplate = "RAW"
	TemplateInStock   PostTemplate = "IN_STOCK"
	TemplateInTransit PostTemplate = "IN_TRANSIT"
)

// ChannelPost is the durable record of one externally published, editable and
// closeable channel message. MessageID is assigned only after the first
// successful send; later edits target it. Rows are never physically deleted.
type ChannelPost struct {
	ID        int        `json:"id"`
	RequestID int        `json:"request_id"`
	BotID     int        `json:"bot_id"`
	ChannelID string     `json:"channel_id"`
	MessageID int        `json:"message_id"`
	Status    PostStatus `json:"status"`
	Payload   string     `json:"payload"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CanTransitionTo enforces status monotonicity. No state re-enters ACTIVE
// and nothing leaves CLOSED.
func (p *ChannelPost) CanTransitionTo(next PostStatus) bool {
	switch p.Status {
	case PostActive:
		return next == PostUpdated || next == PostClosed
	case PostUpdated:
		return next == PostUpdated || next == PostClosed
	default:
		return false
	}
}
