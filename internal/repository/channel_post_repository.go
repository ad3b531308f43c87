package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealerhub/internal/entities"
)

// ChannelPostRepository stores the lifecycle records of published channel
// cards. Rows are append-only with in-place status/payload updates; nothing
// is ever deleted, the table is the audit trail of each public post.
type ChannelPostRepository struct {
	db *pgxpool.Pool
}

func NewChannelPostRepository(db *pgxpool.Pool) *ChannelPostRepository {
	return &ChannelPostRepository{db: db}
}

func (r *ChannelPostRepository) Create(ctx context.Context, p *entities.ChannelPost) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO channel_posts (request_id, bot_id, channel_id, message_id, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, p.RequestID, p.BotID, p.ChannelID, p.MessageID, p.Status, p.Payload).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetOpenByRequest returns the newest non-closed post for a request, nil
// when every post is closed or none exists.
func (r *ChannelPostRepository) GetOpenByRequest(ctx context.Context, requestID int) (*entities.ChannelPost, error) {
	return r.scanOne(ctx, `
		SELECT id, request_id, bot_id, channel_id, message_id, status, payload, created_at, updated_at
		FROM channel_posts WHERE request_id=$1 AND status != 'CLOSED'
		ORDER BY id DESC LIMIT 1
	`, requestID)
}

// GetByRequest returns the newest post for a request regardless of status.
func (r *ChannelPostRepository) GetByRequest(ctx context.Context, requestID int) (*entities.ChannelPost, error) {
	return r.scanOne(ctx, `
		SELECT id, request_id, bot_id, channel_id, message_id, status, payload, created_at, updated_at
		FROM channel_posts WHERE request_id=$1
		ORDER BY id DESC LIMIT 1
	`, requestID)
}

// Update persists status, payload and message id after a delivery succeeded.
func (r *ChannelPostRepository) Update(ctx context.Context, p *entities.ChannelPost) error {
	_, err := r.db.Exec(ctx, `
		UPDATE channel_posts SET message_id=$1, status=$2, payload=$3, updated_at=NOW() WHERE id=$4
	`, p.MessageID, p.Status, p.Payload, p.ID)
	return err
}

func (r *ChannelPostRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*entities.ChannelPost, error) {
	var p entities.ChannelPost
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.RequestID, &p.BotID, &p.ChannelID, &p.MessageID, &p.Status, &p.Payload, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
