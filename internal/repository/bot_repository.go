package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealerhub/internal/entities"
)

// BotRepository is the bot registry lookup: logical bot id to credentials,
// channel and delivery mode. Resolution failures reject the operation before
// any state is mutated.
type BotRepository struct {
	db *pgxpool.Pool
}

func NewBotRepository(db *pgxpool.Pool) *BotRepository {
	return &BotRepository{db: db}
}

// Resolve returns a usable bot or ErrBotUnavailable when the bot is missing,
// disabled or has no token.
func (r *BotRepository) Resolve(ctx context.Context, botID int) (*entities.Bot, error) {
	b, err := r.get(ctx, botID)
	if err != nil {
		return nil, err
	}
	if b == nil || !b.IsActive || b.Token == "" {
		return nil, fmt.Errorf("bot %d: %w", botID, entities.ErrBotUnavailable)
	}
	return b, nil
}

func (r *BotRepository) get(ctx context.Context, botID int) (*entities.Bot, error) {
	var b entities.Bot
	err := r.db.QueryRow(ctx, `
		SELECT id, company_id, COALESCE(username,''), token, COALESCE(channel_id,''), delivery_mode, is_active, created_at
		FROM bots WHERE id=$1
	`, botID).Scan(&b.ID, &b.CompanyID, &b.Username, &b.Token, &b.ChannelID, &b.DeliveryMode, &b.IsActive, &b.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetActive returns every enabled bot, for startup connection.
func (r *BotRepository) GetActive(ctx context.Context) ([]entities.Bot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, company_id, COALESCE(username,''), token, COALESCE(channel_id,''), delivery_mode, is_active, created_at
		FROM bots WHERE is_active=TRUE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []entities.Bot
	for rows.Next() {
		var b entities.Bot
		if err := rows.Scan(&b.ID, &b.CompanyID, &b.Username, &b.Token, &b.ChannelID, &b.DeliveryMode, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, err
		}
		bots = append(bots, b)
	}
	return bots, rows.Err()
}

// Create registers a bot.
func (r *BotRepository) Create(ctx context.Context, b *entities.Bot) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO bots (company_id, username, token, channel_id, delivery_mode, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`, b.CompanyID, b.Username, b.Token, b.ChannelID, b.DeliveryMode, b.IsActive).Scan(&b.ID, &b.CreatedAt)
}

// UpdateToken replaces a bot's token (empty string disables it).
func (r *BotRepository) UpdateToken(ctx context.Context, botID int, token string) error {
	_, err := r.db.Exec(ctx, "UPDATE bots SET token=$1, is_active=($1 != '') WHERE id=$2", token, botID)
	return err
}
