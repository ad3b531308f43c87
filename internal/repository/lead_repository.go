package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"dealerhub/internal/entities"
)

// LeadRepository stores contacts captured by scenario ACTION nodes.
type LeadRepository struct {
	db *pgxpool.Pool
}

func NewLeadRepository(db *pgxpool.Pool) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(ctx context.Context, l *entities.Lead) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO leads (name, phone, source, bot_id, chat_id, scenario_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`, l.Name, l.Phone, l.Source, l.BotID, l.ChatID, l.ScenarioID).Scan(&l.ID, &l.CreatedAt)
}

func (r *LeadRepository) List(ctx context.Context, limit int) ([]entities.Lead, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, name, phone, source, bot_id, chat_id, scenario_id, created_at
		FROM leads ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []entities.Lead
	for rows.Next() {
		var l entities.Lead
		if err := rows.Scan(&l.ID, &l.Name, &l.Phone, &l.Source, &l.BotID, &l.ChatID, &l.ScenarioID, &l.CreatedAt); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}
