package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CursorRepository persists the dedup watermark per (bot, platform) stream so
// a restart resumes polling after the last admitted update instead of
// replaying the backlog. Platforms have independent id spaces, so each gets
// its own row.
type CursorRepository struct {
	db *pgxpool.Pool
}

func NewCursorRepository(db *pgxpool.Pool) *CursorRepository {
	return &CursorRepository{db: db}
}

func (r *CursorRepository) Get(ctx context.Context, botID int, platform string) (int64, error) {
	var lastID int64
	err := r.db.QueryRow(ctx, "SELECT last_update_id FROM update_cursors WHERE bot_id=$1 AND platform=$2", botID, platform).Scan(&lastID)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return lastID, nil
}

// Advance moves the stored watermark forward, never backward.
func (r *CursorRepository) Advance(ctx context.Context, botID int, platform string, updateID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO update_cursors (bot_id, platform, last_update_id, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (bot_id, platform) DO UPDATE SET
			last_update_id = GREATEST(update_cursors.last_update_id, EXCLUDED.last_update_id),
			updated_at = NOW()
	`, botID, platform, updateID)
	return err
}
