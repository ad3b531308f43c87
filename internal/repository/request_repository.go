package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealerhub/internal/entities"
)

// RequestRepository reads dealership request snapshots for publishing and
// deep-linked cards. The dashboard owns request CRUD; the engine only needs
// get and a status flip on close.
type RequestRepository struct {
	db *pgxpool.Pool
}

func NewRequestRepository(db *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) GetByID(ctx context.Context, id int) (*entities.Request, error) {
	var req entities.Request
	err := r.db.QueryRow(ctx, `
		SELECT id, title, COALESCE(budget,''), COALESCE(city,''), COALESCE(year,''), COALESCE(contact,''), status, created_at
		FROM requests WHERE id=$1
	`, id).Scan(&req.ID, &req.Title, &req.Budget, &req.City, &req.Year, &req.Contact, &req.Status, &req.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepository) Create(ctx context.Context, req *entities.Request) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO requests (title, budget, city, year, contact, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`, req.Title, req.Budget, req.City, req.Year, req.Contact, req.Status).Scan(&req.ID, &req.CreatedAt)
}

func (r *RequestRepository) List(ctx context.Context, status string, limit int) ([]entities.Request, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, title, COALESCE(budget,''), COALESCE(city,''), COALESCE(year,''), COALESCE(contact,''), status, created_at
		FROM requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []entities.Request
	for rows.Next() {
		var req entities.Request
		if err := rows.Scan(&req.ID, &req.Title, &req.Budget, &req.City, &req.Year, &req.Contact, &req.Status, &req.CreatedAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *RequestRepository) SetStatus(ctx context.Context, id int, status string) error {
	_, err := r.db.Exec(ctx, "UPDATE requests SET status=$1 WHERE id=$2", status, id)
	return err
}
