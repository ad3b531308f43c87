package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealerhub/internal/entities"
)

// CarRepository is the inventory collaborator behind SEARCH_CARS and
// SHOW_CARS nodes.
type CarRepository struct {
	db *pgxpool.Pool
}

func NewCarRepository(db *pgxpool.Pool) *CarRepository {
	return &CarRepository{db: db}
}

// Search runs a free-text inventory query. Numeric tokens are treated as a
// budget ceiling, the rest matches brand/model/city. Sold cars are excluded.
func (r *CarRepository) Search(ctx context.Context, query string) ([]entities.Car, error) {
	var maxPrice int
	var words []string
	for _, tok := range strings.Fields(query) {
		if n, err := strconv.Atoi(strings.TrimSuffix(tok, "$")); err == nil && n > 100 {
			maxPrice = n
			continue
		}
		words = append(words, tok)
	}

	sql := `SELECT id, brand, model, year, price, currency, COALESCE(city,''), status, mileage
		FROM cars WHERE status != 'sold'`
	args := []interface{}{}
	i := 1
	if maxPrice > 0 {
		sql += fmt.Sprintf(" AND price <= $%d", i)
		args = append(args, maxPrice)
		i++
	}
	if len(words) > 0 {
		pattern := "%" + strings.Join(words, "%") + "%"
		sql += fmt.Sprintf(" AND (brand || ' ' || model || ' ' || COALESCE(city,'')) ILIKE $%d", i)
		args = append(args, pattern)
	}
	sql += " ORDER BY price ASC LIMIT 10"

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCars(rows)
}

// GetByStatus lists cars in one lifecycle status.
func (r *CarRepository) GetByStatus(ctx context.Context, status string) ([]entities.Car, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, brand, model, year, price, currency, COALESCE(city,''), status, mileage
		FROM cars WHERE status=$1 ORDER BY price ASC LIMIT 20
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCars(rows)
}

func scanCars(rows pgx.Rows) ([]entities.Car, error) {
	var cars []entities.Car
	for rows.Next() {
		var c entities.Car
		if err := rows.Scan(&c.ID, &c.Brand, &c.Model, &c.Year, &c.Price, &c.Currency, &c.City, &c.Status, &c.Mileage); err != nil {
			return nil, err
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

// FormatCards renders a car list as chat text, one compact card per car.
func FormatCards(cars []entities.Car) string {
	if len(cars) == 0 {
		return "No cars matched your query. Try a different budget or city."
	}

	var sb strings.Builder
	for _, c := range cars {
		sb.WriteString(fmt.Sprintf("🚗 <b>%s %s</b> (%d)\n", c.Brand, c.Model, c.Year))
		sb.WriteString(fmt.Sprintf("💰 %d %s", c.Price, c.Currency))
		if c.Mileage > 0 {
			sb.WriteString(fmt.Sprintf(" · %d km", c.Mileage))
		}
		if c.City != "" {
			sb.WriteString(" · " + c.City)
		}
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
