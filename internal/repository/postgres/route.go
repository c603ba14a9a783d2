package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"railpay/internal/domain"
	"railpay/internal/repository"
)

// RouteRepository is a PostgreSQL implementation of repository.RouteRepository.
type RouteRepository struct {
	q Querier
}

// NewRouteRepository creates a new PostgreSQL route repository.
func NewRouteRepository(db *sql.DB) *RouteRepository {
	return &RouteRepository{q: db}
}

const routeColumns = `id, origin, destination, base_price, active, created_at`

// GetByID retrieves a route by ID.
func (r *RouteRepository) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1`

	route, err := r.scanRoute(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return route, nil
}

// List retrieves routes, optionally filtered to active ones.
func (r *RouteRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY origin, destination`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []*domain.Route
	for rows.Next() {
		route, err := r.scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

// UpdateBasePrice updates the fare for a route.
func (r *RouteRepository) UpdateBasePrice(ctx context.Context, id string, price decimal.Decimal) error {
	query := `UPDATE routes SET base_price = $1 WHERE id = $2`
	return r.execOne(ctx, query, price, id)
}

// Update updates route attributes.
func (r *RouteRepository) Update(ctx context.Context, route *domain.Route) error {
	query := `
		UPDATE routes SET origin = $1, destination = $2, base_price = $3, active = $4
		WHERE id = $5
	`
	return r.execOne(ctx, query, route.Origin, route.Destination, route.BasePrice, route.Active, route.ID)
}

func (r *RouteRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *RouteRepository) scanRoute(row rowScanner) (*domain.Route, error) {
	var route domain.Route
	err := row.Scan(
		&route.ID,
		&route.Origin,
		&route.Destination,
		&route.BasePrice,
		&route.Active,
		&route.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &route, nil
}
