package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"railpay/internal/domain"
)

// RouteRepository defines the persistence operations for routes.
type RouteRepository interface {
	// GetByID retrieves a route by ID.
	GetByID(ctx context.Context, id string) (*domain.Route, error)

	// List retrieves routes, optionally filtered to active ones.
	List(ctx context.Context, activeOnly bool) ([]*domain.Route, error)

	// UpdateBasePrice updates the fare for a route.
	UpdateBasePrice(ctx context.Context, id string, price decimal.Decimal) error

	// Update updates route attributes.
	Update(ctx context.Context, route *domain.Route) error
}
