package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"railpay/internal/domain"
	"railpay/internal/redis"
	"railpay/internal/repository"
)

// AdminService handles back-office route and fare mutations. Every
// mutation is authorized against the staff table and recorded in the
// append-only audit log.
type AdminService struct {
	routeRepo  repository.RouteRepository
	staffRepo  repository.StaffRepository
	auditRepo  repository.AuditRepository
	cacheStore *redis.CacheStore
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	routeRepo repository.RouteRepository,
	staffRepo repository.StaffRepository,
	auditRepo repository.AuditRepository,
	cacheStore *redis.CacheStore,
) *AdminService {
	return &AdminService{
		routeRepo:  routeRepo,
		staffRepo:  staffRepo,
		auditRepo:  auditRepo,
		cacheStore: cacheStore,
	}
}

func (s *AdminService) requireAdmin(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	staff, err := s.staffRepo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if staff == nil || !staff.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

// UpdateFare changes a route's base price. Fare changes apply to future
// mints only; already-minted tickets keep the price they settled at.
func (s *AdminService) UpdateFare(ctx context.Context, adminUserID, routeID string, price decimal.Decimal) (*domain.Route, error) {
	if err := s.requireAdmin(ctx, adminUserID); err != nil {
		return nil, err
	}
	if routeID == "" {
		return nil, ErrInvalidRouteID
	}
	if !price.IsPositive() {
		return nil, ErrInvalidAmount
	}

	route, err := s.routeRepo.GetByID(ctx, routeID)
	if err != nil {
		return nil, err
	}
	previous := route.BasePrice

	if err := s.routeRepo.UpdateBasePrice(ctx, routeID, price); err != nil {
		return nil, err
	}
	route.BasePrice = price
	s.invalidateRoute(ctx, routeID)

	s.audit(ctx, adminUserID, domain.AuditFareUpdated, routeID, "route fare updated", map[string]any{
		"previous": previous.String(),
		"current":  price.String(),
	})
	return route, nil
}

// UpdateRoute changes a route's endpoints or active flag.
func (s *AdminService) UpdateRoute(ctx context.Context, adminUserID string, route *domain.Route) (*domain.Route, error) {
	if err := s.requireAdmin(ctx, adminUserID); err != nil {
		return nil, err
	}
	if route == nil || route.ID == "" {
		return nil, ErrInvalidRouteID
	}
	if !route.BasePrice.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if err := s.routeRepo.Update(ctx, route); err != nil {
		return nil, err
	}
	s.invalidateRoute(ctx, route.ID)

	s.audit(ctx, adminUserID, domain.AuditRouteUpdated, route.ID, "route updated", map[string]any{
		"origin":      route.Origin,
		"destination": route.Destination,
		"active":      route.Active,
	})
	return route, nil
}

// GetRoute retrieves a route, serving repeated fare lookups from cache.
func (s *AdminService) GetRoute(ctx context.Context, routeID string) (*domain.Route, error) {
	if routeID == "" {
		return nil, ErrInvalidRouteID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetRoute(ctx, routeID)
		if err == nil && cached != nil {
			price, perr := decimal.NewFromString(cached.BasePrice)
			if perr == nil {
				return &domain.Route{
					ID:          cached.ID,
					Origin:      cached.Origin,
					Destination: cached.Destination,
					BasePrice:   price,
					Active:      cached.Active,
				}, nil
			}
		}
	}

	route, err := s.routeRepo.GetByID(ctx, routeID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetRoute(ctx, &redis.CachedRoute{
			ID:          route.ID,
			Origin:      route.Origin,
			Destination: route.Destination,
			BasePrice:   route.BasePrice.String(),
			Active:      route.Active,
		})
	}
	return route, nil
}

// ListRoutes retrieves routes, optionally filtered to active ones.
func (s *AdminService) ListRoutes(ctx context.Context, activeOnly bool) ([]*domain.Route, error) {
	return s.routeRepo.List(ctx, activeOnly)
}

// ListAudit retrieves recent audit entries for an admin.
func (s *AdminService) ListAudit(ctx context.Context, adminUserID string, limit int) ([]*domain.AuditEntry, error) {
	if err := s.requireAdmin(ctx, adminUserID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.auditRepo.ListRecent(ctx, limit)
}

func (s *AdminService) invalidateRoute(ctx context.Context, routeID string) {
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateRoute(ctx, routeID)
	}
}

func (s *AdminService) audit(ctx context.Context, adminID string, action domain.AuditAction, resourceID, description string, metadata map[string]any) {
	entry := &domain.AuditEntry{
		ID:           uuid.New().String(),
		AdminID:      adminID,
		Action:       action,
		ResourceType: "route",
		ResourceID:   resourceID,
		Description:  description,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		log.Printf("[ADMIN] audit append failed for %s: %v", resourceID, err)
	}
}
