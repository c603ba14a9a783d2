package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"railpay/internal/domain"
	"railpay/internal/service"
)

func newAdminFixture() (*service.AdminService, *MockRouteRepository, *MockStaffRepository, *MockAuditRepository) {
	routeRepo := NewMockRouteRepository()
	staffRepo := NewMockStaffRepository()
	auditRepo := NewMockAuditRepository()

	staffRepo.AddStaff(&domain.Staff{ID: "s1", UserID: "admin-1", Role: domain.StaffRoleAdmin, Active: true})
	staffRepo.AddStaff(&domain.Staff{ID: "s2", UserID: "scanner-1", Role: domain.StaffRoleStaff, Active: true})

	svc := service.NewAdminService(routeRepo, staffRepo, auditRepo, nil)
	return svc, routeRepo, staffRepo, auditRepo
}

func TestUpdateFare(t *testing.T) {
	t.Parallel()

	svc, routeRepo, _, auditRepo := newAdminFixture()
	routeID := uuid.New().String()
	routeRepo.AddRoute(activeRoute(routeID))

	newPrice := decimal.RequireFromString("0.003")
	route, err := svc.UpdateFare(context.Background(), "admin-1", routeID, newPrice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !route.BasePrice.Equal(newPrice) {
		t.Errorf("expected price %s, got %s", newPrice, route.BasePrice)
	}

	stored, _ := routeRepo.GetByID(context.Background(), routeID)
	if !stored.BasePrice.Equal(newPrice) {
		t.Errorf("expected stored price %s, got %s", newPrice, stored.BasePrice)
	}

	entry := auditRepo.LastEntry()
	if entry == nil {
		t.Fatal("expected an audit entry")
	}
	if entry.Action != domain.AuditFareUpdated {
		t.Errorf("expected action %s, got %s", domain.AuditFareUpdated, entry.Action)
	}
	if entry.Metadata["previous"] != "0.002" || entry.Metadata["current"] != "0.003" {
		t.Errorf("expected previous/current in metadata, got %v", entry.Metadata)
	}
}

func TestUpdateFare_Authorization(t *testing.T) {
	t.Parallel()

	svc, routeRepo, _, auditRepo := newAdminFixture()
	routeID := uuid.New().String()
	routeRepo.AddRoute(activeRoute(routeID))
	price := decimal.RequireFromString("0.003")

	// Gate staff are not admins.
	if _, err := svc.UpdateFare(context.Background(), "scanner-1", routeID, price); !errors.Is(err, service.ErrNotAdmin) {
		t.Errorf("expected ErrNotAdmin for scanner, got %v", err)
	}
	// Unknown users are not admins either.
	if _, err := svc.UpdateFare(context.Background(), "passenger-1", routeID, price); !errors.Is(err, service.ErrNotAdmin) {
		t.Errorf("expected ErrNotAdmin for passenger, got %v", err)
	}
	if auditRepo.CountEntries() != 0 {
		t.Errorf("expected no audit entries, got %d", auditRepo.CountEntries())
	}
}

func TestUpdateFare_RejectsNonPositivePrice(t *testing.T) {
	t.Parallel()

	svc, routeRepo, _, _ := newAdminFixture()
	routeID := uuid.New().String()
	routeRepo.AddRoute(activeRoute(routeID))

	for _, raw := range []string{"0", "-0.001"} {
		if _, err := svc.UpdateFare(context.Background(), "admin-1", routeID, decimal.RequireFromString(raw)); !errors.Is(err, service.ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount for %s, got %v", raw, err)
		}
	}

	stored, _ := routeRepo.GetByID(context.Background(), routeID)
	if !stored.BasePrice.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("expected price untouched, got %s", stored.BasePrice)
	}
}

func TestUpdateRoute_Deactivation(t *testing.T) {
	t.Parallel()

	svc, routeRepo, _, auditRepo := newAdminFixture()
	routeID := uuid.New().String()
	routeRepo.AddRoute(activeRoute(routeID))

	route := activeRoute(routeID)
	route.Active = false
	if _, err := svc.UpdateRoute(context.Background(), "admin-1", route); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := routeRepo.GetByID(context.Background(), routeID)
	if stored.Active {
		t.Error("expected the route deactivated")
	}
	if entry := auditRepo.LastEntry(); entry == nil || entry.Action != domain.AuditRouteUpdated {
		t.Errorf("expected a route_updated audit entry, got %+v", entry)
	}
}

func TestListAudit(t *testing.T) {
	t.Parallel()

	svc, routeRepo, _, _ := newAdminFixture()
	routeID := uuid.New().String()
	routeRepo.AddRoute(activeRoute(routeID))

	for _, raw := range []string{"0.003", "0.004", "0.005"} {
		if _, err := svc.UpdateFare(context.Background(), "admin-1", routeID, decimal.RequireFromString(raw)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	entries, err := svc.ListAudit(context.Background(), "admin-1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Metadata["current"] != "0.005" {
		t.Errorf("expected the newest entry first, got %v", entries[0].Metadata)
	}

	if _, err := svc.ListAudit(context.Background(), "scanner-1", 10); !errors.Is(err, service.ErrNotAdmin) {
		t.Errorf("expected ErrNotAdmin, got %v", err)
	}
}
