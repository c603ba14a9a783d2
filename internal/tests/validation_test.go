package tests

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"

	"railpay/internal/domain"
	"railpay/internal/service"
)

func bigUint(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func newValidationFixture() (*service.ValidationService, *MockLedger, *MockTicketRepository, *MockStaffRepository, *MockAuditRepository) {
	lg := NewMockLedger()
	ticketRepo := NewMockTicketRepository()
	staffRepo := NewMockStaffRepository()
	auditRepo := NewMockAuditRepository()

	svc := service.NewValidationService(lg, ticketRepo, staffRepo, auditRepo, nil)
	return svc, lg, ticketRepo, staffRepo, auditRepo
}

func scannableTicket(tokenID uint64) *domain.Ticket {
	id := uuid.New().String()
	return &domain.Ticket{
		ID:            id,
		UserID:        "user-1",
		RouteID:       uuid.New().String(),
		Status:        domain.TicketStatusValid,
		QRPayload:     domain.QRPayloadFor(id),
		LedgerTokenID: &tokenID,
		TravelAt:      time.Now().Add(time.Hour),
	}
}

func addScanner(staffRepo *MockStaffRepository, userID string) {
	staffRepo.AddStaff(&domain.Staff{
		ID:     uuid.New().String(),
		UserID: userID,
		Role:   domain.StaffRoleStaff,
		Active: true,
	})
}

func TestParseQR(t *testing.T) {
	t.Parallel()

	id := uuid.New().String()
	got, err := service.ParseQR("railpay:ticket:" + id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Errorf("expected %s, got %s", id, got)
	}

	for _, payload := range []string{
		"",
		id,
		"railpay:ticket:",
		"railpay:ticket:not-a-uuid",
		"railpay:pass:" + id,
	} {
		if _, err := service.ParseQR(payload); !errors.Is(err, service.ErrInvalidQRPayload) {
			t.Errorf("expected ErrInvalidQRPayload for %q, got %v", payload, err)
		}
	}
}

func TestValidate_Success(t *testing.T) {
	t.Parallel()

	svc, lg, ticketRepo, staffRepo, auditRepo := newValidationFixture()
	addScanner(staffRepo, "staff-1")
	ticket := scannableTicket(42)
	ticketRepo.AddTicket(ticket)

	result, err := svc.Validate(context.Background(), service.ValidateRequest{
		StaffUserID: "staff-1",
		QRPayload:   ticket.QRPayload,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Ticket.Status != domain.TicketStatusUsed {
		t.Errorf("expected used, got %s", result.Ticket.Status)
	}
	if result.LedgerTxHash == "" {
		t.Error("expected a ledger tx hash")
	}
	if lg.ValidateCallCount != 1 {
		t.Errorf("expected 1 validate call, got %d", lg.ValidateCallCount)
	}

	stored := ticketRepo.GetTicket(ticket.ID)
	if stored.Status != domain.TicketStatusUsed {
		t.Errorf("expected stored status used, got %s", stored.Status)
	}
	if stored.ValidatedAt == nil {
		t.Error("expected a validation timestamp")
	}

	entry := auditRepo.LastEntry()
	if entry == nil {
		t.Fatal("expected an audit entry")
	}
	if entry.Action != domain.AuditTicketValidated {
		t.Errorf("expected action %s, got %s", domain.AuditTicketValidated, entry.Action)
	}
	if entry.ResourceID != ticket.ID {
		t.Errorf("expected resource %s, got %s", ticket.ID, entry.ResourceID)
	}
}

func TestValidate_SecondScanRejected(t *testing.T) {
	t.Parallel()

	svc, _, ticketRepo, staffRepo, _ := newValidationFixture()
	addScanner(staffRepo, "staff-1")
	ticket := scannableTicket(42)
	ticketRepo.AddTicket(ticket)

	req := service.ValidateRequest{StaffUserID: "staff-1", QRPayload: ticket.QRPayload}
	if _, err := svc.Validate(context.Background(), req); err != nil {
		t.Fatalf("unexpected error on first scan: %v", err)
	}

	_, err := svc.Validate(context.Background(), req)
	if !errors.Is(err, service.ErrTicketAlreadyUsed) {
		t.Fatalf("expected ErrTicketAlreadyUsed, got %v", err)
	}
}

func TestValidate_ChainAheadOfMirror(t *testing.T) {
	t.Parallel()

	svc, lg, ticketRepo, staffRepo, _ := newValidationFixture()
	addScanner(staffRepo, "staff-1")
	ticket := scannableTicket(42)
	ticketRepo.AddTicket(ticket)

	// The token was already validated on chain, through another gate whose
	// mirror write never landed here.
	if _, err := lg.ValidateTicket(context.Background(), bigUint(42)); err != nil {
		t.Fatalf("unexpected error seeding validation: %v", err)
	}

	_, err := svc.Validate(context.Background(), service.ValidateRequest{
		StaffUserID: "staff-1",
		QRPayload:   ticket.QRPayload,
	})
	if !errors.Is(err, service.ErrTicketAlreadyUsed) {
		t.Fatalf("expected ErrTicketAlreadyUsed, got %v", err)
	}

	// The mirror caught up.
	stored := ticketRepo.GetTicket(ticket.ID)
	if stored.Status != domain.TicketStatusUsed {
		t.Errorf("expected stored status used after catch-up, got %s", stored.Status)
	}
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	svc, lg, ticketRepo, staffRepo, _ := newValidationFixture()
	addScanner(staffRepo, "staff-1")

	// Not staff.
	ticket := scannableTicket(1)
	ticketRepo.AddTicket(ticket)
	_, err := svc.Validate(context.Background(), service.ValidateRequest{
		StaffUserID: "passenger-1",
		QRPayload:   ticket.QRPayload,
	})
	if !errors.Is(err, service.ErrNotStaff) {
		t.Errorf("expected ErrNotStaff, got %v", err)
	}

	// Deactivated staff.
	staffRepo.AddStaff(&domain.Staff{ID: "s2", UserID: "staff-inactive", Role: domain.StaffRoleStaff, Active: false})
	_, err = svc.Validate(context.Background(), service.ValidateRequest{
		StaffUserID: "staff-inactive",
		QRPayload:   ticket.QRPayload,
	})
	if !errors.Is(err, service.ErrNotStaff) {
		t.Errorf("expected ErrNotStaff for inactive staff, got %v", err)
	}

	// Malformed payload.
	_, err = svc.Validate(context.Background(), service.ValidateRequest{
		StaffUserID: "staff-1",
		QRPayload:   "not-a-ticket",
	})
	if !errors.Is(err, service.ErrInvalidQRPayload) {
		t.Errorf("expected ErrInvalidQRPayload, got %v", err)
	}

	// Travel time too far in the past.
	stale := scannableTicket(2)
	stale.TravelAt = time.Now().Add(-5 * time.Hour)
	ticketRepo.AddTicket(stale)
	_, err = svc.Validate(context.Background(), service.ValidateRequest{
		StaffUserID: "staff-1",
		QRPayload:   stale.QRPayload,
	})
	if !errors.Is(err, service.ErrTicketExpired) {
		t.Errorf("expected ErrTicketExpired, got %v", err)
	}

	// None of the rejections reached the ledger.
	if lg.ValidateCallCount != 0 {
		t.Errorf("expected 0 validate calls, got %d", lg.ValidateCallCount)
	}
}

func TestValidate_WithinGracePeriod(t *testing.T) {
	t.Parallel()

	svc, _, ticketRepo, staffRepo, _ := newValidationFixture()
	addScanner(staffRepo, "staff-1")

	// Scheduled two hours ago: still inside the grace window.
	ticket := scannableTicket(9)
	ticket.TravelAt = time.Now().Add(-2 * time.Hour)
	ticketRepo.AddTicket(ticket)

	result, err := svc.Validate(context.Background(), service.ValidateRequest{
		StaffUserID: "staff-1",
		QRPayload:   ticket.QRPayload,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Ticket.Status != domain.TicketStatusUsed {
		t.Errorf("expected used, got %s", result.Ticket.Status)
	}
}
