package tests

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"railpay/internal/domain"
	"railpay/internal/idmap"
	"railpay/internal/ledger"
	"railpay/internal/service"
)

func newSettlementFixture() (*service.SettlementService, *MockLedger, *MockTicketRepository, *MockPassRepository, *MockPaymentRepository, *MockProfileRepository, *MockRouteRepository) {
	lg := NewMockLedger()
	ticketRepo := NewMockTicketRepository()
	passRepo := NewMockPassRepository()
	paymentRepo := NewMockPaymentRepository()
	profileRepo := NewMockProfileRepository()
	routeRepo := NewMockRouteRepository()

	svc := service.NewSettlementService(
		lg, lg,
		ticketRepo, passRepo, paymentRepo, profileRepo, routeRepo,
		nil, service.SettlementConfig{},
	)
	return svc, lg, ticketRepo, passRepo, paymentRepo, profileRepo, routeRepo
}

func verifiedProfile(id string) *domain.Profile {
	return &domain.Profile{
		ID:            id,
		FullName:      "Ada Obi",
		Verification:  domain.VerificationVerified,
		WalletAddress: "0x1111111111111111111111111111111111111111",
	}
}

func activeRoute(id string) *domain.Route {
	return &domain.Route{
		ID:          id,
		Origin:      "Lagos",
		Destination: "Ibadan",
		BasePrice:   decimal.RequireFromString("0.002"),
		Active:      true,
	}
}

func TestBuyTicket_Success(t *testing.T) {
	t.Parallel()

	svc, lg, ticketRepo, _, _, profileRepo, routeRepo := newSettlementFixture()
	profileRepo.AddProfile(verifiedProfile("user-1"))
	routeID := uuid.New().String()
	routeRepo.AddRoute(activeRoute(routeID))

	ticket, err := svc.BuyTicket(context.Background(), service.BuyTicketRequest{
		UserID:   "user-1",
		RouteID:  routeID,
		TravelAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ticket.Status != domain.TicketStatusValid {
		t.Errorf("expected status %s, got %s", domain.TicketStatusValid, ticket.Status)
	}
	if ticket.LedgerTokenID == nil || *ticket.LedgerTokenID != 1 {
		t.Errorf("expected ledger token id 1, got %v", ticket.LedgerTokenID)
	}
	if ticket.LedgerTxHash == "" {
		t.Error("expected a ledger tx hash")
	}

	// The QR payload is the exact string the scanner will parse.
	want := "railpay:ticket:" + ticket.ID
	if ticket.QRPayload != want {
		t.Errorf("expected qr payload %q, got %q", want, ticket.QRPayload)
	}
	if lg.MintCallCount != 1 {
		t.Errorf("expected 1 mint call, got %d", lg.MintCallCount)
	}
	if ticketRepo.CountTickets() != 1 {
		t.Errorf("expected 1 ticket, got %d", ticketRepo.CountTickets())
	}
}

func TestBuyTicket_LedgerFailureLeavesNoRecord(t *testing.T) {
	t.Parallel()

	svc, lg, ticketRepo, _, _, profileRepo, routeRepo := newSettlementFixture()
	profileRepo.AddProfile(verifiedProfile("user-1"))
	routeID := uuid.New().String()
	routeRepo.AddRoute(activeRoute(routeID))

	lg.SubmitError = ledger.ErrLedgerUnavailable

	_, err := svc.BuyTicket(context.Background(), service.BuyTicketRequest{
		UserID:   "user-1",
		RouteID:  routeID,
		TravelAt: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ledger.ErrLedgerUnavailable) {
		t.Fatalf("expected ledger unavailable, got %v", err)
	}

	// A failed submit must leave no off-chain trace.
	if ticketRepo.CountTickets() != 0 {
		t.Errorf("expected 0 tickets, got %d", ticketRepo.CountTickets())
	}
}

func TestBuyTicket_PreconditionsEnforced(t *testing.T) {
	t.Parallel()

	svc, lg, _, _, _, profileRepo, routeRepo := newSettlementFixture()
	routeID := uuid.New().String()
	routeRepo.AddRoute(activeRoute(routeID))

	// Unverified profile.
	profileRepo.AddProfile(&domain.Profile{
		ID:            "user-unverified",
		Verification:  domain.VerificationUnverified,
		WalletAddress: "0x2222222222222222222222222222222222222222",
	})
	_, err := svc.BuyTicket(context.Background(), service.BuyTicketRequest{UserID: "user-unverified", RouteID: routeID})
	if !errors.Is(err, service.ErrProfileNotVerified) {
		t.Errorf("expected ErrProfileNotVerified, got %v", err)
	}

	// Verified but no wallet.
	profileRepo.AddProfile(&domain.Profile{
		ID:           "user-nowallet",
		Verification: domain.VerificationVerified,
	})
	_, err = svc.BuyTicket(context.Background(), service.BuyTicketRequest{UserID: "user-nowallet", RouteID: routeID})
	if !errors.Is(err, service.ErrNoWalletAddress) {
		t.Errorf("expected ErrNoWalletAddress, got %v", err)
	}

	// Self-attested is sufficient; only the inactive route stops this one.
	inactiveID := uuid.New().String()
	inactive := activeRoute(inactiveID)
	inactive.Active = false
	routeRepo.AddRoute(inactive)
	profileRepo.AddProfile(&domain.Profile{
		ID:            "user-selfattested",
		Verification:  domain.VerificationSelfAttested,
		WalletAddress: "0x3333333333333333333333333333333333333333",
	})
	_, err = svc.BuyTicket(context.Background(), service.BuyTicketRequest{UserID: "user-selfattested", RouteID: inactiveID})
	if !errors.Is(err, service.ErrRouteInactive) {
		t.Errorf("expected ErrRouteInactive, got %v", err)
	}

	// No ledger submission happened for any of these.
	if lg.MintCallCount != 0 {
		t.Errorf("expected 0 mint calls, got %d", lg.MintCallCount)
	}
}

func TestBuyTicket_PersistFailureThenRecover(t *testing.T) {
	t.Parallel()

	svc, lg, ticketRepo, _, _, profileRepo, routeRepo := newSettlementFixture()
	profileRepo.AddProfile(verifiedProfile("user-1"))
	routeID := uuid.New().String()
	routeRepo.AddRoute(activeRoute(routeID))

	injected := errors.New("connection reset")
	ticketRepo.CreateError = injected

	req := service.BuyTicketRequest{
		UserID:   "user-1",
		RouteID:  routeID,
		TravelAt: time.Now().Add(time.Hour),
	}
	_, err := svc.BuyTicket(context.Background(), req)

	var persistErr *service.PersistFailedError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistFailedError, got %v", err)
	}
	if persistErr.TxHash == "" {
		t.Fatal("expected the error to carry the mined tx hash")
	}
	if !strings.HasPrefix(persistErr.TxHash, "0x") {
		t.Errorf("expected hex tx hash, got %q", persistErr.TxHash)
	}

	// Recovery re-persists from the hash without resubmitting.
	ticketRepo.CreateError = nil
	ticket, err := svc.RecoverTicket(context.Background(), persistErr.TxHash, req)
	if err != nil {
		t.Fatalf("unexpected recovery error: %v", err)
	}
	if ticket.LedgerTokenID == nil || *ticket.LedgerTokenID != 1 {
		t.Errorf("expected recovered token id 1, got %v", ticket.LedgerTokenID)
	}
	if lg.MintCallCount != 1 {
		t.Errorf("expected exactly 1 mint call, got %d", lg.MintCallCount)
	}
	if ticketRepo.CountTickets() != 1 {
		t.Errorf("expected exactly 1 ticket, got %d", ticketRepo.CountTickets())
	}

	// Recovery is idempotent.
	again, err := svc.RecoverTicket(context.Background(), persistErr.TxHash, req)
	if err != nil {
		t.Fatalf("unexpected error on repeated recovery: %v", err)
	}
	if again.ID != ticket.ID {
		t.Errorf("expected the same ticket, got %s and %s", ticket.ID, again.ID)
	}
	if ticketRepo.CountTickets() != 1 {
		t.Errorf("expected exactly 1 ticket after repeat, got %d", ticketRepo.CountTickets())
	}
}

func TestBuyPass_WindowFixedByClass(t *testing.T) {
	t.Parallel()

	svc, _, _, passRepo, _, profileRepo, _ := newSettlementFixture()
	profileRepo.AddProfile(verifiedProfile("user-1"))

	pass, err := svc.BuyPass(context.Background(), service.BuyPassRequest{
		UserID:   "user-1",
		PassType: domain.PassTypeWeekly,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pass.LedgerPassID == nil || *pass.LedgerPassID != 1 {
		t.Errorf("expected ledger pass id 1, got %v", pass.LedgerPassID)
	}

	// The window recorded is the one the ledger computed.
	window := pass.ExpiresAt.Sub(pass.StartsAt)
	if window != 7*24*time.Hour {
		t.Errorf("expected a 7-day window, got %s", window)
	}
	if !pass.ActiveAt(time.Now()) {
		t.Error("expected the pass to be active now")
	}
	if passRepo.CountPasses() != 1 {
		t.Errorf("expected 1 pass, got %d", passRepo.CountPasses())
	}
}

func TestBuyPass_RejectsUnknownClass(t *testing.T) {
	t.Parallel()

	svc, lg, _, _, _, profileRepo, _ := newSettlementFixture()
	profileRepo.AddProfile(verifiedProfile("user-1"))

	_, err := svc.BuyPass(context.Background(), service.BuyPassRequest{
		UserID:   "user-1",
		PassType: domain.PassType("yearly"),
	})
	if !errors.Is(err, service.ErrInvalidPassType) {
		t.Fatalf("expected ErrInvalidPassType, got %v", err)
	}
	if lg.IssueCallCount != 0 {
		t.Errorf("expected 0 issue calls, got %d", lg.IssueCallCount)
	}
}

func TestPay_ReferenceIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, lg, ticketRepo, _, paymentRepo, profileRepo, _ := newSettlementFixture()
	profileRepo.AddProfile(verifiedProfile("user-1"))

	tokenID := uint64(7)
	ticketRepo.AddTicket(&domain.Ticket{
		ID:            "ticket-1",
		UserID:        "user-1",
		Status:        domain.TicketStatusValid,
		LedgerTokenID: &tokenID,
	})

	req := service.PayRequest{
		UserID:    "user-1",
		TicketID:  "ticket-1",
		Reference: "ref-001",
		Amount:    decimal.RequireFromString("0.002"),
	}

	first, err := svc.Pay(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Status != domain.PaymentStatusCompleted {
		t.Errorf("expected completed, got %s", first.Status)
	}
	if first.LedgerReceiptID == nil || *first.LedgerReceiptID != 1 {
		t.Errorf("expected receipt id 1, got %v", first.LedgerReceiptID)
	}

	second, err := svc.Pay(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the recorded payment back, got %s and %s", first.ID, second.ID)
	}
	if lg.PayCallCount != 1 {
		t.Errorf("expected exactly 1 ledger payment, got %d", lg.PayCallCount)
	}
	if paymentRepo.CountPayments() != 1 {
		t.Errorf("expected exactly 1 payment row, got %d", paymentRepo.CountPayments())
	}
}

func TestPay_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _, profileRepo, _ := newSettlementFixture()
	profileRepo.AddProfile(verifiedProfile("user-1"))

	base := service.PayRequest{
		UserID:    "user-1",
		TicketID:  "ticket-1",
		Reference: "ref-1",
		Amount:    decimal.RequireFromString("0.001"),
	}

	zero := base
	zero.Amount = decimal.Zero
	if _, err := svc.Pay(context.Background(), zero); !errors.Is(err, service.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for zero, got %v", err)
	}

	negative := base
	negative.Amount = decimal.RequireFromString("-0.5")
	if _, err := svc.Pay(context.Background(), negative); !errors.Is(err, service.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative, got %v", err)
	}

	noRef := base
	noRef.Reference = "  "
	if _, err := svc.Pay(context.Background(), noRef); !errors.Is(err, service.ErrInvalidReference) {
		t.Errorf("expected ErrInvalidReference, got %v", err)
	}

	neither := base
	neither.TicketID = ""
	if _, err := svc.Pay(context.Background(), neither); !errors.Is(err, service.ErrPaymentTargetMissing) {
		t.Errorf("expected ErrPaymentTargetMissing, got %v", err)
	}

	both := base
	both.PassType = domain.PassTypeDaily
	if _, err := svc.Pay(context.Background(), both); !errors.Is(err, service.ErrPaymentTargetAmbiguous) {
		t.Errorf("expected ErrPaymentTargetAmbiguous, got %v", err)
	}
}

func TestPay_ForPassLinksLatestPass(t *testing.T) {
	t.Parallel()

	svc, _, _, passRepo, _, profileRepo, _ := newSettlementFixture()
	profileRepo.AddProfile(verifiedProfile("user-1"))

	passID := uint64(3)
	passRepo.AddPass(&domain.Pass{
		ID:           "pass-1",
		UserID:       "user-1",
		PassType:     domain.PassTypeMonthly,
		Status:       domain.PassStatusActive,
		ExpiresAt:    time.Now().Add(30 * 24 * time.Hour),
		LedgerPassID: &passID,
	})

	payment, err := svc.Pay(context.Background(), service.PayRequest{
		UserID:    "user-1",
		PassType:  domain.PassTypeMonthly,
		Reference: "ref-pass-1",
		Amount:    decimal.RequireFromString("0.05"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.PassID != "pass-1" {
		t.Errorf("expected payment linked to pass-1, got %q", payment.PassID)
	}
	if payment.TicketID != "" {
		t.Errorf("expected no ticket link, got %q", payment.TicketID)
	}
}

func TestPay_ForPassRequiresExistingPass(t *testing.T) {
	t.Parallel()

	svc, lg, _, _, paymentRepo, profileRepo, _ := newSettlementFixture()
	profileRepo.AddProfile(verifiedProfile("user-1"))

	_, err := svc.Pay(context.Background(), service.PayRequest{
		UserID:    "user-1",
		PassType:  domain.PassTypeWeekly,
		Reference: "ref-no-pass",
		Amount:    decimal.RequireFromString("0.05"),
	})
	if !errors.Is(err, service.ErrPaymentTargetMissing) {
		t.Fatalf("expected ErrPaymentTargetMissing, got %v", err)
	}
	if lg.PayCallCount != 0 {
		t.Errorf("expected no ledger payment, got %d", lg.PayCallCount)
	}
	if paymentRepo.CountPayments() != 0 {
		t.Errorf("expected no payments, got %d", paymentRepo.CountPayments())
	}
}

func TestPayForPass_PersistFailureThenRecover(t *testing.T) {
	t.Parallel()

	svc, lg, _, passRepo, paymentRepo, profileRepo, _ := newSettlementFixture()
	profileRepo.AddProfile(verifiedProfile("user-1"))

	ledgerPassID := uint64(3)
	passRepo.AddPass(&domain.Pass{
		ID:           "pass-1",
		UserID:       "user-1",
		PassType:     domain.PassTypeMonthly,
		Status:       domain.PassStatusActive,
		ExpiresAt:    time.Now().Add(30 * 24 * time.Hour),
		LedgerPassID: &ledgerPassID,
	})

	paymentRepo.CreateError = errors.New("connection reset")
	req := service.PayRequest{
		UserID:    "user-1",
		PassType:  domain.PassTypeMonthly,
		Reference: "ref-pp-1",
		Amount:    decimal.RequireFromString("0.05"),
	}

	_, err := svc.Pay(context.Background(), req)
	var persistErr *service.PersistFailedError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistFailedError, got %v", err)
	}

	paymentRepo.CreateError = nil
	payment, err := svc.RecoverPayment(context.Background(), persistErr.TxHash, req)
	if err != nil {
		t.Fatalf("unexpected recovery error: %v", err)
	}

	// The recovered row carries the pass link a fresh settlement would.
	if payment.PassID != "pass-1" {
		t.Errorf("expected recovered payment linked to pass-1, got %q", payment.PassID)
	}
	if payment.TicketID != "" {
		t.Errorf("expected no ticket link, got %q", payment.TicketID)
	}
	if lg.PayCallCount != 1 {
		t.Errorf("expected exactly 1 ledger payment, got %d", lg.PayCallCount)
	}
	if paymentRepo.CountPayments() != 1 {
		t.Errorf("expected 1 payment, got %d", paymentRepo.CountPayments())
	}
}

func TestGetPass_ExpiryDerivedAtRead(t *testing.T) {
	t.Parallel()

	svc, _, _, passRepo, _, _, _ := newSettlementFixture()
	passRepo.AddPass(&domain.Pass{
		ID:        "pass-1",
		UserID:    "user-1",
		PassType:  domain.PassTypeDaily,
		Status:    domain.PassStatusActive,
		ExpiresAt: time.Now().Add(-24 * time.Hour),
	})

	pass, err := svc.GetPass(context.Background(), "pass-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pass.Status != domain.PassStatusExpired {
		t.Errorf("expected expired, got %s", pass.Status)
	}

	passes, err := svc.ListUserPasses(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(passes) != 1 || passes[0].Status != domain.PassStatusExpired {
		t.Errorf("expected the listed pass expired, got %+v", passes)
	}
}

func TestGetPass_ChainViewNarrowsValidity(t *testing.T) {
	t.Parallel()

	svc, lg, _, passRepo, _, _, _ := newSettlementFixture()
	ledgerPassID := uint64(9)
	passRepo.AddPass(&domain.Pass{
		ID:           "pass-1",
		UserID:       "user-1",
		PassType:     domain.PassTypeWeekly,
		Status:       domain.PassStatusActive,
		ExpiresAt:    time.Now().Add(7 * 24 * time.Hour),
		LedgerPassID: &ledgerPassID,
	})

	// The clock says active but the chain has invalidated the pass.
	lg.PassValidity = map[uint64]bool{ledgerPassID: false}
	pass, err := svc.GetPass(context.Background(), "pass-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pass.Status != domain.PassStatusExpired {
		t.Errorf("expected expired, got %s", pass.Status)
	}

	// A chain read failure falls back to the clock-derived status.
	lg.PassValidity = nil
	lg.PassValidityError = errors.New("rpc down")
	pass, err = svc.GetPass(context.Background(), "pass-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pass.Status != domain.PassStatusActive {
		t.Errorf("expected active on chain failure, got %s", pass.Status)
	}
}

func TestBuyTicket_RouteCollisionSurfaced(t *testing.T) {
	t.Parallel()

	svc, lg, _, _, _, profileRepo, routeRepo := newSettlementFixture()
	profileRepo.AddProfile(verifiedProfile("user-1"))

	// Two route ids sharing the same 8-byte prefix map to one ledger id.
	routeRepo.AddRoute(activeRoute("d94f3f01-6ab8-4d5e-8a3c-1b2f4e5d6c7a"))
	if err := svc.SeedRouteMappings(context.Background()); err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}

	routeRepo.AddRoute(activeRoute("d94f3f01-6ab8-4d5e-ffff-ffffffffffff"))
	_, err := svc.BuyTicket(context.Background(), service.BuyTicketRequest{
		UserID:   "user-1",
		RouteID:  "d94f3f01-6ab8-4d5e-ffff-ffffffffffff",
		TravelAt: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, idmap.ErrIdentifierCollision) {
		t.Fatalf("expected ErrIdentifierCollision, got %v", err)
	}
	if lg.MintCallCount != 0 {
		t.Errorf("expected no mint, got %d", lg.MintCallCount)
	}

	// Seeding over the now-colliding route set surfaces the pair too.
	if err := svc.SeedRouteMappings(context.Background()); err == nil {
		t.Error("expected a collision from seeding")
	}
}
