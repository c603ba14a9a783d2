package tests

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"railpay/internal/domain"
	"railpay/internal/idmap"
	"railpay/internal/ledger"
	"railpay/internal/service"
)

type reconcileFixture struct {
	svc         *service.ReconcileService
	ledger      *MockLedger
	ticketRepo  *MockTicketRepository
	passRepo    *MockPassRepository
	paymentRepo *MockPaymentRepository
	profileRepo *MockProfileRepository
	routeRepo   *MockRouteRepository
	cursorStore *MockCursorStore
	lockStore   *MockLockStore

	wallet  common.Address
	routeID string
}

func newReconcileFixture() *reconcileFixture {
	f := &reconcileFixture{
		ledger:      NewMockLedger(),
		ticketRepo:  NewMockTicketRepository(),
		passRepo:    NewMockPassRepository(),
		paymentRepo: NewMockPaymentRepository(),
		profileRepo: NewMockProfileRepository(),
		routeRepo:   NewMockRouteRepository(),
		cursorStore: NewMockCursorStore(),
		lockStore:   NewMockLockStore(),
	}
	f.svc = service.NewReconcileService(
		f.ledger,
		f.ticketRepo, f.passRepo, f.paymentRepo, f.profileRepo, f.routeRepo,
		f.cursorStore, f.lockStore,
	)

	f.wallet = common.HexToAddress("0x1111111111111111111111111111111111111111")
	f.profileRepo.AddProfile(&domain.Profile{
		ID:            "user-1",
		Verification:  domain.VerificationVerified,
		WalletAddress: f.wallet.Hex(),
	})

	f.routeID = uuid.New().String()
	f.routeRepo.AddRoute(activeRoute(f.routeID))
	return f
}

// ledgerRouteID is the on-chain identifier the mint event carries for the
// fixture's route.
func (f *reconcileFixture) ledgerRouteID() *big.Int {
	return idmap.LedgerBigID(uuid.MustParse(f.routeID))
}

func rawLog(seq uint64) types.Log {
	return types.Log{TxHash: common.BigToHash(new(big.Int).SetUint64(seq)), BlockNumber: seq}
}

func TestScan_MirrorsMintedTickets(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.ledger.TicketMintedEvents = []ledger.TicketMintedEvent{
		{
			TokenId: big.NewInt(10),
			To:      f.wallet,
			RouteId: f.ledgerRouteID(),
			Price:   ledger.ToWei(activeRoute(f.routeID).BasePrice),
			Raw:     rawLog(1),
		},
	}

	report, err := f.svc.Scan(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TicketsMinted != 1 {
		t.Errorf("expected 1 minted, got %d", report.TicketsMinted)
	}
	if len(report.Errors) != 0 {
		t.Errorf("expected no errors, got %v", report.Errors)
	}

	ticket, err := f.ticketRepo.GetByLedgerTokenID(context.Background(), 10)
	if err != nil || ticket == nil {
		t.Fatalf("expected mirrored ticket, got %v / %v", ticket, err)
	}
	if ticket.UserID != "user-1" {
		t.Errorf("expected owner user-1, got %s", ticket.UserID)
	}
	if ticket.RouteID != f.routeID {
		t.Errorf("expected route %s, got %s", f.routeID, ticket.RouteID)
	}
	if ticket.QRPayload != domain.QRPayloadFor(ticket.ID) {
		t.Errorf("expected a scannable payload, got %q", ticket.QRPayload)
	}
}

func TestScan_SecondPassIsAllSkips(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.ledger.TicketMintedEvents = []ledger.TicketMintedEvent{
		{TokenId: big.NewInt(10), To: f.wallet, RouteId: f.ledgerRouteID(), Price: big.NewInt(1), Raw: rawLog(1)},
	}
	f.ledger.PassIssuedEvents = []ledger.PassIssuedEvent{
		{PassId: big.NewInt(5), Owner: f.wallet, PassType: 0, ExpiresAt: uint64(time.Now().Add(24 * time.Hour).Unix()), Raw: rawLog(2)},
	}

	first, err := f.svc.Scan(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TicketsMinted != 1 || first.PassesIssued != 1 {
		t.Fatalf("expected 1 mint and 1 pass, got %d and %d", first.TicketsMinted, first.PassesIssued)
	}

	second, err := f.svc.Scan(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("unexpected error on re-scan: %v", err)
	}
	if second.TicketsMinted != 0 || second.PassesIssued != 0 {
		t.Errorf("expected no new rows, got %d and %d", second.TicketsMinted, second.PassesIssued)
	}
	if second.Skipped != 2 {
		t.Errorf("expected 2 skips, got %d", second.Skipped)
	}
	if f.ticketRepo.CountTickets() != 1 || f.passRepo.CountPasses() != 1 {
		t.Errorf("expected row counts unchanged, got %d tickets and %d passes",
			f.ticketRepo.CountTickets(), f.passRepo.CountPasses())
	}
}

func TestScan_UnresolvableOwnerSkipped(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	stranger := common.HexToAddress("0x9999999999999999999999999999999999999999")
	f.ledger.TicketMintedEvents = []ledger.TicketMintedEvent{
		{TokenId: big.NewInt(10), To: stranger, RouteId: f.ledgerRouteID(), Price: big.NewInt(1), Raw: rawLog(1)},
	}

	report, err := f.svc.Scan(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TicketsMinted != 0 {
		t.Errorf("expected 0 minted, got %d", report.TicketsMinted)
	}
	if report.Skipped != 1 {
		t.Errorf("expected 1 skip, got %d", report.Skipped)
	}
	if len(report.Errors) != 0 {
		t.Errorf("expected no errors, got %v", report.Errors)
	}
}

func TestScan_FilterFailureIsolatedPerKind(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.ledger.TicketMintedError = errors.New("rpc timeout")
	f.ledger.PassIssuedEvents = []ledger.PassIssuedEvent{
		{PassId: big.NewInt(5), Owner: f.wallet, PassType: 1, ExpiresAt: uint64(time.Now().Add(7 * 24 * time.Hour).Unix()), Raw: rawLog(1)},
	}

	report, err := f.svc.Scan(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("expected the scan itself to succeed, got %v", err)
	}

	// The failing kind made zero progress; the rest still ran.
	if report.TicketsMinted != 0 {
		t.Errorf("expected 0 minted, got %d", report.TicketsMinted)
	}
	if report.PassesIssued != 1 {
		t.Errorf("expected 1 pass, got %d", report.PassesIssued)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %v", report.Errors)
	}
}

func TestScan_ValidationFlipsMirror(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	tokenID := uint64(10)
	f.ticketRepo.AddTicket(&domain.Ticket{
		ID:            "ticket-1",
		UserID:        "user-1",
		RouteID:       f.routeID,
		Status:        domain.TicketStatusValid,
		LedgerTokenID: &tokenID,
	})
	f.ledger.TicketValidatedEvents = []ledger.TicketValidatedEvent{
		{TokenId: big.NewInt(10), Raw: rawLog(1)},
		{TokenId: big.NewInt(99), Raw: rawLog(2)}, // never mirrored
	}

	report, err := f.svc.Scan(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TicketsValidated != 1 {
		t.Errorf("expected 1 validated, got %d", report.TicketsValidated)
	}
	if report.Skipped != 1 {
		t.Errorf("expected 1 skip, got %d", report.Skipped)
	}
	if got := f.ticketRepo.GetTicket("ticket-1").Status; got != domain.TicketStatusUsed {
		t.Errorf("expected used, got %s", got)
	}
}

func TestScan_PaymentsRequireMirroredTarget(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	tokenID := uint64(10)
	f.ticketRepo.AddTicket(&domain.Ticket{
		ID:            "ticket-1",
		UserID:        "user-1",
		RouteID:       f.routeID,
		Status:        domain.TicketStatusValid,
		LedgerTokenID: &tokenID,
	})
	f.ledger.PaymentMadeEvents = []ledger.PaymentMadeEvent{
		// Lands on the mirrored ticket.
		{Payer: f.wallet, Amount: ledger.ToWei(decimal.RequireFromString("0.002")), TicketId: big.NewInt(10), ReceiptId: big.NewInt(1), Raw: rawLog(1)},
		// No mirrored ticket for this token.
		{Payer: f.wallet, Amount: ledger.ToWei(decimal.RequireFromString("0.002")), TicketId: big.NewInt(77), ReceiptId: big.NewInt(2), Raw: rawLog(2)},
		// Zero amount never becomes a row.
		{Payer: f.wallet, Amount: big.NewInt(0), TicketId: big.NewInt(10), ReceiptId: big.NewInt(3), Raw: rawLog(3)},
	}

	report, err := f.svc.Scan(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TicketPayments != 1 {
		t.Errorf("expected 1 payment, got %d", report.TicketPayments)
	}
	if report.Skipped != 2 {
		t.Errorf("expected 2 skips, got %d", report.Skipped)
	}

	payment, err := f.paymentRepo.GetByLedgerReceiptID(context.Background(), 1)
	if err != nil || payment == nil {
		t.Fatalf("expected mirrored payment, got %v / %v", payment, err)
	}
	if payment.TicketID != "ticket-1" {
		t.Errorf("expected payment on ticket-1, got %q", payment.TicketID)
	}
	if payment.Reference != "reconciled:1" {
		t.Errorf("expected synthesized reference, got %q", payment.Reference)
	}
}

func TestScan_PassPaymentLinksLatestPass(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	passID := uint64(5)
	f.passRepo.AddPass(&domain.Pass{
		ID:           "pass-1",
		UserID:       "user-1",
		PassType:     domain.PassTypeWeekly,
		Status:       domain.PassStatusActive,
		ExpiresAt:    time.Now().Add(7 * 24 * time.Hour),
		LedgerPassID: &passID,
	})
	f.ledger.PassPaymentEvents = []ledger.PassPaymentMadeEvent{
		{Payer: f.wallet, Amount: ledger.ToWei(decimal.RequireFromString("0.01")), PassType: 1, ReceiptId: big.NewInt(1), Raw: rawLog(1)},
		// Payer has no monthly pass mirrored.
		{Payer: f.wallet, Amount: ledger.ToWei(decimal.RequireFromString("0.05")), PassType: 2, ReceiptId: big.NewInt(2), Raw: rawLog(2)},
	}

	report, err := f.svc.Scan(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.PassPayments != 1 {
		t.Errorf("expected 1 pass payment, got %d", report.PassPayments)
	}
	if report.Skipped != 1 {
		t.Errorf("expected 1 skip, got %d", report.Skipped)
	}

	payment, err := f.paymentRepo.GetByLedgerReceiptID(context.Background(), 1)
	if err != nil || payment == nil {
		t.Fatalf("expected mirrored payment, got %v / %v", payment, err)
	}
	if payment.PassID != "pass-1" {
		t.Errorf("expected payment on pass-1, got %q", payment.PassID)
	}
}

func TestScanLatest_AdvancesCursorOnCleanPass(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.ledger.Head = 200

	report, err := f.svc.ScanLatest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.FromBlock != 0 || report.ToBlock != 200 {
		t.Errorf("expected range 0-200, got %d-%d", report.FromBlock, report.ToBlock)
	}

	cursor, found, _ := f.cursorStore.Get(context.Background(), "events")
	if !found || cursor != 200 {
		t.Errorf("expected cursor at 200, got %d (found=%v)", cursor, found)
	}

	// The next pass resumes past the cursor.
	f.ledger.Head = 250
	report, err = f.svc.ScanLatest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.FromBlock != 201 || report.ToBlock != 250 {
		t.Errorf("expected range 201-250, got %d-%d", report.FromBlock, report.ToBlock)
	}
}

func TestScanLatest_CursorHeldBackOnErrors(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.ledger.Head = 200
	f.ledger.PaymentMadeError = errors.New("rpc timeout")

	report, err := f.svc.ScanLatest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Errors) == 0 {
		t.Fatal("expected a recorded error")
	}

	_, found, _ := f.cursorStore.Get(context.Background(), "events")
	if found {
		t.Error("expected the cursor untouched after a dirty pass")
	}
}

func TestScanLatest_LockContention(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	f.ledger.Head = 100

	if ok, _ := f.lockStore.AcquireScanLock(context.Background(), "scan", time.Minute); !ok {
		t.Fatal("expected to seed the lock")
	}

	_, err := f.svc.ScanLatest(context.Background())
	if !errors.Is(err, service.ErrScanInProgress) {
		t.Fatalf("expected ErrScanInProgress, got %v", err)
	}

	// Released lock lets the next scan through.
	_ = f.lockStore.ReleaseScanLock(context.Background(), "scan")
	if _, err := f.svc.ScanLatest(context.Background()); err != nil {
		t.Fatalf("unexpected error after release: %v", err)
	}
}

func TestScan_ConcurrentScansValidateOnce(t *testing.T) {
	t.Parallel()

	f := newReconcileFixture()
	tokenID := uint64(10)
	f.ticketRepo.AddTicket(&domain.Ticket{
		ID:            "ticket-1",
		UserID:        "user-1",
		RouteID:       f.routeID,
		Status:        domain.TicketStatusValid,
		LedgerTokenID: &tokenID,
	})
	f.ledger.TicketValidatedEvents = []ledger.TicketValidatedEvent{
		{TokenId: big.NewInt(10), Raw: rawLog(150)},
	}

	// Two overlapping scans of the same range race on the status flip.
	reports := make([]*service.ReconcileReport, 2)
	var wg sync.WaitGroup
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			report, err := f.svc.Scan(context.Background(), 100, 200)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			reports[i] = report
		}(i)
	}
	wg.Wait()

	validated, skipped := 0, 0
	for _, report := range reports {
		if report == nil {
			t.Fatal("missing report")
		}
		if len(report.Errors) != 0 {
			t.Errorf("unexpected report errors: %v", report.Errors)
		}
		validated += report.TicketsValidated
		skipped += report.Skipped
	}
	if validated != 1 {
		t.Errorf("expected exactly 1 validation across both scans, got %d", validated)
	}
	if skipped != 1 {
		t.Errorf("expected the losing scan to skip, got %d skips", skipped)
	}
	if got := f.ticketRepo.GetTicket("ticket-1").Status; got != domain.TicketStatusUsed {
		t.Errorf("expected used, got %s", got)
	}
}
