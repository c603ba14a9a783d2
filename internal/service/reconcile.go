package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"railpay/internal/domain"
	"railpay/internal/idmap"
	"railpay/internal/ledger"
	"railpay/internal/redis"
	"railpay/internal/repository"
)

// ErrScanInProgress is returned when another reconciliation scan holds the
// distributed lock.
var ErrScanInProgress = errors.New("reconciliation scan already in progress")

const (
	scanLockKind = "scan"
	scanLockTTL  = 5 * time.Minute
	cursorKind   = "events"
)

// LedgerScanner is the historical-query ledger surface used by
// reconciliation. Implemented by ledger.Reader; mocked in tests.
type LedgerScanner interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterTicketMinted(ctx context.Context, fromBlock, toBlock uint64) ([]ledger.TicketMintedEvent, error)
	FilterTicketValidated(ctx context.Context, fromBlock, toBlock uint64) ([]ledger.TicketValidatedEvent, error)
	FilterPassIssued(ctx context.Context, fromBlock, toBlock uint64) ([]ledger.PassIssuedEvent, error)
	FilterPaymentMade(ctx context.Context, fromBlock, toBlock uint64) ([]ledger.PaymentMadeEvent, error)
	FilterPassPaymentMade(ctx context.Context, fromBlock, toBlock uint64) ([]ledger.PassPaymentMadeEvent, error)
}

// ReconcileReport summarizes one reconciliation scan. Counters record rows
// actually written; events that were already mirrored or could not be
// resolved are counted as skipped, never treated as fatal.
type ReconcileReport struct {
	FromBlock        uint64   `json:"from_block"`
	ToBlock          uint64   `json:"to_block"`
	TicketsMinted    int      `json:"tickets_minted"`
	TicketsValidated int      `json:"tickets_validated"`
	PassesIssued     int      `json:"passes_issued"`
	TicketPayments   int      `json:"ticket_payments"`
	PassPayments     int      `json:"pass_payments"`
	Skipped          int      `json:"skipped"`
	Errors           []string `json:"errors,omitempty"`
}

// ReconcileService rebuilds the off-chain mirror from ledger event history.
// Every upsert is keyed by the event's on-chain identifier, so re-scanning
// any range any number of times converges on the same rows. It never
// submits ledger writes.
type ReconcileService struct {
	scanner     LedgerScanner
	ticketRepo  repository.TicketRepository
	passRepo    repository.PassRepository
	paymentRepo repository.PaymentRepository
	profileRepo repository.ProfileRepository
	routeRepo   repository.RouteRepository
	cursorStore redis.CursorStoreInterface
	lockStore   redis.LockStoreInterface
	currency    string
}

// NewReconcileService creates a new ReconcileService.
func NewReconcileService(
	scanner LedgerScanner,
	ticketRepo repository.TicketRepository,
	passRepo repository.PassRepository,
	paymentRepo repository.PaymentRepository,
	profileRepo repository.ProfileRepository,
	routeRepo repository.RouteRepository,
	cursorStore redis.CursorStoreInterface,
	lockStore redis.LockStoreInterface,
) *ReconcileService {
	return &ReconcileService{
		scanner:     scanner,
		ticketRepo:  ticketRepo,
		passRepo:    passRepo,
		paymentRepo: paymentRepo,
		profileRepo: profileRepo,
		routeRepo:   routeRepo,
		cursorStore: cursorStore,
		lockStore:   lockStore,
		currency:    "ETH",
	}
}

// ScanLatest scans from the stored cursor to the current chain head and
// advances the cursor on a clean pass. Scheduling is the caller's job;
// this runs exactly one scan.
func (s *ReconcileService) ScanLatest(ctx context.Context) (*ReconcileReport, error) {
	if s.lockStore != nil {
		ok, err := s.lockStore.AcquireScanLock(ctx, scanLockKind, scanLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrScanInProgress
		}
		defer func() {
			_ = s.lockStore.ReleaseScanLock(ctx, scanLockKind)
		}()
	}

	head, err := s.scanner.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	var from uint64
	if s.cursorStore != nil {
		cursor, found, err := s.cursorStore.Get(ctx, cursorKind)
		if err != nil {
			return nil, err
		}
		if found {
			from = cursor + 1
		}
	}
	if from > head {
		return &ReconcileReport{FromBlock: from, ToBlock: head}, nil
	}

	report, err := s.Scan(ctx, from, head)
	if err != nil {
		return report, err
	}

	if s.cursorStore != nil && len(report.Errors) == 0 {
		if err := s.cursorStore.Set(ctx, cursorKind, head); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("cursor: %v", err))
		}
	}
	return report, nil
}

// Scan reconciles all event kinds over [fromBlock, toBlock]. A query
// failure for one kind makes zero progress for that kind and is recorded
// in the report; the remaining kinds still run.
func (s *ReconcileService) Scan(ctx context.Context, fromBlock, toBlock uint64) (*ReconcileReport, error) {
	report := &ReconcileReport{FromBlock: fromBlock, ToBlock: toBlock}

	routesByLedgerID, err := s.routeIndex(ctx)
	if err != nil {
		return report, err
	}

	s.scanTicketMinted(ctx, fromBlock, toBlock, routesByLedgerID, report)
	s.scanTicketValidated(ctx, fromBlock, toBlock, report)
	s.scanPassIssued(ctx, fromBlock, toBlock, report)
	s.scanPaymentMade(ctx, fromBlock, toBlock, report)
	s.scanPassPaymentMade(ctx, fromBlock, toBlock, report)

	log.Printf("[RECONCILE] blocks %d-%d: minted=%d validated=%d passes=%d payments=%d/%d skipped=%d errors=%d",
		fromBlock, toBlock, report.TicketsMinted, report.TicketsValidated, report.PassesIssued,
		report.TicketPayments, report.PassPayments, report.Skipped, len(report.Errors))
	return report, nil
}

// routeIndex maps on-chain route identifiers back to route rows.
func (s *ReconcileService) routeIndex(ctx context.Context) (map[uint64]*domain.Route, error) {
	routes, err := s.routeRepo.List(ctx, false)
	if err != nil {
		return nil, err
	}
	index := make(map[uint64]*domain.Route, len(routes))
	for _, route := range routes {
		routeUUID, err := uuid.Parse(route.ID)
		if err != nil {
			continue
		}
		index[idmap.LedgerID(routeUUID)] = route
	}
	return index, nil
}

// ownerProfile resolves an on-chain owner address to a profile. A nil
// return means no profile claims the wallet; the event is skipped.
func (s *ReconcileService) ownerProfile(ctx context.Context, addr string) (*domain.Profile, error) {
	return s.profileRepo.GetByWalletAddress(ctx, strings.ToLower(addr))
}

func (s *ReconcileService) scanTicketMinted(ctx context.Context, from, to uint64, routes map[uint64]*domain.Route, report *ReconcileReport) {
	events, err := s.scanner.FilterTicketMinted(ctx, from, to)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("TicketMinted: %v", err))
		return
	}

	for _, ev := range events {
		tokenID := ev.TokenId.Uint64()

		existing, err := s.ticketRepo.GetByLedgerTokenID(ctx, tokenID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("TicketMinted token %d: %v", tokenID, err))
			continue
		}
		if existing != nil {
			report.Skipped++
			continue
		}

		profile, err := s.ownerProfile(ctx, ev.To.Hex())
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("TicketMinted token %d: %v", tokenID, err))
			continue
		}
		if profile == nil {
			report.Skipped++
			continue
		}

		var routeID string
		if route, ok := routes[ev.RouteId.Uint64()]; ok {
			routeID = route.ID
		}
		if routeID == "" {
			report.Skipped++
			continue
		}

		now := time.Now().UTC()
		ticket := &domain.Ticket{
			ID:            uuid.New().String(),
			UserID:        profile.ID,
			RouteID:       routeID,
			TicketType:    domain.TicketTypeSingle,
			Status:        domain.TicketStatusValid,
			LedgerTxHash:  ev.Raw.TxHash.Hex(),
			LedgerTokenID: &tokenID,
			TravelAt:      now,
			PurchasedAt:   now,
		}
		ticket.QRPayload = domain.QRPayloadFor(ticket.ID)

		if err := s.ticketRepo.Create(ctx, ticket); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				report.Skipped++
				continue
			}
			report.Errors = append(report.Errors, fmt.Sprintf("TicketMinted token %d: %v", tokenID, err))
			continue
		}
		report.TicketsMinted++
	}
}

func (s *ReconcileService) scanTicketValidated(ctx context.Context, from, to uint64, report *ReconcileReport) {
	events, err := s.scanner.FilterTicketValidated(ctx, from, to)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("TicketValidated: %v", err))
		return
	}

	for _, ev := range events {
		tokenID := ev.TokenId.Uint64()
		err := s.ticketRepo.MarkValidatedByTokenID(ctx, tokenID, time.Now().UTC())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// No valid mirror row: either never mirrored or already used.
				report.Skipped++
				continue
			}
			report.Errors = append(report.Errors, fmt.Sprintf("TicketValidated token %d: %v", tokenID, err))
			continue
		}
		report.TicketsValidated++
	}
}

func (s *ReconcileService) scanPassIssued(ctx context.Context, from, to uint64, report *ReconcileReport) {
	events, err := s.scanner.FilterPassIssued(ctx, from, to)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("PassIssued: %v", err))
		return
	}

	for _, ev := range events {
		passID := ev.PassId.Uint64()

		existing, err := s.passRepo.GetByLedgerPassID(ctx, passID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("PassIssued %d: %v", passID, err))
			continue
		}
		if existing != nil {
			report.Skipped++
			continue
		}

		profile, err := s.ownerProfile(ctx, ev.Owner.Hex())
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("PassIssued %d: %v", passID, err))
			continue
		}
		if profile == nil {
			report.Skipped++
			continue
		}

		passType, ok := domain.PassTypeFromLedgerEnum(ev.PassType)
		if !ok {
			report.Skipped++
			continue
		}
		expiresAt := time.Unix(int64(ev.ExpiresAt), 0).UTC()

		pass := &domain.Pass{
			ID:           uuid.New().String(),
			UserID:       profile.ID,
			PassType:     passType,
			Status:       domain.PassStatusActive,
			StartsAt:     expiresAt.Add(-passType.Duration()),
			ExpiresAt:    expiresAt,
			LedgerTxHash: ev.Raw.TxHash.Hex(),
			LedgerPassID: &passID,
			CreatedAt:    time.Now().UTC(),
		}

		if err := s.passRepo.Create(ctx, pass); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				report.Skipped++
				continue
			}
			report.Errors = append(report.Errors, fmt.Sprintf("PassIssued %d: %v", passID, err))
			continue
		}
		report.PassesIssued++
	}
}

func (s *ReconcileService) scanPaymentMade(ctx context.Context, from, to uint64, report *ReconcileReport) {
	events, err := s.scanner.FilterPaymentMade(ctx, from, to)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("PaymentMade: %v", err))
		return
	}

	for _, ev := range events {
		receiptID := ev.ReceiptId.Uint64()
		amount := ledger.FromWei(ev.Amount)
		if !amount.IsPositive() {
			report.Skipped++
			continue
		}

		existing, err := s.paymentRepo.GetByLedgerReceiptID(ctx, receiptID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("PaymentMade %d: %v", receiptID, err))
			continue
		}
		if existing != nil {
			report.Skipped++
			continue
		}

		profile, err := s.ownerProfile(ctx, ev.Payer.Hex())
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("PaymentMade %d: %v", receiptID, err))
			continue
		}
		if profile == nil {
			report.Skipped++
			continue
		}

		var ticketID string
		ticket, err := s.ticketRepo.GetByLedgerTokenID(ctx, ev.TicketId.Uint64())
		if err == nil && ticket != nil {
			ticketID = ticket.ID
		}
		if ticketID == "" {
			// A payment must land on a mirrored ticket; retry on a later scan.
			report.Skipped++
			continue
		}

		payment := &domain.Payment{
			ID:              uuid.New().String(),
			UserID:          profile.ID,
			TicketID:        ticketID,
			Amount:          amount,
			Currency:        s.currency,
			Method:          domain.PaymentMethodBlockchain,
			Status:          domain.PaymentStatusCompleted,
			Reference:       reconciledReference(receiptID),
			LedgerTxHash:    ev.Raw.TxHash.Hex(),
			LedgerReceiptID: &receiptID,
			CreatedAt:       time.Now().UTC(),
		}

		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				report.Skipped++
				continue
			}
			report.Errors = append(report.Errors, fmt.Sprintf("PaymentMade %d: %v", receiptID, err))
			continue
		}
		report.TicketPayments++
	}
}

func (s *ReconcileService) scanPassPaymentMade(ctx context.Context, from, to uint64, report *ReconcileReport) {
	events, err := s.scanner.FilterPassPaymentMade(ctx, from, to)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("PassPaymentMade: %v", err))
		return
	}

	for _, ev := range events {
		receiptID := ev.ReceiptId.Uint64()
		amount := ledger.FromWei(ev.Amount)
		if !amount.IsPositive() {
			report.Skipped++
			continue
		}

		existing, err := s.paymentRepo.GetByLedgerReceiptID(ctx, receiptID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("PassPaymentMade %d: %v", receiptID, err))
			continue
		}
		if existing != nil {
			report.Skipped++
			continue
		}

		profile, err := s.ownerProfile(ctx, ev.Payer.Hex())
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("PassPaymentMade %d: %v", receiptID, err))
			continue
		}
		if profile == nil {
			report.Skipped++
			continue
		}

		passType, ok := domain.PassTypeFromLedgerEnum(ev.PassType)
		if !ok {
			report.Skipped++
			continue
		}

		// The event carries no pass id, only the class. Link the payer's
		// most recent pass of that class when one is mirrored.
		var passID string
		passes, err := s.passRepo.ListByUser(ctx, profile.ID)
		if err == nil {
			for _, p := range passes {
				if p.PassType == passType {
					passID = p.ID
					break
				}
			}
		}
		if passID == "" {
			report.Skipped++
			continue
		}

		payment := &domain.Payment{
			ID:              uuid.New().String(),
			UserID:          profile.ID,
			PassID:          passID,
			Amount:          amount,
			Currency:        s.currency,
			Method:          domain.PaymentMethodBlockchain,
			Status:          domain.PaymentStatusCompleted,
			Reference:       reconciledReference(receiptID),
			LedgerTxHash:    ev.Raw.TxHash.Hex(),
			LedgerReceiptID: &receiptID,
			CreatedAt:       time.Now().UTC(),
		}

		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				report.Skipped++
				continue
			}
			report.Errors = append(report.Errors, fmt.Sprintf("PassPaymentMade %d: %v", receiptID, err))
			continue
		}
		report.PassPayments++
	}
}

// reconciledReference synthesizes a reference for payments discovered by
// event scan. The original client reference is only a hash on chain and
// cannot be recovered.
func reconciledReference(receiptID uint64) string {
	return fmt.Sprintf("reconciled:%d", receiptID)
}
