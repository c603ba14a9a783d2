package service

import (
	"context"
	"errors"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"railpay/internal/domain"
	"railpay/internal/ledger"
	"railpay/internal/redis"
	"railpay/internal/repository"
)

// travelGrace is how long past the scheduled travel time a ticket still
// scans successfully. Trains run late.
const travelGrace = 4 * time.Hour

// ValidationService handles gate-side ticket scanning. Validation is a
// settlement too: the on-chain validateTicket write happens first, then
// the off-chain status flip mirrors it.
type ValidationService struct {
	ledger     Ledger
	ticketRepo repository.TicketRepository
	staffRepo  repository.StaffRepository
	auditRepo  repository.AuditRepository
	cacheStore *redis.CacheStore
}

// NewValidationService creates a new ValidationService.
func NewValidationService(
	lg Ledger,
	ticketRepo repository.TicketRepository,
	staffRepo repository.StaffRepository,
	auditRepo repository.AuditRepository,
	cacheStore *redis.CacheStore,
) *ValidationService {
	return &ValidationService{
		ledger:     lg,
		ticketRepo: ticketRepo,
		staffRepo:  staffRepo,
		auditRepo:  auditRepo,
		cacheStore: cacheStore,
	}
}

// ParseQR extracts the ticket ID from a scanned QR payload. The payload
// format is the exact string encoded at purchase time; anything else is
// rejected without a database round trip.
func ParseQR(payload string) (string, error) {
	raw, ok := strings.CutPrefix(payload, domain.QRPrefix)
	if !ok {
		return "", ErrInvalidQRPayload
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", ErrInvalidQRPayload
	}
	return id.String(), nil
}

// ValidateRequest contains the parameters for a gate scan.
type ValidateRequest struct {
	StaffUserID string
	QRPayload   string
}

// ValidateResult is the outcome of a successful scan.
type ValidateResult struct {
	Ticket       *domain.Ticket
	LedgerTxHash string
}

// Validate runs the scan flow: staff authorization, payload parse, local
// state checks, the on-chain validation write, then the mirror update and
// an audit entry. A ticket validates at most once; the contract enforces
// this even when two gates race.
func (s *ValidationService) Validate(ctx context.Context, req ValidateRequest) (*ValidateResult, error) {
	staff, err := s.staffRepo.GetByUserID(ctx, req.StaffUserID)
	if err != nil {
		return nil, err
	}
	if staff == nil || !staff.CanScan() {
		return nil, ErrNotStaff
	}

	ticketID, err := ParseQR(req.QRPayload)
	if err != nil {
		return nil, err
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch {
	case ticket.Status == domain.TicketStatusUsed:
		return nil, ErrTicketAlreadyUsed
	case ticket.Status == domain.TicketStatusExpired, now.After(ticket.TravelAt.Add(travelGrace)):
		return nil, ErrTicketExpired
	}
	if ticket.LedgerTokenID == nil {
		return nil, ErrInvalidTicketID
	}

	handle, err := s.ledger.ValidateTicket(ctx, new(big.Int).SetUint64(*ticket.LedgerTokenID))
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyValidated) {
			// The chain is ahead of the mirror. Catch the mirror up and
			// report the double scan.
			_ = s.ticketRepo.MarkValidated(ctx, ticket.ID, now)
			s.invalidate(ctx, ticket.ID)
			return nil, ErrTicketAlreadyUsed
		}
		return nil, err
	}

	if _, err := s.ledger.Confirm(ctx, handle); err != nil {
		return nil, err
	}

	if err := s.ticketRepo.MarkValidated(ctx, ticket.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Already flipped by a concurrent scan or the reconciler.
			s.invalidate(ctx, ticket.ID)
			return nil, ErrTicketAlreadyUsed
		}
		return nil, &PersistFailedError{TxHash: handle.Hash.Hex(), Err: err}
	}
	s.invalidate(ctx, ticket.ID)

	if s.auditRepo != nil {
		entry := &domain.AuditEntry{
			ID:           uuid.New().String(),
			AdminID:      req.StaffUserID,
			Action:       domain.AuditTicketValidated,
			ResourceType: "ticket",
			ResourceID:   ticket.ID,
			Description:  "ticket validated at gate",
			Metadata: map[string]any{
				"ledger_tx": handle.Hash.Hex(),
			},
			CreatedAt: now,
		}
		if err := s.auditRepo.Append(ctx, entry); err != nil {
			log.Printf("[VALIDATION] audit append failed for ticket %s: %v", ticket.ID, err)
		}
	}

	ticket.Status = domain.TicketStatusUsed
	ticket.ValidatedAt = &now

	return &ValidateResult{Ticket: ticket, LedgerTxHash: handle.Hash.Hex()}, nil
}

func (s *ValidationService) invalidate(ctx context.Context, ticketID string) {
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateTicket(ctx, ticketID)
	}
}
