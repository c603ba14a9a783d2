package repository

import (
	"context"
	"time"

	"railpay/internal/domain"
)

// TicketRepository defines the persistence operations for tickets.
type TicketRepository interface {
	// Create persists a new ticket. Returns ErrDuplicateKey when the
	// ledger token id is already mirrored.
	Create(ctx context.Context, ticket *domain.Ticket) error

	// GetByID retrieves a ticket by ID.
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)

	// GetByLedgerTokenID retrieves a ticket by its ledger natural key.
	// Returns nil if no ticket carries the token id.
	GetByLedgerTokenID(ctx context.Context, tokenID uint64) (*domain.Ticket, error)

	// GetByLedgerTxHash retrieves a ticket by its mint transaction hash.
	// Returns nil if no ticket references the hash.
	GetByLedgerTxHash(ctx context.Context, txHash string) (*domain.Ticket, error)

	// ListByUser retrieves all tickets owned by a user.
	ListByUser(ctx context.Context, userID string) ([]*domain.Ticket, error)

	// ListByRoute retrieves all tickets for a route.
	ListByRoute(ctx context.Context, routeID string) ([]*domain.Ticket, error)

	// MarkValidated transitions a valid ticket to used and stamps
	// validated_at. Returns ErrNotFound when no valid ticket matches, so
	// a second validation attempt is detectable rather than silent.
	MarkValidated(ctx context.Context, id string, at time.Time) error

	// MarkValidatedByTokenID is MarkValidated keyed by the ledger natural
	// key, used by event reconciliation.
	MarkValidatedByTokenID(ctx context.Context, tokenID uint64, at time.Time) error
}
