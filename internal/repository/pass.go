package repository

import (
	"context"

	"railpay/internal/domain"
)

// PassRepository defines the persistence operations for passes.
type PassRepository interface {
	// Create persists a new pass. Returns ErrDuplicateKey when the ledger
	// pass id is already mirrored.
	Create(ctx context.Context, pass *domain.Pass) error

	// GetByID retrieves a pass by ID.
	GetByID(ctx context.Context, id string) (*domain.Pass, error)

	// GetByLedgerPassID retrieves a pass by its ledger natural key.
	// Returns nil if no pass carries the id.
	GetByLedgerPassID(ctx context.Context, passID uint64) (*domain.Pass, error)

	// ListByUser retrieves all passes owned by a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Pass, error)
}
