package repository

import (
	"context"

	"railpay/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment. Returns ErrDuplicateKey when the
	// ledger receipt id or the client reference is already mirrored.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByReference retrieves a payment by its client-supplied reference.
	// Returns nil if no payment exists with the given reference.
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)

	// GetByLedgerReceiptID retrieves a payment by its ledger natural key.
	// Returns nil if no payment carries the receipt id.
	GetByLedgerReceiptID(ctx context.Context, receiptID uint64) (*domain.Payment, error)

	// ListByUser retrieves all payments made by a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Payment, error)
}
