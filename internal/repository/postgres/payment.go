package postgres

import (
	"context"
	"database/sql"
	"errors"

	"railpay/internal/domain"
	"railpay/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `
	id, user_id, ticket_id, pass_id, amount, currency, method, status,
	reference, ledger_tx_hash, ledger_receipt_id, created_at
`

// Create persists a new payment. Unique indexes on reference and
// ledger_receipt_id turn concurrent duplicates into ErrDuplicateKey.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.UserID,
		nullString(payment.TicketID),
		nullString(payment.PassID),
		payment.Amount,
		payment.Currency,
		payment.Method,
		payment.Status,
		payment.Reference,
		payment.LedgerTxHash,
		nullUint64(payment.LedgerReceiptID),
		payment.CreatedAt,
	)

	return mapWriteErr(err)
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := r.scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

// GetByReference retrieves a payment by its client-supplied reference.
// Returns nil if no payment exists with the given reference.
func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1`

	payment, err := r.scanPayment(r.q.QueryRowContext(ctx, query, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return payment, nil
}

// GetByLedgerReceiptID retrieves a payment by its ledger natural key.
// Returns nil if no payment carries the receipt id.
func (r *PaymentRepository) GetByLedgerReceiptID(ctx context.Context, receiptID uint64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ledger_receipt_id = $1`

	payment, err := r.scanPayment(r.q.QueryRowContext(ctx, query, int64(receiptID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return payment, nil
}

// ListByUser retrieves all payments made by a user, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		payment   domain.Payment
		ticketID  sql.NullString
		passID    sql.NullString
		receiptID sql.NullInt64
	)

	err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&ticketID,
		&passID,
		&payment.Amount,
		&payment.Currency,
		&payment.Method,
		&payment.Status,
		&payment.Reference,
		&payment.LedgerTxHash,
		&receiptID,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.TicketID = ticketID.String
	payment.PassID = passID.String
	if receiptID.Valid {
		v := uint64(receiptID.Int64)
		payment.LedgerReceiptID = &v
	}
	return &payment, nil
}
