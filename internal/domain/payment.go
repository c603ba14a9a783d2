package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentMethod represents how a payment was settled.
type PaymentMethod string

const (
	PaymentMethodBlockchain PaymentMethod = "blockchain"
)

// Payment links a payer to exactly one of a ticket or a pass, never both
// and never neither. Amount is always positive. The ledger receipt id,
// once set, is globally unique and immutable.
type Payment struct {
	ID              string
	UserID          string
	TicketID        string // exactly one of TicketID / PassID is set
	PassID          string
	Amount          decimal.Decimal
	Currency        string
	Method          PaymentMethod
	Status          PaymentStatus
	Reference       string // client-supplied idempotency token
	LedgerTxHash    string
	LedgerReceiptID *uint64
	CreatedAt       time.Time
}
