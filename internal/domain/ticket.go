package domain

import "time"

// TicketStatus represents the lifecycle status of a ticket.
type TicketStatus string

const (
	TicketStatusValid   TicketStatus = "valid"
	TicketStatusUsed    TicketStatus = "used"
	TicketStatusExpired TicketStatus = "expired"
)

// TicketType represents the journey type of a ticket.
type TicketType string

const (
	TicketTypeSingle TicketType = "single"
	TicketTypeReturn TicketType = "return"
)

// QRPrefix is the fixed prefix of every ticket QR payload.
// Scanning clients parse payloads by prefix match, so this string is wire format.
const QRPrefix = "railpay:ticket:"

// Ticket represents a single-journey or return entitlement.
// The off-chain record mirrors a confirmed mint transaction on the ledger.
type Ticket struct {
	ID            string
	UserID        string
	RouteID       string
	SeatNumber    string // optional, empty when unassigned
	TicketType    TicketType
	Status        TicketStatus
	QRPayload     string
	LedgerTxHash  string
	LedgerTokenID *uint64 // nil until the mint is confirmed
	TravelAt      time.Time
	PurchasedAt   time.Time
	ValidatedAt   *time.Time // set if and only if Status is used
}

// QRPayloadFor builds the QR payload for a ticket id.
func QRPayloadFor(ticketID string) string {
	return QRPrefix + ticketID
}
