package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidUserID is returned when the user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidRouteID is returned when the route ID is empty.
	ErrInvalidRouteID = errors.New("invalid route id")

	// ErrInvalidTicketID is returned when the ticket ID is empty or malformed.
	ErrInvalidTicketID = errors.New("invalid ticket id")

	// ErrInvalidPassType is returned when the pass class is not daily, weekly or monthly.
	ErrInvalidPassType = errors.New("invalid pass type")

	// ErrInvalidReference is returned when the payment reference is empty.
	ErrInvalidReference = errors.New("invalid payment reference")

	// ErrInvalidAmount is returned when a settlement amount is not positive.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidQRPayload is returned when a scanned payload is not a
	// recognized ticket QR string.
	ErrInvalidQRPayload = errors.New("invalid qr payload")

	// ErrProfileNotVerified is returned when the buyer has no identity
	// verification outcome on file.
	ErrProfileNotVerified = errors.New("profile not verified")

	// ErrNoWalletAddress is returned when the buyer has no wallet connected.
	ErrNoWalletAddress = errors.New("no wallet address on profile")

	// ErrRouteInactive is returned when buying a ticket on a deactivated route.
	ErrRouteInactive = errors.New("route is not active")

	// ErrTicketAlreadyUsed is returned when validating a ticket a second time.
	ErrTicketAlreadyUsed = errors.New("ticket already used")

	// ErrTicketExpired is returned when validating a ticket past its travel window.
	ErrTicketExpired = errors.New("ticket expired")

	// ErrPaymentTargetMissing is returned when a payment names neither a
	// ticket nor a pass.
	ErrPaymentTargetMissing = errors.New("payment must reference a ticket or a pass")

	// ErrPaymentTargetAmbiguous is returned when a payment names both a
	// ticket and a pass.
	ErrPaymentTargetAmbiguous = errors.New("payment cannot reference both a ticket and a pass")

	// ErrNotStaff is returned when a non-staff user attempts a scan.
	ErrNotStaff = errors.New("user is not staff")

	// ErrNotAdmin is returned when a non-admin user attempts an admin mutation.
	ErrNotAdmin = errors.New("user is not an admin")
)

// PersistFailedError reports the one genuinely dangerous failure mode of
// the settlement protocol: the ledger confirmed the transaction but the
// off-chain mirror write failed. The transaction hash it carries is the
// recovery key; retrying means re-persisting from that hash, never
// resubmitting to the ledger.
type PersistFailedError struct {
	TxHash string
	Err    error
}

func (e *PersistFailedError) Error() string {
	return fmt.Sprintf("settled on ledger (tx %s) but persist failed: %v", e.TxHash, e.Err)
}

func (e *PersistFailedError) Unwrap() error {
	return e.Err
}
