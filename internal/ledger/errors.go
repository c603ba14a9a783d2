package ledger

import "errors"

var (
	// ErrLedgerUnavailable is returned when the chain RPC endpoint cannot
	// be reached or a network-level call fails.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrLedgerRejected is returned when a transaction reverts or a mined
	// receipt reports failure status.
	ErrLedgerRejected = errors.New("ledger rejected transaction")

	// ErrLedgerTimeout is returned when confirmation does not arrive within
	// the configured bounded wait.
	ErrLedgerTimeout = errors.New("ledger confirmation timeout")

	// ErrAlreadyValidated is returned when the ticket contract reverts a
	// second validation; the contract enforces at-most-once validation.
	ErrAlreadyValidated = errors.New("ticket already validated on ledger")

	// ErrTxNotFound is returned when a transaction hash cannot be resolved
	// to a mined receipt.
	ErrTxNotFound = errors.New("transaction not found on ledger")
)
