package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"railpay/internal/ledger"
	"railpay/internal/repository"
	"railpay/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error        string `json:"error"`
	LedgerTxHash string `json:"ledger_tx_hash,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status
// code. A persist-after-settlement failure additionally carries the mined
// transaction hash so the client can drive recovery.
func respondError(c *gin.Context, err error) {
	var persistErr *service.PersistFailedError
	if errors.As(err, &persistErr) {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:        "settled on ledger but recording failed; retry with the transaction hash",
			LedgerTxHash: persistErr.TxHash,
		})
		return
	}

	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository/ledger errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, ledger.ErrTxNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidRouteID),
		errors.Is(err, service.ErrInvalidTicketID),
		errors.Is(err, service.ErrInvalidPassType),
		errors.Is(err, service.ErrInvalidReference),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidQRPayload),
		errors.Is(err, service.ErrPaymentTargetMissing),
		errors.Is(err, service.ErrPaymentTargetAmbiguous):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrTicketAlreadyUsed),
		errors.Is(err, service.ErrTicketExpired),
		errors.Is(err, service.ErrScanInProgress),
		errors.Is(err, ledger.ErrAlreadyValidated),
		errors.Is(err, repository.ErrDuplicateKey):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrProfileNotVerified),
		errors.Is(err, service.ErrNoWalletAddress),
		errors.Is(err, service.ErrRouteInactive),
		errors.Is(err, service.ErrNotStaff),
		errors.Is(err, service.ErrNotAdmin):
		return http.StatusForbidden

	// Ledger rejected the call outright
	case errors.Is(err, ledger.ErrLedgerRejected):
		return http.StatusUnprocessableEntity

	// Ledger unreachable or confirmation timed out
	case errors.Is(err, ledger.ErrLedgerUnavailable),
		errors.Is(err, ledger.ErrLedgerTimeout):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
