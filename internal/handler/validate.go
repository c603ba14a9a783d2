package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"railpay/internal/service"
)

// ValidateHandler handles HTTP requests for gate-side ticket validation.
type ValidateHandler struct {
	validationService *service.ValidationService
}

// NewValidateHandler creates a new ValidateHandler.
func NewValidateHandler(validationService *service.ValidationService) *ValidateHandler {
	return &ValidateHandler{validationService: validationService}
}

// ValidateTicketRequest is the HTTP request body for a gate scan.
type ValidateTicketRequest struct {
	StaffUserID string `json:"staff_user_id"`
	QRPayload   string `json:"qr_payload"`
}

// ValidateTicketResponse is the HTTP response for a successful scan.
type ValidateTicketResponse struct {
	Ticket       TicketResponse `json:"ticket"`
	LedgerTxHash string         `json:"ledger_tx_hash"`
}

// ValidateTicket handles POST /v1/tickets/validate
func (h *ValidateHandler) ValidateTicket(c *gin.Context) {
	var req ValidateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.StaffUserID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "staff_user_id is required"})
		return
	}
	if req.QRPayload == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "qr_payload is required"})
		return
	}

	result, err := h.validationService.Validate(c.Request.Context(), service.ValidateRequest{
		StaffUserID: req.StaffUserID,
		QRPayload:   req.QRPayload,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ValidateTicketResponse{
		Ticket:       toTicketResponse(result.Ticket),
		LedgerTxHash: result.LedgerTxHash,
	})
}
