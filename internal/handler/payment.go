package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"railpay/internal/domain"
	"railpay/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	settlementService *service.SettlementService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(settlementService *service.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlementService: settlementService}
}

// PayRequest is the HTTP request body for settling a payment. Exactly one
// of ticket_id and pass_type must be set.
type PayRequest struct {
	UserID    string `json:"user_id"`
	TicketID  string `json:"ticket_id"`
	PassType  string `json:"pass_type"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
}

// RecoverPaymentRequest is the HTTP request body for recovering a payment.
type RecoverPaymentRequest struct {
	TxHash    string `json:"tx_hash"`
	UserID    string `json:"user_id"`
	TicketID  string `json:"ticket_id"`
	PassType  string `json:"pass_type"`
	Reference string `json:"reference"`
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	TicketID        string  `json:"ticket_id,omitempty"`
	PassID          string  `json:"pass_id,omitempty"`
	Amount          string  `json:"amount"`
	Currency        string  `json:"currency"`
	Method          string  `json:"method"`
	Status          string  `json:"status"`
	Reference       string  `json:"reference"`
	LedgerTxHash    string  `json:"ledger_tx_hash"`
	LedgerReceiptID *uint64 `json:"ledger_receipt_id,omitempty"`
}

func toPaymentResponse(payment *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              payment.ID,
		UserID:          payment.UserID,
		TicketID:        payment.TicketID,
		PassID:          payment.PassID,
		Amount:          payment.Amount.String(),
		Currency:        payment.Currency,
		Method:          string(payment.Method),
		Status:          string(payment.Status),
		Reference:       payment.Reference,
		LedgerTxHash:    payment.LedgerTxHash,
		LedgerReceiptID: payment.LedgerReceiptID,
	}
}

// Pay handles POST /v1/payments
func (h *PaymentHandler) Pay(c *gin.Context) {
	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id is required"})
		return
	}
	if req.Reference == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "reference is required"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "amount must be a decimal string"})
		return
	}

	payment, err := h.settlementService.Pay(c.Request.Context(), service.PayRequest{
		UserID:    req.UserID,
		TicketID:  req.TicketID,
		PassType:  domain.PassType(req.PassType),
		Reference: req.Reference,
		Amount:    amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPaymentResponse(payment))
}

// RecoverPayment handles POST /v1/payments/recover
func (h *PaymentHandler) RecoverPayment(c *gin.Context) {
	var req RecoverPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.TxHash == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "tx_hash is required"})
		return
	}

	payment, err := h.settlementService.RecoverPayment(c.Request.Context(), req.TxHash, service.PayRequest{
		UserID:    req.UserID,
		TicketID:  req.TicketID,
		PassType:  domain.PassType(req.PassType),
		Reference: req.Reference,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.settlementService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// ListUserPayments handles GET /v1/users/:id/payments
func (h *PaymentHandler) ListUserPayments(c *gin.Context) {
	payments, err := h.settlementService.ListUserPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	respondJSON(c, http.StatusOK, gin.H{"payments": out})
}
