package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"railpay/internal/domain"
	"railpay/internal/service"
)

// TicketHandler handles HTTP requests for tickets.
type TicketHandler struct {
	settlementService *service.SettlementService
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(settlementService *service.SettlementService) *TicketHandler {
	return &TicketHandler{settlementService: settlementService}
}

// BuyTicketRequest is the HTTP request body for buying a ticket.
type BuyTicketRequest struct {
	UserID     string `json:"user_id"`
	RouteID    string `json:"route_id"`
	SeatNumber string `json:"seat_number"`
	TicketType string `json:"ticket_type"`
	TravelAt   int64  `json:"travel_at"` // unix seconds
}

// RecoverTicketRequest is the HTTP request body for recovering a ticket
// whose settlement confirmed but whose record write failed.
type RecoverTicketRequest struct {
	TxHash     string `json:"tx_hash"`
	UserID     string `json:"user_id"`
	RouteID    string `json:"route_id"`
	SeatNumber string `json:"seat_number"`
	TicketType string `json:"ticket_type"`
	TravelAt   int64  `json:"travel_at"`
}

// TicketResponse is the HTTP response for ticket operations.
type TicketResponse struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	RouteID       string  `json:"route_id"`
	SeatNumber    string  `json:"seat_number,omitempty"`
	TicketType    string  `json:"ticket_type"`
	Status        string  `json:"status"`
	QRPayload     string  `json:"qr_payload"`
	LedgerTxHash  string  `json:"ledger_tx_hash"`
	LedgerTokenID *uint64 `json:"ledger_token_id,omitempty"`
	TravelAt      int64   `json:"travel_at"`
	PurchasedAt   int64   `json:"purchased_at"`
	ValidatedAt   *int64  `json:"validated_at,omitempty"`
}

func toTicketResponse(ticket *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:            ticket.ID,
		UserID:        ticket.UserID,
		RouteID:       ticket.RouteID,
		SeatNumber:    ticket.SeatNumber,
		TicketType:    string(ticket.TicketType),
		Status:        string(ticket.Status),
		QRPayload:     ticket.QRPayload,
		LedgerTxHash:  ticket.LedgerTxHash,
		LedgerTokenID: ticket.LedgerTokenID,
		TravelAt:      ticket.TravelAt.Unix(),
		PurchasedAt:   ticket.PurchasedAt.Unix(),
	}
	if ticket.ValidatedAt != nil {
		v := ticket.ValidatedAt.Unix()
		resp.ValidatedAt = &v
	}
	return resp
}

// BuyTicket handles POST /v1/tickets
func (h *TicketHandler) BuyTicket(c *gin.Context) {
	var req BuyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id is required"})
		return
	}
	if req.RouteID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "route_id is required"})
		return
	}

	travelAt := time.Unix(req.TravelAt, 0).UTC()
	if req.TravelAt == 0 {
		travelAt = time.Now().UTC()
	}

	ticket, err := h.settlementService.BuyTicket(c.Request.Context(), service.BuyTicketRequest{
		UserID:     req.UserID,
		RouteID:    req.RouteID,
		SeatNumber: req.SeatNumber,
		TicketType: domain.TicketType(req.TicketType),
		TravelAt:   travelAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTicketResponse(ticket))
}

// RecoverTicket handles POST /v1/tickets/recover
func (h *TicketHandler) RecoverTicket(c *gin.Context) {
	var req RecoverTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.TxHash == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "tx_hash is required"})
		return
	}

	ticket, err := h.settlementService.RecoverTicket(c.Request.Context(), req.TxHash, service.BuyTicketRequest{
		UserID:     req.UserID,
		RouteID:    req.RouteID,
		SeatNumber: req.SeatNumber,
		TicketType: domain.TicketType(req.TicketType),
		TravelAt:   time.Unix(req.TravelAt, 0).UTC(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTicketResponse(ticket))
}

// GetTicket handles GET /v1/tickets/:id
func (h *TicketHandler) GetTicket(c *gin.Context) {
	ticket, err := h.settlementService.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTicketResponse(ticket))
}

// ListUserTickets handles GET /v1/users/:id/tickets
func (h *TicketHandler) ListUserTickets(c *gin.Context) {
	tickets, err := h.settlementService.ListUserTickets(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, toTicketResponse(t))
	}
	respondJSON(c, http.StatusOK, gin.H{"tickets": out})
}
