package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"railpay/internal/domain"
	"railpay/internal/service"
)

// PassHandler handles HTTP requests for passes.
type PassHandler struct {
	settlementService *service.SettlementService
}

// NewPassHandler creates a new PassHandler.
func NewPassHandler(settlementService *service.SettlementService) *PassHandler {
	return &PassHandler{settlementService: settlementService}
}

// BuyPassRequest is the HTTP request body for buying a pass.
type BuyPassRequest struct {
	UserID   string `json:"user_id"`
	PassType string `json:"pass_type"`
}

// RecoverPassRequest is the HTTP request body for recovering a pass.
type RecoverPassRequest struct {
	TxHash   string `json:"tx_hash"`
	UserID   string `json:"user_id"`
	PassType string `json:"pass_type"`
}

// PassResponse is the HTTP response for pass operations.
type PassResponse struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	PassType     string  `json:"pass_type"`
	Status       string  `json:"status"`
	StartsAt     int64   `json:"starts_at"`
	ExpiresAt    int64   `json:"expires_at"`
	LedgerTxHash string  `json:"ledger_tx_hash"`
	LedgerPassID *uint64 `json:"ledger_pass_id,omitempty"`
}

func toPassResponse(pass *domain.Pass) PassResponse {
	return PassResponse{
		ID:           pass.ID,
		UserID:       pass.UserID,
		PassType:     string(pass.PassType),
		Status:       string(pass.Status),
		StartsAt:     pass.StartsAt.Unix(),
		ExpiresAt:    pass.ExpiresAt.Unix(),
		LedgerTxHash: pass.LedgerTxHash,
		LedgerPassID: pass.LedgerPassID,
	}
}

// BuyPass handles POST /v1/passes
func (h *PassHandler) BuyPass(c *gin.Context) {
	var req BuyPassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id is required"})
		return
	}

	pass, err := h.settlementService.BuyPass(c.Request.Context(), service.BuyPassRequest{
		UserID:   req.UserID,
		PassType: domain.PassType(req.PassType),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPassResponse(pass))
}

// RecoverPass handles POST /v1/passes/recover
func (h *PassHandler) RecoverPass(c *gin.Context) {
	var req RecoverPassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.TxHash == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "tx_hash is required"})
		return
	}

	pass, err := h.settlementService.RecoverPass(c.Request.Context(), req.TxHash, service.BuyPassRequest{
		UserID:   req.UserID,
		PassType: domain.PassType(req.PassType),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPassResponse(pass))
}

// GetPass handles GET /v1/passes/:id
func (h *PassHandler) GetPass(c *gin.Context) {
	pass, err := h.settlementService.GetPass(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPassResponse(pass))
}

// ListUserPasses handles GET /v1/users/:id/passes
func (h *PassHandler) ListUserPasses(c *gin.Context) {
	passes, err := h.settlementService.ListUserPasses(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]PassResponse, 0, len(passes))
	for _, p := range passes {
		out = append(out, toPassResponse(p))
	}
	respondJSON(c, http.StatusOK, gin.H{"passes": out})
}
