package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"railpay/internal/service"
)

// VerifyHandler handles HTTP requests for identity verification.
type VerifyHandler struct {
	verificationService *service.VerificationService
}

// NewVerifyHandler creates a new VerifyHandler.
func NewVerifyHandler(verificationService *service.VerificationService) *VerifyHandler {
	return &VerifyHandler{verificationService: verificationService}
}

// VerifyNINRequest is the HTTP request body for a verification attempt.
type VerifyNINRequest struct {
	UserID   string `json:"user_id"`
	NIN      string `json:"nin"`
	FullName string `json:"full_name"`
	DOB      string `json:"dob"`
	Phone    string `json:"phone"`
}

// VerifyNINResponse is the HTTP response for a verification attempt.
type VerifyNINResponse struct {
	Status  string `json:"status"`
	Matched bool   `json:"matched"`
}

// VerifyNIN handles POST /v1/verify/nin
func (h *VerifyHandler) VerifyNIN(c *gin.Context) {
	var req VerifyNINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.UserID == "" || req.NIN == "" || req.FullName == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id, nin and full_name are required"})
		return
	}

	outcome, err := h.verificationService.Verify(c.Request.Context(), service.VerifyRequest{
		UserID:   req.UserID,
		NIN:      req.NIN,
		FullName: req.FullName,
		DOB:      req.DOB,
		Phone:    req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, VerifyNINResponse{
		Status:  string(outcome.Status),
		Matched: outcome.Matched,
	})
}
