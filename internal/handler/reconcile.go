package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"railpay/internal/service"
)

// ReconcileHandler handles HTTP-triggered reconciliation scans. Scheduling
// lives outside the process; an external cron hits these endpoints.
type ReconcileHandler struct {
	reconcileService *service.ReconcileService
}

// NewReconcileHandler creates a new ReconcileHandler.
func NewReconcileHandler(reconcileService *service.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{reconcileService: reconcileService}
}

// ScanLatest handles POST /v1/reconcile
func (h *ReconcileHandler) ScanLatest(c *gin.Context) {
	report, err := h.reconcileService.ScanLatest(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, report)
}

// ScanRange handles POST /v1/reconcile/range?from=N&to=M
func (h *ReconcileHandler) ScanRange(c *gin.Context) {
	from, err := strconv.ParseUint(c.Query("from"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "from must be a block number"})
		return
	}
	to, err := strconv.ParseUint(c.Query("to"), 10, 64)
	if err != nil || to < from {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "to must be a block number >= from"})
		return
	}

	report, err := h.reconcileService.Scan(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, report)
}
