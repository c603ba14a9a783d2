package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"railpay/internal/domain"
	"railpay/internal/service"
)

// AdminHandler handles HTTP requests for back-office route management.
type AdminHandler struct {
	adminService *service.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// UpdateFareRequest is the HTTP request body for a fare change.
type UpdateFareRequest struct {
	AdminID string `json:"admin_id"`
	Price   string `json:"price"`
}

// UpdateRouteRequest is the HTTP request body for a route change.
type UpdateRouteRequest struct {
	AdminID     string `json:"admin_id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Price       string `json:"price"`
	Active      *bool  `json:"active"`
}

// RouteResponse is the HTTP response for route operations.
type RouteResponse struct {
	ID          string `json:"id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	BasePrice   string `json:"base_price"`
	Active      bool   `json:"active"`
}

func toRouteResponse(route *domain.Route) RouteResponse {
	return RouteResponse{
		ID:          route.ID,
		Origin:      route.Origin,
		Destination: route.Destination,
		BasePrice:   route.BasePrice.String(),
		Active:      route.Active,
	}
}

// UpdateFare handles PUT /v1/admin/routes/:id/fare
func (h *AdminHandler) UpdateFare(c *gin.Context) {
	var req UpdateFareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "price must be a decimal string"})
		return
	}

	route, err := h.adminService.UpdateFare(c.Request.Context(), req.AdminID, c.Param("id"), price)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRouteResponse(route))
}

// UpdateRoute handles PUT /v1/admin/routes/:id
func (h *AdminHandler) UpdateRoute(c *gin.Context) {
	var req UpdateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "price must be a decimal string"})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	route, err := h.adminService.UpdateRoute(c.Request.Context(), req.AdminID, &domain.Route{
		ID:          c.Param("id"),
		Origin:      req.Origin,
		Destination: req.Destination,
		BasePrice:   price,
		Active:      active,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRouteResponse(route))
}

// GetRoute handles GET /v1/routes/:id
func (h *AdminHandler) GetRoute(c *gin.Context) {
	route, err := h.adminService.GetRoute(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRouteResponse(route))
}

// ListRoutes handles GET /v1/routes
func (h *AdminHandler) ListRoutes(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	routes, err := h.adminService.ListRoutes(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		out = append(out, toRouteResponse(r))
	}
	respondJSON(c, http.StatusOK, gin.H{"routes": out})
}

// AuditEntryResponse is the HTTP response for one audit entry.
type AuditEntryResponse struct {
	ID           string         `json:"id"`
	AdminID      string         `json:"admin_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Description  string         `json:"description"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    int64          `json:"created_at"`
}

// ListAudit handles GET /v1/admin/audit
func (h *AdminHandler) ListAudit(c *gin.Context) {
	adminID := c.Query("admin_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.adminService.ListAudit(c.Request.Context(), adminID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:           e.ID,
			AdminID:      e.AdminID,
			Action:       string(e.Action),
			ResourceType: e.ResourceType,
			ResourceID:   e.ResourceID,
			Description:  e.Description,
			Metadata:     e.Metadata,
			CreatedAt:    e.CreatedAt.Unix(),
		})
	}
	respondJSON(c, http.StatusOK, gin.H{"entries": out})
}
