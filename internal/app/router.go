package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"railpay/internal/handler"
	"railpay/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TicketHandler    *handler.TicketHandler
	PassHandler      *handler.PassHandler
	PaymentHandler   *handler.PaymentHandler
	ValidateHandler  *handler.ValidateHandler
	VerifyHandler    *handler.VerifyHandler
	AdminHandler     *handler.AdminHandler
	ReconcileHandler *handler.ReconcileHandler
	RedisClient      *redis.Client
	NewRelicApp      *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Ticket routes.
		tickets := v1.Group("/tickets")
		{
			tickets.POST("", deps.TicketHandler.BuyTicket)
			tickets.POST("/recover", deps.TicketHandler.RecoverTicket)
			tickets.POST("/validate", deps.ValidateHandler.ValidateTicket)
			tickets.GET("/:id", deps.TicketHandler.GetTicket)
		}

		// Pass routes.
		passes := v1.Group("/passes")
		{
			passes.POST("", deps.PassHandler.BuyPass)
			passes.POST("/recover", deps.PassHandler.RecoverPass)
			passes.GET("/:id", deps.PassHandler.GetPass)
		}

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("", deps.PaymentHandler.Pay)
			payments.POST("/recover", deps.PaymentHandler.RecoverPayment)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
		}

		// Per-user listings.
		users := v1.Group("/users")
		{
			users.GET("/:id/tickets", deps.TicketHandler.ListUserTickets)
			users.GET("/:id/passes", deps.PassHandler.ListUserPasses)
			users.GET("/:id/payments", deps.PaymentHandler.ListUserPayments)
		}

		// Identity verification.
		v1.POST("/verify/nin", deps.VerifyHandler.VerifyNIN)

		// Route catalog.
		routes := v1.Group("/routes")
		{
			routes.GET("", deps.AdminHandler.ListRoutes)
			routes.GET("/:id", deps.AdminHandler.GetRoute)
		}

		// Back-office routes.
		admin := v1.Group("/admin")
		{
			admin.PUT("/routes/:id", deps.AdminHandler.UpdateRoute)
			admin.PUT("/routes/:id/fare", deps.AdminHandler.UpdateFare)
			admin.GET("/audit", deps.AdminHandler.ListAudit)
		}

		// Reconciliation, triggered by an external scheduler.
		reconcile := v1.Group("/reconcile")
		{
			reconcile.POST("", deps.ReconcileHandler.ScanLatest)
			reconcile.POST("/range", deps.ReconcileHandler.ScanRange)
		}
	}

	return router
}
