package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"railpay/internal/app"
	"railpay/internal/config"
	"railpay/internal/handler"
	"railpay/internal/ledger"
	internalRedis "railpay/internal/redis"
	"railpay/internal/repository/postgres"
	"railpay/internal/service"
)

func main() {
	// Load .env if present, then configuration from the environment.
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Initialize ledger clients.
	ledgerCfg := ledgerConfig(cfg.Ledger)
	ledgerClient, err := ledger.NewClient(ctx, ledgerCfg)
	if err != nil {
		log.Fatalf("failed to connect to ledger: %v", err)
	}
	defer ledgerClient.Close()
	log.Printf("Connected to ledger, operator=%s", ledgerClient.OperatorAddress())

	ledgerReader, err := ledger.NewReader(ctx, ledgerCfg)
	if err != nil {
		log.Fatalf("failed to connect ledger reader: %v", err)
	}
	defer ledgerReader.Close()

	// Wire dependencies.
	server := wireServer(db, redisClient, ledgerClient, ledgerReader, nrApp, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// ledgerConfig translates the env-level configuration into the ledger
// package's explicit Config.
func ledgerConfig(cfg config.LedgerConfig) ledger.Config {
	return ledger.Config{
		RPCURL:           cfg.RPCURL,
		PrivateKey:       cfg.PrivateKey,
		ChainID:          cfg.ChainID,
		TicketContract:   common.HexToAddress(cfg.TicketContract),
		PassContract:     common.HexToAddress(cfg.PassContract),
		PaymentsContract: common.HexToAddress(cfg.PaymentsContract),
		ConfirmDepth:     cfg.ConfirmDepth,
		ConfirmTimeout:   cfg.ConfirmTimeout,
	}
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, ledgerClient *ledger.Client, ledgerReader *ledger.Reader, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	// Initialize Redis stores.
	cacheStore := internalRedis.NewCacheStore(redisClient)
	cursorStore := internalRedis.NewCursorStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)

	// Initialize repositories.
	ticketRepo := postgres.NewTicketRepository(db)
	passRepo := postgres.NewPassRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	routeRepo := postgres.NewRouteRepository(db)
	staffRepo := postgres.NewStaffRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	verificationRepo := postgres.NewVerificationRepository(db)

	// Initialize services.
	settlementService := service.NewSettlementService(
		ledgerClient, ledgerReader,
		ticketRepo, passRepo, paymentRepo, profileRepo, routeRepo,
		cacheStore, service.SettlementConfig{},
	)
	if err := settlementService.SeedRouteMappings(context.Background()); err != nil {
		log.Fatalf("route id mapping collision: %v", err)
	}
	validationService := service.NewValidationService(ledgerClient, ticketRepo, staffRepo, auditRepo, cacheStore)
	reconcileService := service.NewReconcileService(
		ledgerReader,
		ticketRepo, passRepo, paymentRepo, profileRepo, routeRepo,
		cursorStore, lockStore,
	)
	korapay := service.NewKorapayClient(service.KorapayConfig{
		BaseURL:   cfg.Korapay.BaseURL,
		SecretKey: cfg.Korapay.SecretKey,
		Timeout:   cfg.Korapay.Timeout,
	})
	verificationService := service.NewVerificationService(korapay, profileRepo, verificationRepo)
	adminService := service.NewAdminService(routeRepo, staffRepo, auditRepo, cacheStore)

	// Initialize handlers.
	ticketHandler := handler.NewTicketHandler(settlementService)
	passHandler := handler.NewPassHandler(settlementService)
	paymentHandler := handler.NewPaymentHandler(settlementService)
	validateHandler := handler.NewValidateHandler(validationService)
	verifyHandler := handler.NewVerifyHandler(verificationService)
	adminHandler := handler.NewAdminHandler(adminService)
	reconcileHandler := handler.NewReconcileHandler(reconcileService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TicketHandler:    ticketHandler,
		PassHandler:      passHandler,
		PaymentHandler:   paymentHandler,
		ValidateHandler:  validateHandler,
		VerifyHandler:    verifyHandler,
		AdminHandler:     adminHandler,
		ReconcileHandler: reconcileHandler,
		RedisClient:      redisClient,
		NewRelicApp:      nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
