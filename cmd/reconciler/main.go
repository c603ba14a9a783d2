// Command reconciler runs exactly one reconciliation scan and exits.
// Scheduling belongs to the environment (cron, a Kubernetes CronJob);
// the process carries no timer loop of its own.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"railpay/internal/app"
	"railpay/internal/config"
	"railpay/internal/ledger"
	internalRedis "railpay/internal/redis"
	"railpay/internal/repository/postgres"
	"railpay/internal/service"
)

func main() {
	var (
		fromBlock = flag.Uint64("from", 0, "scan from this block (with -to; otherwise resume from cursor)")
		toBlock   = flag.Uint64("to", 0, "scan up to this block inclusive")
		timeout   = flag.Duration("timeout", 10*time.Minute, "overall scan timeout")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := app.NewDatabase(ctx, cfg.Database, nil)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nil)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	reader, err := ledger.NewReader(ctx, ledger.Config{
		RPCURL:           cfg.Ledger.RPCURL,
		ChainID:          cfg.Ledger.ChainID,
		TicketContract:   common.HexToAddress(cfg.Ledger.TicketContract),
		PassContract:     common.HexToAddress(cfg.Ledger.PassContract),
		PaymentsContract: common.HexToAddress(cfg.Ledger.PaymentsContract),
	})
	if err != nil {
		log.Fatalf("failed to connect to ledger: %v", err)
	}
	defer reader.Close()

	reconcileService := service.NewReconcileService(
		reader,
		postgres.NewTicketRepository(db),
		postgres.NewPassRepository(db),
		postgres.NewPaymentRepository(db),
		postgres.NewProfileRepository(db),
		postgres.NewRouteRepository(db),
		internalRedis.NewCursorStore(redisClient),
		internalRedis.NewLockStore(redisClient),
	)

	var report *service.ReconcileReport
	if *toBlock > 0 {
		report, err = reconcileService.Scan(ctx, *fromBlock, *toBlock)
	} else {
		report, err = reconcileService.ScanLatest(ctx)
	}
	if err != nil {
		log.Fatalf("scan failed: %v", err)
	}

	log.Printf("scan complete: blocks %d-%d minted=%d validated=%d passes=%d payments=%d/%d skipped=%d",
		report.FromBlock, report.ToBlock, report.TicketsMinted, report.TicketsValidated,
		report.PassesIssued, report.TicketPayments, report.PassPayments, report.Skipped)
	for _, e := range report.Errors {
		log.Printf("scan error: %s", e)
	}
}
