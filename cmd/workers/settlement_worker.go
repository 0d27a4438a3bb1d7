package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"greencycle/waste-portal/waste-portal-backend/internal/config"
	"greencycle/waste-portal/waste-portal-backend/internal/shipments"
	"greencycle/waste-portal/waste-portal-backend/internal/tokens"
	"greencycle/waste-portal/waste-portal-backend/pkg/workflows"
)

const sweepBatchSize = 100

// worker is the settlement hygiene sweep: it soft-flags tokens that sit in
// transferred_to_factory past the configured age and reports factory
// shipments still unpaid past the payment-due window. It never moves money
// and never hard-fails a token.
type worker struct {
	tokenRepo    tokens.Repository
	shipmentRepo shipments.Repository
	cfg          config.SettlementConfig
	logger       *zap.Logger
}

func (w *worker) sweep(ctx context.Context) {
	now := time.Now()

	stuck, err := w.tokenRepo.ListStuck(ctx, workflows.StatusTransferredToFactory, now.Add(-w.cfg.StuckTokenAge), sweepBatchSize)
	if err != nil {
		w.logger.Error("stuck token sweep failed", zap.Error(err))
	}
	for _, tok := range stuck {
		if !tok.IsValid {
			continue // already under review
		}
		reason := "awaiting factory verification past review window"
		event := tokens.NewFlagEvent(tok.ID, reason)
		if err := w.tokenRepo.Flag(ctx, tok.ID, reason, event); err != nil {
			w.logger.Error("failed to flag stuck token",
				zap.String("code", tok.Code), zap.Error(err))
			continue
		}
		w.logger.Warn("token flagged for review",
			zap.String("code", tok.Code),
			zap.Duration("age", now.Sub(tok.UpdatedAt)))
	}

	overdue, err := w.shipmentRepo.ListUnpaidOlderThan(ctx, now.Add(-w.cfg.PaymentDueWindow), sweepBatchSize)
	if err != nil {
		w.logger.Error("overdue shipment sweep failed", zap.Error(err))
		return
	}
	for _, s := range overdue {
		w.logger.Warn("shipment payment overdue",
			zap.String("token_code", s.TokenCode),
			zap.String("factory_id", s.FactoryID.String()),
			zap.String("outstanding", s.TotalAmount.Sub(s.PaidAmount).String()),
			zap.Time("verified_at", s.VerifiedAt))
	}
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal("failed to load config:", err)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("failed to build logger:", err)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	w := &worker{
		tokenRepo:    tokens.NewRepository(db),
		shipmentRepo: shipments.NewRepository(db),
		cfg:          cfg.Settlement,
		logger:       logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := cron.New()
	if _, err := c.AddFunc("@every 10m", func() { w.sweep(ctx) }); err != nil {
		logger.Fatal("failed to schedule sweep", zap.Error(err))
	}
	c.Start()
	logger.Info("settlement worker started",
		zap.Duration("stuck_token_age", cfg.Settlement.StuckTokenAge),
		zap.Duration("payment_due_window", cfg.Settlement.PaymentDueWindow))

	// Run once at startup, then on schedule.
	w.sweep(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("settlement worker shutting down")
	<-c.Stop().Done()
}
