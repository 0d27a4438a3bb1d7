package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"greencycle/waste-portal/waste-portal-backend/internal/auth"
	"greencycle/waste-portal/waste-portal-backend/internal/config"
	"greencycle/waste-portal/waste-portal-backend/internal/fraud"
	"greencycle/waste-portal/waste-portal-backend/internal/identity"
	"greencycle/waste-portal/waste-portal-backend/internal/rates"
	"greencycle/waste-portal/waste-portal-backend/internal/settlements"
	"greencycle/waste-portal/waste-portal-backend/internal/settlements/export"
	"greencycle/waste-portal/waste-portal-backend/internal/shipments"
	"greencycle/waste-portal/waste-portal-backend/internal/tokens"
	"greencycle/waste-portal/waste-portal-backend/internal/wallet"
)

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	return cfg.Build()
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger, err := newLogger(cfg.Logging.Level)
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
	if err := db.AutoMigrate(
		&rates.Rate{}, &rates.RateEdit{},
		&wallet.Wallet{}, &wallet.LedgerEntry{},
		&tokens.Token{}, &tokens.TokenEvent{},
		&shipments.Shipment{},
		&settlements.AdminAuditLog{},
	); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	directory := identity.NewDirectory(db)
	checker := fraud.NewChecker()

	rateService := rates.NewService(rates.NewRepository(db), logger)
	walletService := wallet.NewService(wallet.NewRepository(db), logger)
	tokenService := tokens.NewService(tokens.NewRepository(db), rateService, checker, directory, cfg.Settlement.ShipmentPricing, logger)
	shipmentService := shipments.NewService(shipments.NewRepository(db), logger)
	settlementService := settlements.NewService(settlements.NewRepository(db), walletService, cfg.Settlement, logger)

	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API alive!"})
	})

	v1 := r.Group("/api/v1", auth.Authenticate(authService))
	rates.NewHandler(rateService).RegisterRoutes(v1)
	wallet.NewHandler(walletService).RegisterRoutes(v1)
	tokens.NewHandler(tokenService).RegisterRoutes(v1)
	shipments.NewHandler(shipmentService).RegisterRoutes(v1)
	settlements.NewHandler(settlementService, cfg.Settlement, func() settlements.Exporter {
		return export.NewExcelExporter()
	}).RegisterRoutes(v1)

	logger.Info("server starting", zap.String("addr", cfg.Server.GetServerAddr()))
	if err := r.Run(cfg.Server.GetServerAddr()); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
