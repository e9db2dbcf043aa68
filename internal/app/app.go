package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kwachapay/emi-platform/internal/api"
	"github.com/kwachapay/emi-platform/internal/api/middleware"
	"github.com/kwachapay/emi-platform/internal/config"
	"github.com/kwachapay/emi-platform/internal/db"
	"github.com/kwachapay/emi-platform/internal/gateway"
	"github.com/kwachapay/emi-platform/internal/idempotency"
	"github.com/kwachapay/emi-platform/internal/observability"
	"github.com/kwachapay/emi-platform/internal/repository"
	"github.com/kwachapay/emi-platform/internal/service"
	"github.com/kwachapay/emi-platform/internal/worker"
	"github.com/kwachapay/emi-platform/internal/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and background workers, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	idemStore := idempotency.NewStore(redisClient, pool, cfg.IdempotencyTTL)
	store := repository.NewStore(pool)
	hub := ws.NewHub()
	bank := gateway.NewMockGateway()

	otpSvc := service.NewOTPService(redisClient, cfg.OTPTTL)
	walletSvc := service.NewWalletService(store)
	userSvc := service.NewUserService(store)
	orgSvc := service.NewOrganizationService(store)
	amlSvc := service.NewAmlService(store)
	txSvc := service.NewTransactionService(store, amlSvc, otpSvc, hub, cfg.QRCodeTTL)
	settlementSvc := service.NewSettlementService(store, bank, hub)
	complianceSvc := service.NewComplianceService(store)
	docSvc := service.NewDocumentService(store, cfg.DocumentDir)

	expiryWorker := worker.NewExpiryWorker(txSvc).
		WithPollInterval(cfg.ExpirySweepInterval).
		WithBatchSize(cfg.ExpiryBatchSize)
	stopExpiry := expiryWorker.Run(ctx)
	logger.Info("expiry worker started", zap.Duration("interval", cfg.ExpirySweepInterval), zap.Int32("batch", cfg.ExpiryBatchSize))

	complianceWorker := worker.NewComplianceWorker(complianceSvc).
		WithInterval(cfg.ComplianceReportInterval)
	stopCompliance := complianceWorker.Run(ctx)
	logger.Info("compliance worker started", zap.Duration("interval", cfg.ComplianceReportInterval))

	router := api.NewRouter(cfg, logger, pool, redisClient, idemStore, hub, api.Services{
		Users:         userSvc,
		Organizations: orgSvc,
		Wallets:       walletSvc,
		Transactions:  txSvc,
		Settlements:   settlementSvc,
		Aml:           amlSvc,
		Compliance:    complianceSvc,
		Documents:     docSvc,
		OTP:           otpSvc,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping workers")
	stopExpiry()
	stopCompliance()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
