package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/africoin-labs/wallet_service/internal/api/routes"
	"github.com/africoin-labs/wallet_service/internal/domain/services/balance"
	"github.com/africoin-labs/wallet_service/internal/domain/services/ledger"
	"github.com/africoin-labs/wallet_service/internal/domain/services/transfer"
	"github.com/africoin-labs/wallet_service/internal/domain/tokens"
	"github.com/africoin-labs/wallet_service/internal/infrastructure/aaclient"
	"github.com/africoin-labs/wallet_service/internal/infrastructure/cache"
	"github.com/africoin-labs/wallet_service/internal/infrastructure/chainrpc"
	"github.com/africoin-labs/wallet_service/internal/infrastructure/config"
	"github.com/africoin-labs/wallet_service/internal/infrastructure/database"
	"github.com/africoin-labs/wallet_service/internal/infrastructure/repositories"
	transferwatcher "github.com/africoin-labs/wallet_service/internal/workers/transfer_watcher"
	"github.com/africoin-labs/wallet_service/pkg/logger"
	"github.com/africoin-labs/wallet_service/pkg/metrics"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	// Database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database connection", "error", err)
		}
	}()

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis, log.Zap())
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisClient.Close()

	// Token catalog and chain clients
	catalog := tokens.NewCatalog(cfg.Chain)
	log.Info("Token catalog loaded",
		"chain", cfg.Chain.Name,
		"native", catalog.NativeSymbol(),
		"tokens", catalog.Symbols())
	chainClient := chainrpc.NewClient(chainrpc.Config{
		RPCURL:         cfg.Chain.RPC,
		NativeDecimals: catalog.NativeDecimals(),
	}, log.Zap())
	accountClient := aaclient.NewClient(cfg.Account, log.Zap())

	// Domain services
	sqlxDB := sqlx.NewDb(db, "postgres")
	transferRepo := repositories.NewTransferRepository(sqlxDB)
	ledgerService := ledger.NewService(transferRepo, redisClient, log)
	balanceService := balance.NewService(chainClient, catalog, redisClient, log)
	transferService := transfer.NewService(
		ledgerService, accountClient, chainClient, balanceService, catalog, log)

	// Background watcher
	watcher := transferwatcher.NewWorker(transferService, ledgerService, cfg.Workers, log)
	if err := watcher.Start(); err != nil {
		log.Fatal("Failed to start transfer watcher", "error", err)
	}

	// HTTP server
	router := routes.SetupRoutes(&routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Redis:    redisClient,
		Balances: balanceService,
		Ledger:   ledgerService,
		Transfer: transferService,
		Version:  version,
	})

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		log.Info("Starting server",
			"port", cfg.Server.Port,
			"environment", cfg.Environment,
			"chain", cfg.Chain.Name,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Database connection metrics
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			stats := db.Stats()
			metrics.DatabaseConnectionsGauge.WithLabelValues("open").Set(float64(stats.OpenConnections))
			metrics.DatabaseConnectionsGauge.WithLabelValues("idle").Set(float64(stats.Idle))
			metrics.DatabaseConnectionsGauge.WithLabelValues("in_use").Set(float64(stats.InUse))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited gracefully")
}
