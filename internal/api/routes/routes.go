package routes

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/africoin-labs/wallet_service/internal/api/handlers"
	"github.com/africoin-labs/wallet_service/internal/api/middleware"
	"github.com/africoin-labs/wallet_service/internal/domain/services/balance"
	"github.com/africoin-labs/wallet_service/internal/domain/services/ledger"
	"github.com/africoin-labs/wallet_service/internal/domain/services/transfer"
	"github.com/africoin-labs/wallet_service/internal/infrastructure/cache"
	"github.com/africoin-labs/wallet_service/internal/infrastructure/config"
	"github.com/africoin-labs/wallet_service/pkg/logger"
)

// Dependencies carries everything the router needs
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *sql.DB
	Redis    cache.RedisClient
	Balances *balance.Service
	Ledger   *ledger.Service
	Transfer *transfer.Service
	Version  string
}

// SetupRoutes configures all application routes
func SetupRoutes(deps *Dependencies) *gin.Engine {
	if deps.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CORS(deps.Config.Server.AllowedOrigins))

	walletHandlers := handlers.NewWalletHandlers(deps.Balances, deps.Logger)
	transferHandlers := handlers.NewTransferHandlers(deps.Transfer, deps.Ledger, deps.Logger)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Redis, deps.Version)

	// Health and metrics (no auth required)
	router.GET("/health", healthHandler.Liveness)
	router.GET("/ready", healthHandler.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Authenticated wallet API
	api := router.Group("/api/v1")
	api.Use(middleware.Authentication(deps.Config.JWT))
	{
		wallet := api.Group("/wallet")
		{
			wallet.GET("/balances", walletHandlers.GetBalances)
			wallet.POST("/transfers", transferHandlers.Send)
			wallet.GET("/transfers", transferHandlers.List)
			wallet.GET("/transfers/stream", transferHandlers.Stream)
			wallet.GET("/transfers/fee", transferHandlers.EstimateFee)
		}
	}

	return router
}
