// Package routes defines the API routing configuration.
// It wires repositories, services and handlers together and groups the
// routes by functionality with their middleware.
package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledgerpay/internal/config"
	"ledgerpay/internal/gateway"
	"ledgerpay/internal/handlers"
	"ledgerpay/internal/logging"
	appmetrics "ledgerpay/internal/metrics"
	"ledgerpay/internal/middleware"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/events"
	"ledgerpay/internal/services/ledger"
	"ledgerpay/internal/services/report"
	"ledgerpay/internal/services/wallet"
	"ledgerpay/internal/services/withdrawal"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, logger *logging.Logger) {
	repo := repositories.NewLedgerRepository(repositories.DB)
	metricsCollector := appmetrics.NewPrometheusCollector(prometheus.DefaultRegisterer)

	// Payment gateway: Paystack by default, Stripe when configured, with
	// account-name resolution memoized in-process.
	var gw gateway.Gateway
	if config.GetEnv("GATEWAY_PROVIDER", "paystack") == "stripe" {
		gw = gateway.NewStripeProvider()
	} else {
		gw = gateway.NewPaystackProvider(logger)
	}
	gw = gateway.NewCachedResolver(gw, config.GetDurationEnv("RESOLVE_CACHE_TTL", time.Hour))

	dispatcher := events.NewDispatcher(logger)
	dispatcher.AddSink(&events.LogSink{Logger: logger})
	if repositories.CacheService != nil {
		if client := repositories.CacheService.Client(); client != nil {
			dispatcher.AddSink(&events.RedisSink{
				Client:  client,
				Channel: config.GetEnv("EVENT_CHANNEL", "ledgerpay.events"),
			})
		}
	}

	ledgerService := ledger.NewService(repo, repositories.CacheService, dispatcher, logger, metricsCollector)
	walletService := wallet.NewService(
		repo,
		repositories.CacheService,
		gw,
		wallet.WalletConfig{},
		logger,
		metricsCollector,
	)
	withdrawalService := withdrawal.NewService(
		repo,
		ledgerService,
		walletService,
		gw,
		dispatcher,
		withdrawal.Config{FeeRate: config.GetDecimalEnv("WITHDRAWAL_FEE_RATE", "0.005")},
		logger,
		metricsCollector,
	)
	reportService := report.NewService(repo)

	walletHandler := handlers.NewWalletHandler(walletService)
	transactionHandler := handlers.NewTransactionHandler(ledgerService)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService)
	reportHandler := handlers.NewReportHandler(reportService)
	bankHandler := handlers.NewBankHandler(gw)

	// Public endpoints
	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to the LedgerPay API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})

	api := app.Group("/api")

	// Protected routes with auth middleware
	protected := api.Use(middleware.AuthMiddleware)

	setupWalletRoutes(protected, walletHandler, bankHandler)
	setupTransactionRoutes(protected, transactionHandler)
	setupWithdrawalRoutes(protected, withdrawalHandler)
	setupAdminRoutes(app, walletHandler, transactionHandler, withdrawalHandler, reportHandler)
}

func setupWalletRoutes(router fiber.Router, walletHandler *handlers.WalletHandler, bankHandler *handlers.BankHandler) {
	w := router.Group("/wallet")
	w.Get("/", middleware.HasPermission(models.PermissionWalletRead), walletHandler.GetWallet)
	w.Get("/balance", middleware.HasPermission(models.PermissionWalletRead), walletHandler.GetBalance)
	w.Put("/bank-account", middleware.HasPermission(models.PermissionWalletWrite), walletHandler.UpdateBankAccount)
	w.Post("/bank-account/verify", middleware.HasPermission(models.PermissionWalletWrite), walletHandler.VerifyBankAccount)

	router.Get("/banks", bankHandler.List)
	router.Get("/banks/resolve", bankHandler.Resolve)
}

func setupTransactionRoutes(router fiber.Router, h *handlers.TransactionHandler) {
	router.Get("/transactions", middleware.HasPermission(models.PermissionLedgerRead), h.Statement)
	router.Get("/transactions/reference/:reference", middleware.HasPermission(models.PermissionLedgerRead), h.GetByReference)
	router.Get("/transactions/:id", middleware.HasPermission(models.PermissionLedgerRead), h.GetTransaction)
}

func setupWithdrawalRoutes(router fiber.Router, h *handlers.WithdrawalHandler) {
	wd := router.Group("/withdrawals")
	wd.Post("/", middleware.HasPermission(models.PermissionWithdrawalWrite), h.Request)
	wd.Get("/:id", middleware.HasPermission(models.PermissionWalletRead), h.Get)
	wd.Post("/:id/cancel", middleware.HasPermission(models.PermissionWithdrawalWrite), h.Cancel)
}

func setupAdminRoutes(
	app *fiber.App,
	walletHandler *handlers.WalletHandler,
	transactionHandler *handlers.TransactionHandler,
	withdrawalHandler *handlers.WithdrawalHandler,
	reportHandler *handlers.ReportHandler,
) {
	admin := app.Group("/api/admin", middleware.AuthMiddleware, middleware.AdminAuthMiddleware)

	// Wallet administration
	admin.Post("/wallets", middleware.HasPermission(models.PermissionWriteAdmin), walletHandler.CreateWallet)
	admin.Put("/wallets/:userId/limits", middleware.HasPermission(models.PermissionWriteAdmin), walletHandler.UpdateLimits)
	admin.Put("/wallets/:userId/status", middleware.HasPermission(models.PermissionWriteAdmin), walletHandler.SetStatus)
	admin.Get("/wallets/:userId/replay", middleware.HasPermission(models.PermissionReadAdmin), transactionHandler.ReplayBalance)
	admin.Get("/wallets/:userId/transactions", middleware.HasPermission(models.PermissionReadAdmin), reportHandler.UserStatement)

	// Settlement and reversal
	admin.Post("/settlements", middleware.HasPermission(models.PermissionWriteAdmin), transactionHandler.SettleOrder)
	admin.Post("/transactions/:id/reverse", middleware.HasPermission(models.PermissionWriteAdmin), transactionHandler.Reverse)
	admin.Post("/vat/remit", middleware.HasPermission(models.PermissionWriteAdmin), transactionHandler.RemitVAT)

	// Withdrawal approval
	admin.Post("/withdrawals/:id/approve", middleware.HasPermission(models.PermissionWriteAdmin), withdrawalHandler.Approve)
	admin.Post("/withdrawals/:id/reject", middleware.HasPermission(models.PermissionWriteAdmin), withdrawalHandler.Reject)

	// Reports
	admin.Get("/reports/vat", middleware.HasPermission(models.PermissionReadAdmin), reportHandler.VAT)
	admin.Get("/reports/commission", middleware.HasPermission(models.PermissionReadAdmin), reportHandler.Commission)
	admin.Get("/reports/withdrawals", middleware.HasPermission(models.PermissionReadAdmin), reportHandler.Withdrawals)
}
