package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kwachapay/emi-platform/internal/api/handler"
	"github.com/kwachapay/emi-platform/internal/api/middleware"
	"github.com/kwachapay/emi-platform/internal/api/spec"
	"github.com/kwachapay/emi-platform/internal/config"
	"github.com/kwachapay/emi-platform/internal/domain"
	"github.com/kwachapay/emi-platform/internal/idempotency"
	"github.com/kwachapay/emi-platform/internal/service"
	"github.com/kwachapay/emi-platform/internal/ws"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Services bundles the wired application services the router exposes.
type Services struct {
	Users         *service.UserService
	Organizations *service.OrganizationService
	Wallets       *service.WalletService
	Transactions  *service.TransactionService
	Settlements   *service.SettlementService
	Aml           *service.AmlService
	Compliance    *service.ComplianceService
	Documents     *service.DocumentService
	OTP           *service.OTPService
}

type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	redis     redis.Cmdable
	idemStore *idempotency.Store
	hub       *ws.Hub
	svc       Services
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, redisClient redis.Cmdable, idemStore *idempotency.Store, hub *ws.Hub, svc Services) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		idemStore: idemStore,
		hub:       hub,
		svc:       svc,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	authHandler := handler.NewAuthHandler(api.svc.Users, api.cfg.TokenTTL)
	userHandler := handler.NewUserHandler(api.svc.Users)
	orgHandler := handler.NewOrganizationHandler(api.svc.Organizations)
	walletHandler := handler.NewWalletHandler(api.svc.Wallets)
	txHandler := handler.NewTransactionHandler(api.svc.Transactions)
	settlementHandler := handler.NewSettlementHandler(api.svc.Settlements)
	amlHandler := handler.NewAmlHandler(api.svc.Aml)
	complianceHandler := handler.NewComplianceHandler(api.svc.Compliance)
	docHandler := handler.NewDocumentHandler(api.svc.Documents)
	otpHandler := handler.NewOTPHandler(api.svc.OTP)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Post("/v1/auth/login", authHandler.Login)
	})

	r.Get("/healthz/live", healthHandler.Live)
	r.Get("/healthz/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/ws", api.hub.ServeHTTP)
		r.Get("/v1/wallet", walletHandler.GetMyWallet)
		r.With(middleware.RequireAnyRole(domain.RoleFinance, domain.RoleAdmin)).
			Get("/v1/wallets/{userID}", walletHandler.GetUserWallet)

		// Merchant collection lifecycle
		r.With(middleware.RequireRole(domain.RoleMerchant), middleware.IdempotencyMiddleware(api.idemStore, api.logger)).
			Post("/v1/transactions", txHandler.CreateTransaction)
		r.Get("/v1/transactions", txHandler.ListTransactions)
		r.Get("/v1/transactions/{id}", txHandler.GetTransaction)
		r.With(middleware.RequireRole(domain.RoleCashier)).
			Post("/v1/transactions/{id}/verify", txHandler.VerifyTransaction)
		r.With(middleware.RequireAnyRole(domain.RoleCashier, domain.RoleFinance)).
			Post("/v1/transactions/{id}/reject", txHandler.RejectTransaction)

		// Cashier session codes
		r.With(middleware.RequireRole(domain.RoleCashier)).Post("/v1/otp", otpHandler.IssueOTP)

		// Settlement pipeline
		r.With(middleware.RequireAnyRole(domain.RoleMerchant, domain.RoleFinance), middleware.IdempotencyMiddleware(api.idemStore, api.logger)).
			Post("/v1/settlements", settlementHandler.CreateSettlement)
		r.Get("/v1/settlements", settlementHandler.ListSettlements)
		r.Get("/v1/settlements/{id}", settlementHandler.GetSettlement)
		r.Route("/v1/settlements/{id}", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(domain.RoleFinance, domain.RoleAdmin))
			r.Post("/approve", settlementHandler.ReviewSettlement(domain.SettlementStatusApproved))
			r.Post("/hold", settlementHandler.ReviewSettlement(domain.SettlementStatusHold))
			r.Post("/reject", settlementHandler.ReviewSettlement(domain.SettlementStatusRejected))
			r.Post("/complete", settlementHandler.CompleteSettlement)
		})

		// Organizations and KYC
		r.With(middleware.RequireRole(domain.RoleAdmin)).Post("/v1/organizations", orgHandler.CreateOrganization)
		r.With(middleware.RequireAnyRole(domain.RoleFinance, domain.RoleAdmin)).Get("/v1/organizations", orgHandler.ListOrganizations)
		r.Get("/v1/organizations/{id}", orgHandler.GetOrganization)
		r.With(middleware.RequireAnyRole(domain.RoleFinance, domain.RoleAdmin)).
			Post("/v1/organizations/{id}/kyc", orgHandler.ReviewKYC)

		// Users (admin)
		r.Route("/v1/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Post("/", userHandler.CreateUser)
			r.Get("/", userHandler.ListUsers)
			r.Get("/{id}", userHandler.GetUser)
			r.Patch("/{id}/active", userHandler.SetUserActive)
		})

		// Documents
		r.Post("/v1/documents", docHandler.UploadDocument)
		r.With(middleware.RequireAnyRole(domain.RoleFinance, domain.RoleAdmin)).
			Get("/v1/documents/{id}", docHandler.DownloadDocument)

		// AML and compliance (finance)
		r.Route("/v1/aml", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleFinance))
			r.Put("/rules", amlHandler.ConfigureRule)
			r.Get("/rules", amlHandler.ListRules)
			r.Get("/alerts", amlHandler.ListAlerts)
			r.Post("/alerts/{id}/review", amlHandler.ReviewAlert)
		})
		r.Route("/v1/compliance", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleFinance))
			r.Post("/reports", complianceHandler.GenerateReport)
			r.Get("/reports", complianceHandler.ListReports)
		})
	})

	return r
}
