package api

import (
	"log/slog"
	"net/http"
	"time"

	_ "lender-ledger/docs"
	"lender-ledger/internal/api/handler"
	mw "lender-ledger/internal/api/middleware"
	"lender-ledger/internal/config"
	"lender-ledger/internal/domain/customer"
	"lender-ledger/internal/domain/loan"
	"lender-ledger/internal/domain/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Services bundles what the HTTP layer calls into. Receipts is optional.
type Services struct {
	Customers customer.Service
	Loans     loan.Service
	Users     user.Service
	Receipts  handler.ReceiptLocator
}

// SetupRouter wires every route. redisClient may be nil, in which case rate
// limiting stays per-instance.
func SetupRouter(svc Services, cfg *config.Config, redisClient redis.Cmdable, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, redisClient, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupAuthRoutes(router, svc.Users, cfg, logger)
	setupCustomerRoutes(router, svc.Customers, cfg, logger)
	setupLoanRoutes(router, svc.Loans, svc.Receipts, cfg, logger)
	setupWebhookRoutes(router, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, redisClient redis.Cmdable, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, redisClient, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router *chi.Mux, users user.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewAuthHandler(users, cfg.Server.Auth, logger)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})
}

func setupCustomerRoutes(router *chi.Mux, svc customer.Service, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewCustomerHandler(svc, logger)

	router.Route("/customers", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.CreateCustomer)
		r.Get("/", h.ListCustomers)
		r.Route("/{customerID}", func(r chi.Router) {
			r.Get("/", h.GetCustomer)
			r.Put("/", h.UpdateCustomer)
			r.Delete("/", h.DeleteCustomer)
		})
	})
}

func setupLoanRoutes(router *chi.Mux, svc loan.Service, receipts handler.ReceiptLocator, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewLoanHandler(svc, receipts, logger)

	router.Route("/loans", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.CreateLoan)
		r.Get("/", h.ListLoans)
		r.Get("/summary", h.Summary)
		r.Get("/overdue", h.ListOverdue)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", h.GetLoan)
			r.Post("/repay", h.Repay)
			r.Patch("/mark-paid", h.MarkPaid)
		})
	})
}

func setupWebhookRoutes(router *chi.Mux, logger *slog.Logger) {
	h := handler.NewWebhookHandler(logger)

	router.Post("/webhook/repayment", h.Repayment)
}
