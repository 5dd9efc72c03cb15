package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "lender-ledger/docs"
	"lender-ledger/internal/api"
	"lender-ledger/internal/batch"
	"lender-ledger/internal/config"
	"lender-ledger/internal/domain/customer"
	"lender-ledger/internal/domain/loan"
	"lender-ledger/internal/domain/user"
	"lender-ledger/internal/event"
	"lender-ledger/internal/infrastructure/database/memory"
	"lender-ledger/internal/infrastructure/database/postgres"
	"lender-ledger/internal/infrastructure/logging"
	"lender-ledger/internal/notification"
	"lender-ledger/internal/receipt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// repositories is the storage a driver hands to the services, plus the hook
// that releases it.
type repositories struct {
	customers customer.Repository
	loans     loan.Repository
	users     user.Repository
	close     func()
}

// @title Lender Ledger API
// @version 1.0
// @description Multi-tenant ledger for small lenders: customers, loans, repayments and overdue tracking.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	repos := initializeStore(cfg, logger)
	defer repos.close()

	redisClient := initializeRedisClient(cfg, logger)
	defer closeRedisClient(redisClient, logger)

	rabbitMQConn := initializeRabbitMQ(cfg, logger)
	defer closeRabbitMQ(rabbitMQConn, logger)

	dispatcher := initializeDispatcher(cfg, redisClient, logger)
	issuer := initializeReceipts(cfg, logger)
	notifier := initializeNotifier(cfg, dispatcher, issuer, rabbitMQConn, logger)
	services := initializeServices(repos, notifier, issuer, logger)

	sweepJob := batch.NewOverdueSweepJob(services.Loans, cfg.Batch.OverdueSweepTimeout, logger)
	cronScheduler := startBatchJobs(cfg, logger, sweepJob)

	var limiterStore redis.Cmdable
	if redisClient != nil {
		limiterStore = redisClient
	}
	router := api.SetupRouter(services, cfg, limiterStore, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, dispatcher, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	if cfg.Server.Auth.Enabled && cfg.Server.Auth.JWTSecret == "" {
		logger.Error("JWT authentication is enabled but server.auth.jwtSecret is empty")
		os.Exit(1)
	}

	return cfg, logger
}

func initializeStore(cfg *config.Config, logger *slog.Logger) *repositories {
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart.")
		store := memory.NewStore()
		return &repositories{
			customers: store.Customers(),
			loans:     store.Loans(),
			users:     store.Users(),
			close:     func() {},
		}
	case "", "postgres":
		logger.Info("Initializing database connection pool...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		dbPool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("Failed to initialize database connection pool", "error", err)
			os.Exit(1)
		}
		if err := postgres.Migrate(cfg.Database, logger); err != nil {
			logger.Error("Failed to apply database migrations", "error", err)
			dbPool.Close()
			os.Exit(1)
		}
		return &repositories{
			customers: postgres.NewCustomerRepository(dbPool, logger),
			loans:     postgres.NewLoanRepository(dbPool, logger),
			users:     postgres.NewUserRepository(dbPool, logger),
			close: func() {
				logger.Info("Closing database connection pool...")
				dbPool.Close()
			},
		}
	default:
		logger.Error("Unknown database driver", "driver", cfg.Database.Driver)
		os.Exit(1)
		return nil
	}
}

func initializeRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		logger.Info("Redis disabled; delivery guard and rate limiter stay in-process.")
		return nil
	}
	logger.Info("Initializing Redis client...")
	if cfg.Redis.Addr == "" {
		logger.Error("Redis address (addr) is not configured.")
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if status := rdb.Ping(ctx); status.Err() != nil {
		logger.Error("Failed to connect to Redis", "error", status.Err(), "addr", cfg.Redis.Addr)
		_ = rdb.Close()
		os.Exit(1)
	}

	logger.Info("Redis client connected successfully.", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return rdb
}

func closeRedisClient(redisClient *redis.Client, logger *slog.Logger) {
	if redisClient == nil {
		return
	}
	logger.Info("Closing Redis client connection...")
	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close Redis client connection gracefully", "error", err)
	}
}

// initializeRabbitMQ returns nil when events are disabled or the broker is
// unreachable; the ledger keeps serving without publishing events.
func initializeRabbitMQ(cfg *config.Config, logger *slog.Logger) *amqp.Connection {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("RabbitMQ disabled; ledger events will not be published.")
		return nil
	}
	uri, err := rabbitMQURI(cfg.RabbitMQ)
	if err != nil {
		logger.Error("Invalid RabbitMQ configuration", "error", err)
		return nil
	}
	conn, err := connectRabbitMQ(uri, 5, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ; continuing without events", "error", err)
		return nil
	}
	return conn
}

func rabbitMQURI(cfg config.RabbitMQConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("RabbitMQ host is not configured")
	}
	if (cfg.Username == "") != (cfg.Password == "") {
		return "", fmt.Errorf("RabbitMQ username and password must be provided together")
	}
	port := cfg.Port
	if port == 0 {
		port = 5672
	}
	uri := amqp.URI{
		Scheme:   "amqp",
		Host:     cfg.Host,
		Port:     port,
		Username: cfg.Username,
		Password: cfg.Password,
		Vhost:    "/",
	}
	return uri.String(), nil
}

func connectRabbitMQ(uri string, attempts int, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 1; i <= attempts; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ")

			go func() {
				blockChan := conn.NotifyBlocked(make(chan amqp.Blocking))
				closeChan := conn.NotifyClose(make(chan *amqp.Error))

				select {
				case b := <-blockChan:
					logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
				case e := <-closeChan:
					if e != nil {
						logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
					}
				}
			}()

			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)
		if i < attempts {
			time.Sleep(time.Duration(i*2) * time.Second)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
}

func closeRabbitMQ(conn *amqp.Connection, logger *slog.Logger) {
	if conn == nil || conn.IsClosed() {
		return
	}
	logger.Info("Closing RabbitMQ connection...")
	if err := conn.Close(); err != nil {
		logger.Error("Failed to close RabbitMQ connection", "error", err)
	}
}

func initializeDispatcher(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) *notification.Dispatcher {
	var guard notification.Guard
	if redisClient != nil {
		guard = notification.NewRedisGuard(redisClient, "", cfg.Redis.GuardTTL)
	} else {
		guard = notification.NewMemoryGuard(cfg.Redis.GuardTTL)
	}

	dispatcher := notification.NewDispatcher(notification.DispatcherConfig{
		Workers:   cfg.Notification.Workers,
		QueueSize: cfg.Notification.QueueSize,
		Timeout:   cfg.Notification.Timeout,
	}, guard, logger)
	dispatcher.Start(context.Background())
	return dispatcher
}

// initializeReceipts returns nil when receipt issuing is disabled.
func initializeReceipts(cfg *config.Config, logger *slog.Logger) *receipt.Issuer {
	if !cfg.Receipt.Enabled {
		logger.Info("Receipt issuing disabled.")
		return nil
	}

	var storage receipt.Storage
	switch cfg.Receipt.Driver {
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s3Storage, err := receipt.NewS3Storage(ctx, receipt.S3Config(cfg.Receipt.S3), logger)
		if err != nil {
			logger.Error("Failed to initialize S3 receipt storage", "error", err)
			os.Exit(1)
		}
		storage = s3Storage
	case "", "fs":
		fsStorage, err := receipt.NewFileSystemStorage(cfg.Receipt.BasePath, logger)
		if err != nil {
			logger.Error("Failed to initialize receipt directory", "error", err, "path", cfg.Receipt.BasePath)
			os.Exit(1)
		}
		storage = fsStorage
	default:
		logger.Error("Unknown receipt driver", "driver", cfg.Receipt.Driver)
		os.Exit(1)
	}
	return receipt.NewIssuer(storage, logger)
}

func initializeNotifier(cfg *config.Config, dispatcher *notification.Dispatcher, issuer *receipt.Issuer, rabbitMQConn *amqp.Connection, logger *slog.Logger) *notification.LedgerNotifier {
	channel, err := notification.ParseChannel(cfg.Notification.Channel)
	if err != nil {
		logger.Error("Invalid notification channel", "error", err)
		os.Exit(1)
	}

	var sink notification.Sink
	switch cfg.Notification.Sink {
	case "http":
		if cfg.Notification.GatewayURL == "" {
			logger.Error("notification.gatewayURL is required for the http sink")
			os.Exit(1)
		}
		sink = notification.NewHTTPSink(cfg.Notification.GatewayURL, cfg.Notification.Timeout, logger)
	case "", "log":
		sink = notification.NewLogSink(logger)
	default:
		logger.Error("Unknown notification sink", "sink", cfg.Notification.Sink)
		os.Exit(1)
	}

	var opts []notification.LedgerNotifierOption
	if issuer != nil {
		opts = append(opts, notification.WithReceipts(issuer))
	}
	if cfg.Webhook.URL != "" {
		opts = append(opts, notification.WithWebhook(event.NewWebhookClient(cfg.Webhook.URL, cfg.Webhook.Timeout, logger)))
	}
	if rabbitMQConn != nil {
		publisher, err := event.NewRabbitMQEventPublisher(rabbitMQConn, cfg.RabbitMQ.ExchangeName, logger)
		if err != nil {
			logger.Error("Failed to initialize event publisher; continuing without events", "error", err)
		} else {
			opts = append(opts, notification.WithEvents(publisher))
		}
	}

	return notification.NewLedgerNotifier(dispatcher, sink, channel, logger, opts...)
}

func initializeServices(repos *repositories, notifier loan.Notifier, issuer *receipt.Issuer, logger *slog.Logger) api.Services {
	logger.Info("Initializing application components...")
	customerService := customer.NewCustomerService(repos.customers, logger)
	services := api.Services{
		Customers: customerService,
		Loans:     loan.NewLoanService(repos.loans, customerService, notifier, logger),
		Users:     user.NewUserService(repos.users, logger),
	}
	if issuer != nil {
		services.Receipts = issuer
	}
	return services
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, dispatcher *notification.Dispatcher, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
		}
		triggerReason = "server exited"
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Draining notification queue...")
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Notification queue did not drain before timeout", "error", err)
	} else {
		logger.Info("Notification queue drained.")
	}

	logger.Info("Application shutdown process complete.")
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, sweepJob *batch.OverdueSweepJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	if _, err := sweepJob.Schedule(c, cfg.Batch.OverdueSweepSchedule); err != nil {
		logger.Error("Failed to schedule overdue sweep job", slog.Any("error", err))
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func setupLogger(cfg config.LoggerConfig) *slog.Logger {
	return logging.NewLogger(cfg)
}
