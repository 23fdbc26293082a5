// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/adsdsdsdad/uMBLER01/internal/cache"
	"github.com/adsdsdsdad/uMBLER01/internal/config"
	"github.com/adsdsdsdad/uMBLER01/internal/handler"
	"github.com/adsdsdsdad/uMBLER01/internal/hours"
	"github.com/adsdsdsdad/uMBLER01/internal/journal"
	"github.com/adsdsdsdad/uMBLER01/internal/middleware"
	"github.com/adsdsdsdad/uMBLER01/internal/service"
	"github.com/adsdsdsdad/uMBLER01/internal/store"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
	"github.com/adsdsdsdad/uMBLER01/pkg/tracing"
)

// ScopeMaintenance guards batch operations on the read API.
const ScopeMaintenance = "support:maintenance"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "support-metrics", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Business hours
	schedule, err := hours.Load(cfg.BusinessTimezone, cfg.BusinessHoursFile)
	if err != nil {
		log.Fatal("failed to load business hours", zap.Error(err))
	}

	// Open the store
	st, err := store.Open(store.Options{
		Driver:       cfg.DatabaseDriver,
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DatabaseMaxOpenConns,
		MaxIdleConns: cfg.DatabaseMaxIdleConns,
		Logger:       log.Logger,
	})
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()

	// Journal backend
	pub, err := openJournal(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to connect journal", zap.String("backend", cfg.JournalBackend), zap.Error(err))
	}
	defer pub.Close()

	// Metrics cache
	var metricsCache cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		metricsCache = cache.NewRedis(cache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.MetricsCacheTTL,
		})
	}
	defer metricsCache.Close()

	// Initialize services
	matcher := service.NewMatcher(st, schedule, log)
	dispatcher := service.NewDispatcher(st, matcher, pub, log)
	recomputer := service.NewRecomputer(st, schedule, log)
	conversationSvc := service.NewConversationService(st, log)
	metricsSvc := service.NewMetricsService(st)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(st, pub, metricsCache)
	webhookHandler := handler.NewWebhookHandler(dispatcher, metricsCache, log)
	conversationHandler := handler.NewConversationHandler(conversationSvc, metricsSvc, log)
	messageHandler := handler.NewMessageHandler(conversationSvc, log)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, metricsCache, log)
	maintenanceHandler := handler.NewMaintenanceHandler(recomputer, metricsCache, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Provider webhook
	if cfg.WebhookSecret == "" {
		log.Warn("WEBHOOK_SECRET not set, webhook deliveries are not authenticated")
	}
	r.Route("/api/webhook/umbler", func(r chi.Router) {
		r.Use(middleware.WebhookRateLimit(cfg.WebhookRateLimitRequests, cfg.RateLimitWindow))
		r.Get("/", webhookHandler.Describe)
		r.With(
			middleware.MaxBodySize(middleware.MaxWebhookBody),
			middleware.WebhookSecret(cfg.WebhookSecret),
		).Post("/", webhookHandler.Receive)
	})

	// Read API
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(middleware.Auth(cfg.JWTSecret))
		} else {
			log.Warn("JWT_SECRET not set, read API is unauthenticated")
		}
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Get("/messages", messageHandler.List)
				r.Get("/response-times", conversationHandler.ResponseTimes)
				r.Get("/metrics", conversationHandler.Metrics)
			})
		})

		r.Get("/metrics", metricsHandler.System)
		r.Get("/agents/{name}/metrics", metricsHandler.Agent)
		r.Get("/site-customers", metricsHandler.SiteCustomers)
		r.Get("/site-customers/stats", metricsHandler.SiteCustomerStats)
		r.Get("/debug/recent-messages", messageHandler.Recent)

		r.Group(func(r chi.Router) {
			if cfg.JWTSecret != "" {
				r.Use(middleware.RequireScope(ScopeMaintenance))
			}
			r.Post("/maintenance/recompute", maintenanceHandler.Recompute)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func openJournal(ctx context.Context, cfg *config.Config, log *logger.Logger) (journal.Publisher, error) {
	switch cfg.JournalBackend {
	case journal.BackendNATS:
		p, err := journal.ConnectNATS(ctx, journal.NATSConfig{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	case journal.BackendAMQP:
		p, err := journal.ConnectAMQP(ctx, journal.AMQPConfig{
			URL:           cfg.AMQPURL,
			Exchange:      cfg.AMQPExchange,
			RetryAttempts: 5,
			Delay:         time.Second,
		}, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return journal.Noop{}, nil
	}
}
