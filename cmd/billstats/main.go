package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/app"
	"github.com/boddenberg/billstats-bfa/internal/config"
	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/handler"
	"github.com/boddenberg/billstats-bfa/internal/infra/amqp"
	"github.com/boddenberg/billstats-bfa/internal/infra/cache"
	"github.com/boddenberg/billstats-bfa/internal/infra/observability"
	"github.com/boddenberg/billstats-bfa/internal/infra/resilience"
	"github.com/boddenberg/billstats-bfa/internal/port"
	"github.com/boddenberg/billstats-bfa/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := errors.Join(cfg.Validate(), cfg.ValidateAPI()); err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}
	loc, _ := cfg.Location()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("backend", cfg.Backend),
		zap.String("timezone", loc.String()),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("events_enabled", cfg.AMQPURL != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "billstats-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	statsCache := cache.New[*domain.Statistics](cfg.CacheTTL)
	defer statsCache.Close()

	// --- Storage ---
	stores, err := app.OpenStores(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer stores.Close()

	// --- Events ---
	var publisher port.EventPublisher
	if cfg.AMQPURL != "" {
		broker, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			resilience.NewCircuitBreaker("amqp"), logger)
		if err != nil {
			logger.Fatal("failed to connect to AMQP", zap.Error(err))
		}
		defer broker.Close()
		publisher = broker
	} else {
		logger.Warn("AMQP_URL not set, bill events will not be published")
	}

	// --- Services ---
	billSvc := service.NewBillService(stores.Bills, statsCache, publisher, metrics, logger, time.Now, loc)
	statsSvc := service.NewStatsService(stores.Bills, statsCache, metrics, logger, time.Now, loc)
	profileSvc := service.NewProfileService(stores.Profiles, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Bills:    billSvc,
		Stats:    statsSvc,
		Profiles: profileSvc,
		Tokens:   service.NewTokenService(cfg.SupabaseJWTSecret),
		Backend:  stores.Backend,
		Store:    stores,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
