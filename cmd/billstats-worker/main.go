package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/app"
	"github.com/boddenberg/billstats-bfa/internal/config"
	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/infra/amqp"
	"github.com/boddenberg/billstats-bfa/internal/infra/cache"
	"github.com/boddenberg/billstats-bfa/internal/infra/observability"
	"github.com/boddenberg/billstats-bfa/internal/infra/resilience"
	"github.com/boddenberg/billstats-bfa/internal/infra/sheets"
	"github.com/boddenberg/billstats-bfa/internal/service"
	"github.com/boddenberg/billstats-bfa/internal/worker"

	"go.uber.org/zap"
)

func main() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := errors.Join(cfg.Validate(), cfg.ValidateWorker()); err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}
	loc, _ := cfg.Location()

	logger.Info("worker configuration loaded",
		zap.String("backend", cfg.Backend),
		zap.String("exchange", cfg.AMQPExchange),
		zap.String("queue", cfg.AMQPQueue),
		zap.String("sheet", cfg.SheetName),
	)

	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "billstats-worker")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	stores, err := app.OpenStores(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer stores.Close()

	statsCache := cache.New[*domain.Statistics](cfg.CacheTTL)
	defer statsCache.Close()
	statsSvc := service.NewStatsService(stores.Bills, statsCache, metrics, logger, time.Now, loc)

	// --- Export sink ---
	exporter, err := sheets.NewGoogleFromServiceAccount(ctx, cfg.SpreadsheetID, cfg.SheetName, cfg.ServiceAccountFile, logger)
	if err != nil {
		logger.Fatal("failed to create sheets client", zap.Error(err))
	}

	// --- Broker ---
	broker, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		resilience.NewCircuitBreaker("amqp"), logger)
	if err != nil {
		logger.Fatal("failed to connect to AMQP", zap.Error(err))
	}
	defer broker.Close()

	sync := worker.NewStatsSync(statsSvc, exporter, metrics, logger)

	logger.Info("worker started")
	if err := broker.ConsumeBillEvents(ctx, sync.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", zap.Error(err))
		return
	}
	logger.Info("worker stopped")
}
