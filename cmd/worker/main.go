package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vendorhub/marketplace-backend/internal/inventoryrpc"
	"github.com/vendorhub/marketplace-backend/internal/ledger"
	"github.com/vendorhub/marketplace-backend/pkg/config"
	"github.com/vendorhub/marketplace-backend/pkg/db"
	"github.com/vendorhub/marketplace-backend/pkg/logger"
	"github.com/vendorhub/marketplace-backend/pkg/metrics"
	"github.com/vendorhub/marketplace-backend/pkg/migrate"
	"github.com/vendorhub/marketplace-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "inventory-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "inventory-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	stockMetrics := metrics.NewStockMetrics(prometheus.NewRegistry())

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient, stockMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock ledger service", err)
		os.Exit(1)
	}

	handler, err := inventoryrpc.NewHandler(ledgerService)
	if err != nil {
		logg.Error(context.Background(), "failed to create command handler", err)
		os.Exit(1)
	}

	sink, err := inventoryrpc.NewPublisherSink(pubsubClient.InventoryResultPublisher())
	if err != nil {
		logg.Error(context.Background(), "failed to create result publisher", err)
		os.Exit(1)
	}

	consumer, err := inventoryrpc.NewConsumer(handler, pubsubClient.InventoryCommandSubscription(), sink, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"subscription": cfg.PubSub.InventoryCommandSubscription,
	})
	logg.Info(runCtx, "starting inventory worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "inventory worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "inventory worker shut down")
}
