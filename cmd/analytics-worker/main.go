package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/mvalverde/agrolink-backend/internal/analytics/router"
	"github.com/mvalverde/agrolink-backend/internal/analytics/worker"
	"github.com/mvalverde/agrolink-backend/internal/analytics/writer"
	"github.com/mvalverde/agrolink-backend/pkg/bigquery"
	"github.com/mvalverde/agrolink-backend/pkg/config"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/idempotency"
	"github.com/mvalverde/agrolink-backend/pkg/pubsub"
	"github.com/mvalverde/agrolink-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "analytics-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "analytics-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "analytics worker failed", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	boot := context.Background()

	redisClient, err := redis.New(boot, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(boot, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(boot, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(boot, "failed to close pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(boot, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("bootstrap bigquery: %w", err)
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(boot, "failed to close bigquery client", err)
		}
	}()

	subscription := pubsubClient.OrdersSubscription()
	if subscription == nil {
		return errors.New("orders subscription not configured")
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Outbox.IdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency manager: %w", err)
	}

	analyticsWriter, err := writer.New(bqClient, writer.Config{
		MarketplaceTable: cfg.BigQuery.MarketplaceEventsTable,
	})
	if err != nil {
		return fmt.Errorf("analytics bigquery writer: %w", err)
	}

	routingHandler, err := router.NewRouter(analyticsWriter, logg, nil)
	if err != nil {
		return fmt.Errorf("analytics router: %w", err)
	}

	service, err := worker.NewService(subscription, routingHandler, manager, logg)
	if err != nil {
		return fmt.Errorf("analytics worker service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "analytics-worker",
	})
	logg.Info(ctx, "analytics worker ready")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
