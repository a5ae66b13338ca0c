package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mvalverde/agrolink-backend/api/routes"
	"github.com/mvalverde/agrolink-backend/internal/analytics"
	"github.com/mvalverde/agrolink-backend/internal/auth"
	"github.com/mvalverde/agrolink-backend/internal/chat"
	"github.com/mvalverde/agrolink-backend/internal/chat/fanout"
	"github.com/mvalverde/agrolink-backend/internal/crops"
	"github.com/mvalverde/agrolink-backend/internal/inventory"
	"github.com/mvalverde/agrolink-backend/internal/media"
	"github.com/mvalverde/agrolink-backend/internal/orders"
	"github.com/mvalverde/agrolink-backend/internal/requests"
	"github.com/mvalverde/agrolink-backend/internal/users"
	"github.com/mvalverde/agrolink-backend/pkg/auth/session"
	"github.com/mvalverde/agrolink-backend/pkg/bigquery"
	"github.com/mvalverde/agrolink-backend/pkg/config"
	"github.com/mvalverde/agrolink-backend/pkg/db"
	"github.com/mvalverde/agrolink-backend/pkg/instance"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/metrics"
	"github.com/mvalverde/agrolink-backend/pkg/migrate"
	"github.com/mvalverde/agrolink-backend/pkg/outbox"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/idempotency"
	"github.com/mvalverde/agrolink-backend/pkg/pubsub"
	"github.com/mvalverde/agrolink-backend/pkg/redis"
	"github.com/mvalverde/agrolink-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery client", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	chatMetrics := metrics.NewChatMetrics(prometheus.DefaultRegisterer)
	ledger := inventory.NewEngine(ledgerMetrics)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		Tx:             dbClient,
		Outbox:         outboxService,
		AppConfig:      cfg.App,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	cropsRepo := crops.NewRepository(dbClient.DB())
	cropsService, err := crops.NewService(cropsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create crops service", err)
		os.Exit(1)
	}

	mediaService, err := media.NewService(gcsClient, cfg.GCS.BucketName, cfg.GCS.UploadURLExpiry, cfg.GCS.DownloadURLExpiry)
	if err != nil {
		logg.Error(context.Background(), "failed to create media service", err)
		os.Exit(1)
	}

	requestsService, err := requests.NewService(requests.NewRepository(dbClient.DB()), cropsRepo, ledger, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create requests service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), cropsRepo, ledger, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	chatService, err := chat.NewService(chat.NewRepository(dbClient.DB()), usersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create chat service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(bqClient, cfg.GCP.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.MarketplaceEventsTable)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	broker := fanout.NewBroker(cfg.Chat.StreamBufferSize, chatMetrics)

	idemManager, err := idempotency.NewManager(redisClient, cfg.Outbox.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	chatConsumer, err := chat.NewConsumer(pubsubClient.ChatSubscription(), broker, idemManager, logg, cfg.Chat.ConsumerMaxBackoff)
	if err != nil {
		logg.Error(context.Background(), "failed to create chat consumer", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		if err := chatConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(runCtx, "chat consumer stopped unexpectedly", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			pubsubClient,
			gcsClient,
			sessionManager,
			analyticsService,
			authService,
			registerService,
			cropsService,
			mediaService,
			requestsService,
			ordersService,
			chatService,
			broker,
		),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
