package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopify-insights-core/internal/application"
	"shopify-insights-core/internal/config"
	apiinfra "shopify-insights-core/internal/infrastructure/api"
	"shopify-insights-core/internal/infrastructure/locker"
	"shopify-insights-core/internal/infrastructure/metrics"
	"shopify-insights-core/internal/infrastructure/repository"
	shopifyinfra "shopify-insights-core/internal/infrastructure/shopify"
	"shopify-insights-core/internal/ports"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB and enforce the uniqueness constraints up front.
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.MongoDatabase)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create indexes")
	}

	tenantRepo := repository.NewMongoTenantRepository(db)
	customerRepo := repository.NewMongoCustomerRepository(db)
	productRepo := repository.NewMongoProductRepository(db)
	orderRepo := repository.NewMongoOrderRepository(db)

	// Single-flight guard for backfills: Redis when configured, in-process
	// otherwise.
	var syncLocker ports.SyncLocker
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		syncLocker = locker.NewRedisLocker(redisClient, logger)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis sync locks")
	} else {
		syncLocker = locker.NewMemoryLocker()
	}

	registry := prometheus.NewRegistry()
	instruments := metrics.New(registry)

	shopifyClient := shopifyinfra.NewClient(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, logger)
	verifier := shopifyinfra.NewWebhookVerifier(cfg.ShopifyAPISecret)

	authService := application.NewAuthService(tenantRepo, shopifyClient, cfg.ShopifyAPIKey, cfg.ShopifyScopes, cfg.AppURL, logger)
	ingestService := application.NewIngestService(tenantRepo, customerRepo, productRepo, orderRepo, instruments, logger)
	syncService := application.NewSyncService(shopifyClient, customerRepo, productRepo, orderRepo, syncLocker, instruments, logger)
	registrar := application.NewWebhookRegistrar(shopifyClient, cfg.AppURL, logger)
	insightsService := application.NewInsightsService(customerRepo, orderRepo, shopifyClient, logger)

	handlers := apiinfra.NewHandlers(apiinfra.Config{
		Auth:       authService,
		Ingest:     ingestService,
		Sync:       syncService,
		Registrar:  registrar,
		Insights:   insightsService,
		Tenants:    tenantRepo,
		Client:     shopifyClient,
		Verifier:   verifier,
		Metrics:    instruments,
		Registry:   registry,
		SkipVerify: cfg.SkipWebhookVerify,
		CORSOrigin: cfg.CORSOrigin,
		Logger:     logger,
	})
	if cfg.SkipWebhookVerify {
		logger.Warn().Msg("Webhook HMAC verification is disabled; do not run this in production")
	}

	if cfg.AutoRegisterWebhooksOnBoot {
		go ensureWebhooks(ctx, tenantRepo, registrar, logger)
	}

	if cfg.AutoSyncEnabled {
		scheduler := application.NewScheduler(tenantRepo, syncService, cfg.AutoSyncInterval, logger)
		go scheduler.Run(ctx)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handlers.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("Starting API server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// ensureWebhooks reconciles subscriptions for every known tenant at boot.
func ensureWebhooks(ctx context.Context, tenants ports.TenantRepository, registrar *application.WebhookRegistrar, logger zerolog.Logger) {
	all, err := tenants.List(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to auto-register webhooks on boot")
		return
	}
	for _, tenant := range all {
		if err := registrar.Register(ctx, tenant); err != nil {
			logger.Warn().Err(err).Str("shop", tenant.ShopDomain).Msg("Webhook ensure failed")
			continue
		}
		logger.Info().Str("shop", tenant.ShopDomain).Msg("Webhooks ensured")
	}
}
