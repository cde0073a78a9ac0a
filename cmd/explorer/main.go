package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pageza/recipelens/backend/config"
	"github.com/pageza/recipelens/backend/internal/database"
	"github.com/pageza/recipelens/backend/internal/exclusion"
	"github.com/pageza/recipelens/backend/internal/httpclient"
	"github.com/pageza/recipelens/backend/internal/logging"
	"github.com/pageza/recipelens/backend/internal/middleware"
	"github.com/pageza/recipelens/backend/internal/recipeapi"
	"github.com/pageza/recipelens/backend/internal/router"
	"github.com/pageza/recipelens/backend/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("explorer stopped with error", zap.Error(err))
	}
	logger.Info("explorer stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := recipeapi.New(httpclient.New(cfg.RecipeAPIURL,
		httpclient.WithTimeout(cfg.HTTPTimeout),
		httpclient.WithMaxRetries(cfg.HTTPMaxRetries),
		httpclient.WithLogger(logger.Named("catalog-client")),
	))

	// Sessions live in Redis so any explorer replica can serve them. Outside
	// production a single process may keep them in memory instead.
	var (
		store   exclusion.Store
		limiter *middleware.RateLimiter
		checks  = map[string]router.HealthCheck{}
	)
	redisClient, err := database.NewRedisClient(cfg, logger)
	switch {
	case err == nil:
		defer redisClient.Close()
		store = exclusion.NewRedisStore(redisClient,
			exclusion.WithLockTTL(exclusion.LockTTLFor(cfg.HTTPTimeout, cfg.HTTPMaxRetries, httpclient.DefaultBackoffCap)),
			exclusion.WithStoreLogger(logger.Named("sessions")),
		)
		limiter = middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			Window:    cfg.RateLimitWindow,
			Limit:     cfg.RateLimitRequests,
			KeyPrefix: "ratelimit:explorer",
		}, logger)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	case cfg.Environment.IsProduction():
		return err
	default:
		logger.Warn("keeping exclusion sessions in memory", zap.Error(err))
		store = exclusion.NewMemoryStore()
	}

	sessions := exclusion.NewManager(store, catalog, logger)
	handler := router.NewExplorerRouter(router.Options{
		Service:        "explorer",
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:    limiter,
		Checks:         checks,
	}, catalog, sessions)

	srv := server.New(net.JoinHostPort(cfg.ServerHost, cfg.ServerPort), handler, logger)
	return srv.Start(ctx)
}
