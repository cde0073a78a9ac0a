package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/recipelens/backend/config"
	"github.com/pageza/recipelens/backend/internal/database"
	"github.com/pageza/recipelens/backend/internal/logging"
	"github.com/pageza/recipelens/backend/internal/middleware"
	"github.com/pageza/recipelens/backend/internal/router"
	"github.com/pageza/recipelens/backend/internal/server"
	"github.com/pageza/recipelens/backend/internal/service"
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
		logger.Fatal("catalog stopped with error", zap.Error(err))
	}
	logger.Info("catalog stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}

	checks := map[string]router.HealthCheck{
		"database": func(ctx context.Context) error { return database.HealthCheck(ctx, db) },
	}

	// Redis backs the detail cache and the rate limiter. Outside production
	// the catalog runs without both when Redis is unreachable.
	var (
		cache   service.DetailCache
		limiter *middleware.RateLimiter
	)
	redisClient, err := database.NewRedisClient(cfg, logger)
	switch {
	case err == nil:
		defer redisClient.Close()
		cache = service.NewRecipeCache(redisClient, cfg.CacheTTL)
		limiter = middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			Window:    cfg.RateLimitWindow,
			Limit:     cfg.RateLimitRequests,
			KeyPrefix: "ratelimit:catalog",
		}, logger)
		checks["redis"] = func(ctx context.Context) error { return redisPing(ctx, redisClient) }
	case cfg.Environment.IsProduction():
		return err
	default:
		logger.Warn("running without Redis cache and rate limiting", zap.Error(err))
	}

	var store service.ObjectStore
	if cfg.S3BucketName != "" {
		s3, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			return err
		}
		store = s3
	}
	images := service.NewImageService(store, logger)

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; admin routes will reject every token")
	}

	recipes := service.NewRecipeService(db, cache, images, logger)
	handler := router.NewCatalogRouter(router.Options{
		Service:        "catalog",
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:    limiter,
		Checks:         checks,
	}, recipes, service.NewAuthService(cfg.JWTSecret))

	srv := server.New(net.JoinHostPort(cfg.ServerHost, cfg.CatalogPort), handler, logger)
	return srv.Start(ctx)
}

func redisPing(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
