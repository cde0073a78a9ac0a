package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pageza/recipelens/backend/internal/api"
	"github.com/pageza/recipelens/backend/internal/exclusion"
	"github.com/pageza/recipelens/backend/internal/middleware"
	"github.com/pageza/recipelens/backend/internal/recipeapi"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Options configures the middleware shared by the catalog and the explorer
type Options struct {
	Service        string
	Logger         *zap.Logger
	AllowedOrigins []string
	// RateLimiter is optional
	RateLimiter *middleware.RateLimiter
	// Registry defaults to the process-wide Prometheus registry
	Registry *prometheus.Registry
	// Checks are run by GET /health, keyed by dependency name
	Checks map[string]HealthCheck
}

// NewCatalogRouter configures the catalog routes under /api
func NewCatalogRouter(opts Options, recipes api.RecipeStore, tokens middleware.TokenValidator) *gin.Engine {
	router := newEngine(opts)
	api.NewRecipeHandler(recipes, middleware.AuthMiddleware(tokens)).RegisterRoutes(limited(router, opts, "/api"))
	return router
}

// NewExplorerRouter configures the explorer routes under /api/v1
func NewExplorerRouter(opts Options, catalog recipeapi.API, sessions *exclusion.Manager) *gin.Engine {
	router := newEngine(opts)
	api.NewExplorerHandler(catalog, sessions).RegisterRoutes(limited(router, opts, "/api/v1"))
	return router
}

func newEngine(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if opts.Registry != nil {
		registerer, gatherer = opts.Registry, opts.Registry
	}

	router := gin.New()
	router.Use(
		middleware.ErrorHandler(logger),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.NewHTTPMetrics(registerer, opts.Service).Middleware(),
	)

	router.GET("/health", healthHandler(opts.Service, opts.Checks))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return router
}

func limited(router *gin.Engine, opts Options, prefix string) *gin.RouterGroup {
	group := router.Group(prefix)
	if opts.RateLimiter != nil {
		group.Use(opts.RateLimiter.RateLimitMiddleware())
	}
	return group
}

func healthHandler(service string, checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}

		body := gin.H{"status": "ok", "service": service, "dependencies": deps}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	}
}
