// Package http wires the REST API: the gin router, the middleware chain, and
// the server lifecycle.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexforge/TermForge-Intelligence/internal/interfaces/http/handlers"
	"github.com/lexforge/TermForge-Intelligence/internal/interfaces/http/middleware"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/prometheus"
)

// RouterConfig aggregates everything the router needs. Handlers left nil are
// simply not registered, which keeps partial deployments (API without the
// synchronous extractor, worker-only health endpoint) working.
type RouterConfig struct {
	// DocumentHandler serves the document ingestion endpoints.
	DocumentHandler *handlers.DocumentHandler

	// GlossaryHandler serves the glossary read endpoints.
	GlossaryHandler *handlers.GlossaryHandler

	// HealthHandler serves the liveness and readiness probes.
	HealthHandler *handlers.HealthHandler

	// Logger receives the request logs. Required.
	Logger logging.Logger

	// Metrics records per-request HTTP metrics. Optional.
	Metrics *prometheus.AppMetrics

	// MetricsCollector exposes the /metrics endpoint. Optional.
	MetricsCollector prometheus.MetricsCollector

	// CORS configures cross-origin access. Zero value disables CORS.
	CORS middleware.CORSConfig

	// RateLimit configures request rate limiting. A zero RequestsPerSecond
	// disables it.
	RateLimit middleware.RateLimitConfig

	// Mode selects the gin mode: "debug", "release", or "test".
	Mode string
}

// NewRouter builds the gin engine with the full middleware chain and all
// registered routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	logCfg := middleware.DefaultLoggingConfig()
	engine.Use(middleware.RequestLogging(cfg.Logger, cfg.Metrics, logCfg))

	if len(cfg.CORS.AllowedOrigins) > 0 {
		engine.Use(middleware.CORS(cfg.CORS))
	}

	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter := middleware.NewTokenBucketLimiter(
			cfg.RateLimit.RequestsPerSecond,
			cfg.RateLimit.BurstSize,
			cfg.RateLimit.CleanupInterval,
		)
		engine.Use(middleware.RateLimit(limiter, cfg.RateLimit))
	}

	registerPublicRoutes(engine, cfg)

	api := engine.Group("/api/v1")
	registerDocumentRoutes(api, cfg.DocumentHandler)
	registerGlossaryRoutes(api, cfg.GlossaryHandler)

	return engine
}

// registerPublicRoutes registers the probe and metrics endpoints outside the
// versioned API group.
func registerPublicRoutes(engine *gin.Engine, cfg RouterConfig) {
	if cfg.HealthHandler != nil {
		engine.GET("/healthz", cfg.HealthHandler.Liveness)
		engine.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		engine.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}
}

func registerDocumentRoutes(api *gin.RouterGroup, h *handlers.DocumentHandler) {
	if h == nil {
		return
	}

	docs := api.Group("/documents")
	docs.POST("", h.Upload)
	docs.GET("", h.List)
	docs.GET("/:id", h.Get)
	docs.DELETE("/:id", h.Delete)
	docs.GET("/:id/download", h.Download)
	docs.POST("/:id/requeue", h.Requeue)
	docs.POST("/:id/extract", h.Extract)
}

func registerGlossaryRoutes(api *gin.RouterGroup, h *handlers.GlossaryHandler) {
	if h == nil {
		return
	}

	terms := api.Group("/terms")
	terms.GET("", h.List)
	terms.GET("/:term", h.Get)
	terms.GET("/:term/graph", h.Graph)

	api.GET("/search", h.Search)
	api.GET("/suggest", h.Suggest)
}

// compile-time check that the engine satisfies http.Handler for the server
// wrapper.
var _ http.Handler = (*gin.Engine)(nil)
