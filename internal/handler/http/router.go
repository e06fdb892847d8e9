package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/catalogsearch/internal/service"
	"github.com/utafrali/catalogsearch/pkg/health"
	"github.com/utafrali/catalogsearch/pkg/middleware"
)

// DefaultRequestTimeout bounds every request handled by the router.
const DefaultRequestTimeout = 30 * time.Second

// AdminRole is the role granted to the admin API key.
const AdminRole = "admin"

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	// AdminAPIKey guards the index maintenance endpoints. When empty every
	// admin request is rejected.
	AdminAPIKey    string
	CORS           middleware.CORSConfig
	CacheMaxAge    time.Duration
	RequestTimeout time.Duration
	// Registerer receives the HTTP metrics and Gatherer is served on
	// /metrics. Nil disables either.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	searchService *service.SearchService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogging(logger))
	if cfg.Registerer != nil {
		r.Use(middleware.NewHTTPMetrics(cfg.Registerer, "search").Handler)
	}
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	searchHandler := NewSearchHandler(searchService, logger)
	adminHandler := NewAdminHandler(searchService, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.CacheMaxAge))
			r.Get("/", searchHandler.Search)
			r.Get("/suggest", searchHandler.Suggest)
			r.Get("/stats", searchHandler.Stats)
			r.Post("/query", searchHandler.Query)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(middleware.StaticToken(cfg.AdminAPIKey, "admin-api-key", AdminRole)))
			r.Use(middleware.RequireRole(AdminRole))
			r.Use(chimw.AllowContentType("application/json"))
			r.Post("/index", adminHandler.IndexProduct)
			r.Post("/bulk", adminHandler.BulkIndex)
			r.Post("/reindex", adminHandler.Reindex)
			r.Put("/synonyms/{word}", adminHandler.PutSynonyms)
			r.Post("/suggestions", adminHandler.AddSuggestion)
			r.Delete("/{id}", adminHandler.DeleteProduct)
		})
	})

	return r
}
