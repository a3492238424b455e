package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/api/middleware"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/collab"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/config"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/handlers"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, cfg *config.Config, hub *collab.Hub, redisStore *store.RedisStore) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	r.Use(middleware.SecurityHeaders)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting, applied per route below
	limiter := middleware.NewRateLimiter(redisStore.Client(), logger, middleware.RateLimiterConfig{
		Whitelist:        cfg.RateLimitWhitelist,
		AutoBlockEnabled: cfg.AutoBlockEnabled,
		JoinsPerMinute:   cfg.JoinsPerMinute,
	})

	// CORS - only the editor's origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(logger, hub, redisStore, handlers.WSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		SendBuffer:     cfg.SendBuffer,
		Joins:          limiter,
	})

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api", http.StatusFound)
	})
	r.Get("/api", h.Root)
	r.Get("/health", h.Health)
	r.With(limiter.Limit("documents", 120, time.Minute)).Get("/api/documents", h.ListDocuments)
	r.With(limiter.Limit("documents", 120, time.Minute)).Get("/api/documents/{id}", h.GetDocument)
	r.With(limiter.Limit("stats", 60, time.Minute)).Get("/api/stats", h.Stats)

	// Realtime editing channel; joins on an open socket are limited separately
	r.With(limiter.Limit("ws", 30, time.Minute)).Get("/ws", h.ServeWS)

	return r
}
