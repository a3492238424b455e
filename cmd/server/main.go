package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/api"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/collab"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/config"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	zerolog.SetGlobalLevel(cfg.LogLevel)
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize Redis store
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	} else {
		logger.Warn().Msg("REDIS_URL not set, rate limiting disabled")
	}

	// Document rooms
	hub := collab.NewHub(logger, collab.Options{
		IdleTTL:      cfg.RoomIdleTTL,
		HistoryLimit: cfg.HistoryLimit,
	})
	defer hub.Close()

	// Create router
	router := api.NewRouter(logger, cfg, hub, redisStore)

	// Create server. Websocket connections are hijacked and manage their
	// own deadlines.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Strs("allowed_origins", cfg.AllowedOrigins).
			Dur("room_idle_ttl", cfg.RoomIdleTTL).
			Msg("starting document sync server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
