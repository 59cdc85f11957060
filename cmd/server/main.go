package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mugisha-web/igihozo-server/internal/api"
	"github.com/mugisha-web/igihozo-server/internal/assistant"
	"github.com/mugisha-web/igihozo-server/internal/chat"
	"github.com/mugisha-web/igihozo-server/internal/config"
	"github.com/mugisha-web/igihozo-server/internal/handlers"
	"github.com/mugisha-web/igihozo-server/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
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

	// User directory: PostgreSQL in production, SQLite in development
	var users store.UserStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresUserStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		users = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteUserStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		users = sqliteStore
		logger.Info().Msg("using SQLite user store")
	}
	defer users.Close()

	// Message log: Redis in production, in-memory in development
	var log chat.Log
	var redisLog *store.RedisLog
	if cfg.RedisURL != "" {
		var err error
		redisLog, err = store.NewRedisLog(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisLog.Close()
		log = redisLog
		logger.Info().Msg("connected to Redis")
	} else {
		log = store.NewMemoryLog()
		logger.Warn().Msg("REDIS_URL not set, using in-memory message log")
	}

	// Assistant trigger, only when a backend is configured
	var trigger *chat.Trigger
	if cfg.GeminiAPIKey != "" {
		gemini := assistant.NewGemini(assistant.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
		trigger = chat.NewTrigger(log, gemini, chat.TriggerConfig{
			Mention:     cfg.AssistantMention,
			MinLength:   &cfg.AssistantMinLength,
			Probability: &cfg.AssistantProbability,
		}, nil, logger)
		logger.Info().Msg("assistant trigger enabled")
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set, assistant disabled")
	}

	composer := chat.NewComposer(log, trigger, logger)
	directory := chat.NewDirectory(users)

	// Create router
	h := handlers.NewHandler(users, log, redisLog, composer, directory, cfg.SendRateLimit, cfg.AllowedOrigins, logger)
	router := api.NewRouter(logger, h, users, cfg.AllowedOrigins)

	// Create server
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
			Msg("starting IGIHOZO messaging server")

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
