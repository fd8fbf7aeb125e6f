package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"modelchat-backend/internal/catalog"
	"modelchat-backend/internal/chat"
	"modelchat-backend/internal/config"
	"modelchat-backend/internal/database"
	"modelchat-backend/internal/handlers"
	"modelchat-backend/internal/logger"
	"modelchat-backend/internal/providers"
	"modelchat-backend/internal/router"
	"modelchat-backend/internal/services"
	"modelchat-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log.Info().Msg("🚀 Starting ModelChat Backend...")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("✗ Invalid configuration")
	}
	log.Info().Str("env", cfg.Env).Msg("✓ Environment variables loaded")

	ctx := context.Background()

	// ──── Step 2: Load Model Catalog ────
	cat, err := catalog.NewCatalog()
	if err != nil {
		log.Fatal().Err(err).Msg("✗ Model catalog failed to load")
	}
	log.Info().Int("models", len(cat.List())).Msg("✓ Model catalog loaded")

	// ──── Step 3: Initialize Provider Clients ────
	registry, err := providers.NewRegistryFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("✗ Provider initialization failed")
	}
	defer registry.Close()
	log.Info().Strs("providers", registry.Names()).Msg("✓ Providers initialized")

	if _, err := cat.Lookup(cfg.DefaultModel); err != nil {
		log.Warn().Str("model", cfg.DefaultModel).Msg("DEFAULT_MODEL is not in the catalog, clients must pick a model")
	}

	// ──── Step 4: Initialize Redis (optional) ────
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("✗ Redis connection failed")
		}
		defer redisClient.Close()
		log.Info().Msg("✓ Redis connected, notifications use pub/sub")
	} else {
		log.Info().Msg("✓ Redis not configured, notifications stay in process")
	}

	// ──── Step 5: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClient)
	defer wsHub.Close()
	log.Info().Msg("✓ WebSocket hub started")

	// ──── Initialize Services ────
	generationService := services.NewGenerationService(cat, registry, cfg.ProviderTimeout)
	sessionStore := chat.NewStore(generationService, wsHub)

	// ──── Initialize Handlers ────
	generateHandler := handlers.NewGenerateHandler(generationService, registry, cfg.DefaultModel)
	sessionHandler := handlers.NewSessionHandler(sessionStore, wsHub, cfg.DefaultModel)

	// ──── Step 6: Start HTTP Server ────
	r := router.New(
		generateHandler,
		sessionHandler,
		cfg.AllowedOrigins(),
		cfg.MaxRequestBytes,
	)

	// Sends block until the provider answers.
	writeTimeout := time.Duration(0)
	if cfg.ProviderTimeout > 0 {
		writeTimeout = cfg.ProviderTimeout + 15*time.Second
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Info().Msgf("✓ ModelChat Backend ready on http://localhost:%s", cfg.Port)
	log.Info().Msgf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Info().Msgf("  WS:  ws://localhost:%s/api/v1/sessions/{id}/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}
}
