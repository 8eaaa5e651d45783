package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aether-backend/internal/config"
	"aether-backend/internal/database"
	"aether-backend/internal/flows"
	"aether-backend/internal/handlers"
	"aether-backend/internal/middleware"
	"aether-backend/internal/prompt"
	"aether-backend/internal/repository"
	"aether-backend/internal/router"
	"aether-backend/internal/services"
	"aether-backend/internal/websocket"
	"aether-backend/migrations"
)

func main() {
	log.Println("🚀 Starting Aether Backend...")
	ctx := context.Background()

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	applied, err := database.RunMigrations(ctx, pool, migrations.FS)
	if err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Printf("✓ Database migrations applied (%d new)", applied)

	// ──── Initialize Repositories ────
	sessionRepo := repository.NewSessionRepo(pool)
	messageRepo := repository.NewMessageRepo(pool)
	settingsRepo := repository.NewSettingsRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	invoker, err := prompt.NewGeminiInvoker(cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel, cfg.AI.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer invoker.Close()
	log.Printf("✓ Gemini client initialized (%s)", cfg.AI.GeminiModel)

	// ──── Initialize Services ────
	statusPublisher := services.NewStatusPublisher(redisClients.Commands)
	flowService := flows.NewService(invoker,
		flows.WithMaxAttempts(cfg.AI.MaxAttempts),
		flows.WithBaseDelay(cfg.AI.BaseDelay),
		flows.WithRetryObserver(statusPublisher.RetryObserver()),
	)

	jwtAuth, err := middleware.NewJWTAuth(cfg.IdentityJWTSecret, cfg.IdentityJWTPublicKey)
	if err != nil {
		log.Fatalf("✗ Identity token verifier initialization failed: %v", err)
	}

	firebaseMinter := services.NewFirebaseTokenMinter(cfg.Firebase)
	if err := firebaseMinter.CheckConfig(); err != nil {
		log.Printf("⚠ %v", err)
	}

	fileExtractService := services.NewFileExtractService(cfg.MaxUploadMB)
	urlFetchService := services.NewURLFetchService(services.NewYouTubeService())

	// ──── Initialize Handlers ────
	authBridgeHandler := handlers.NewAuthBridgeHandler(firebaseMinter, jwtAuth, cfg.Env)
	aiHandler := handlers.NewAIHandler(flowService)
	sessionHandler := handlers.NewSessionHandler(sessionRepo)
	chatHandler := handlers.NewChatHandler(sessionRepo, messageRepo, flowService)
	ingestHandler := handlers.NewIngestHandler(fileExtractService, urlFetchService)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		redisClients.Commands,
		cfg.AI.RateLimitPerMinute,
		authBridgeHandler,
		aiHandler,
		sessionHandler,
		chatHandler,
		ingestHandler,
		settingsHandler,
		wsHub,
		cfg.FrontendURL,
	)

	// Flows can spend several backoff rounds on a single call.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Aether Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
