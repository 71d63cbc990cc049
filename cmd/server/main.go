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

	"medichat-backend/internal/chatbot"
	"medichat-backend/internal/config"
	"medichat-backend/internal/database"
	"medichat-backend/internal/handlers"
	"medichat-backend/internal/middleware"
	"medichat-backend/internal/repository"
	"medichat-backend/internal/router"
	"medichat-backend/internal/search"
	"medichat-backend/internal/services"
	"medichat-backend/internal/session"
	"medichat-backend/internal/websocket"
	"medichat-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting MediChat Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	patientRepo := repository.NewPatientRepo(pool)
	medicationRepo := repository.NewMedicationRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiChatModel,
		cfg.GeminiEmbeddingModel,
		cfg.GeminiConcurrentReqs,
		redisClients.Queue,
	)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	searcher := search.NewSearcher(pool, geminiService)
	extractService := services.NewCorpusExtractService()

	sessions := session.NewManager(func() *chatbot.Bot {
		return chatbot.New(geminiService, searcher, cfg.RAGEnabled)
	})
	if cfg.RAGEnabled {
		log.Println("✓ Retrieval-augmented answers enabled")
	} else {
		log.Println("  Retrieval-augmented answers disabled (CHAT_RAG_ENABLED=false)")
	}

	// ──── Initialize Handlers ────
	sessionHandler := handlers.NewSessionHandler(sessions, patientRepo, medicationRepo, jwtAuth)
	chatHandler := handlers.NewChatHandler(sessions)
	corpusHandler := handlers.NewCorpusHandler(jobRepo, redisClients.Queue)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		geminiService,
		extractService,
		searcher,
		jobRepo,
		2,
	)
	workerPool.Start()
	log.Println("✓ Worker pool started (2 goroutines)")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		sessionHandler,
		chatHandler,
		corpusHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ MediChat Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
