package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/loomnote/synthesis-backend/internal/handlers"
	"github.com/loomnote/synthesis-backend/internal/ingest"
	"github.com/loomnote/synthesis-backend/internal/ingest/extract"
	"github.com/loomnote/synthesis-backend/internal/pipeline"
	"github.com/loomnote/synthesis-backend/internal/platform/envutil"
	"github.com/loomnote/synthesis-backend/internal/platform/logger"
	"github.com/loomnote/synthesis-backend/internal/platform/openai"
	"github.com/loomnote/synthesis-backend/internal/server"
	"github.com/loomnote/synthesis-backend/internal/store"
	"github.com/loomnote/synthesis-backend/internal/synthesis"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := envutil.Str("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Session store
	log.Info("Setting up session store from main...")
	var sessions store.SessionStore
	if envutil.Str("REDIS_ADDR", "") != "" {
		redisStore, err := store.NewRedisStore(log)
		if err != nil {
			log.Error("Could not init redis session store", "error", err)
			os.Exit(1)
		}
		sessions = redisStore
	} else {
		log.Warn("REDIS_ADDR not set, falling back to in-memory session store")
		sessions = store.NewMemoryStore(log, store.DefaultTTL)
	}
	defer sessions.Close()

	// Model client
	aiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up services from main...")
	ingestor := ingest.NewIngestor(log, extract.DefaultRegistry())
	analyzer := synthesis.NewAnalyzer(log, aiClient)
	summarizer := synthesis.NewModelSummarizer(log, aiClient)
	synthesizer := synthesis.NewSynthesizer(log, summarizer)
	orchestrator := pipeline.NewOrchestrator(log, sessions, ingestor, analyzer, synthesizer)

	// Handlers and router
	log.Info("Setting up router from main...")
	sessionHandler := handlers.NewSessionHandler(log, orchestrator)
	router := server.NewRouter(server.RouterConfig{
		SessionHandler: sessionHandler,
	})

	port := envutil.Str("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("Server shutdown was not clean", "error", err)
	}
}
