package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/lorekeeper/internal/config"
	"github.com/jwebster45206/lorekeeper/internal/handlers"
	"github.com/jwebster45206/lorekeeper/internal/logger"
	"github.com/jwebster45206/lorekeeper/internal/middleware"
	"github.com/jwebster45206/lorekeeper/internal/services"
	"github.com/jwebster45206/lorekeeper/internal/services/queue"
	"github.com/jwebster45206/lorekeeper/internal/storage"
	"github.com/jwebster45206/lorekeeper/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Lorekeeper API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.LLMModel)

	var llmService services.LLMService
	switch cfg.LLMProvider {
	case "gemini":
		gemini, err := services.NewGeminiService(context.Background(), cfg.APIKey, cfg.LLMModel, log)
		if err != nil {
			log.Error("Failed to create Gemini service", "error", err)
			os.Exit(1)
		}
		defer func() { _ = gemini.Close() }()
		llmService = gemini
		log.Info("Using Gemini LLM provider")
	case "anthropic":
		llmService = services.NewAnthropicService(cfg.APIKey, cfg.LLMModel, log)
		log.Info("Using Anthropic LLM provider")
	case "venice":
		llmService = services.NewVeniceService(cfg.APIKey, cfg.LLMModel)
		log.Info("Using Venice LLM provider")
	case "mock":
		llmService = services.NewMockLLMAPI()
		log.Info("Using mock LLM provider")
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider,
			"supported", []string{"gemini", "anthropic", "venice", "mock"})
		os.Exit(1)
	}

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.StoryPath, cfg.LoreDir, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	// Fail fast on a broken story definition
	if _, err := store.GetStory(storageCtx); err != nil {
		log.Error("Failed to load story", "error", err, "path", cfg.StoryPath)
		os.Exit(1)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), time.Minute)
	defer initCancel()
	if err := llmService.InitModel(initCtx, cfg.LLMModel); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.LLMModel)
		os.Exit(1)
	}

	// The queue is optional: without Redis queueing, turns and saves
	// run inline on the request path.
	var requestQueue *queue.RequestQueue
	if queueClient, err := queue.NewClient(cfg.RedisURL, log); err != nil {
		log.Warn("Queue unavailable, requests will run inline", "error", err)
	} else {
		defer func() { _ = queueClient.Close() }()
		requestQueue = queue.NewRequestQueue(queueClient)
	}

	turns := worker.NewTurnProcessor(store, llmService, log, cfg.GenerateScenes)
	lore := worker.NewLoreProcessor(store, llmService, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	saveStateHandler := handlers.NewSaveStateHandler(store, log)
	mux.Handle("/v1/savestate", saveStateHandler)
	mux.Handle("/v1/savestate/", saveStateHandler)

	turnHandler := handlers.NewTurnHandler(store, turns, requestQueue, log)
	mux.Handle("/v1/turn", turnHandler)
	mux.Handle("/v1/turn/", turnHandler)

	narrativeHandler := handlers.NewNarrativeHandler(lore, requestQueue, log)
	mux.Handle("/v1/narrative-save", narrativeHandler)

	handler := middleware.Logging(log, mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
