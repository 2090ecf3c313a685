package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/lorekeeper/internal/config"
	"github.com/jwebster45206/lorekeeper/internal/logger"
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

	log.Info("Starting Lorekeeper Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL)

	// Initialize queue service
	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()

	requestQueue := queue.NewRequestQueue(queueClient)
	log.Info("Queue service initialized successfully")

	// Initialize storage service
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
	log.Info("Storage service initialized successfully")

	// Initialize LLM service
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

	initCtx, initCancel := context.WithTimeout(context.Background(), time.Minute)
	defer initCancel()
	if err := llmService.InitModel(initCtx, cfg.LLMModel); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.LLMModel)
		os.Exit(1)
	}
	log.Info("LLM service initialized successfully", "model", cfg.LLMModel)

	turns := worker.NewTurnProcessor(store, llmService, log, cfg.GenerateScenes)
	lore := worker.NewLoreProcessor(store, llmService, log)
	log.Info("Processors initialized successfully")

	// A separate Redis client for worker locking, so lock operations
	// never contend with blocking queue reads.
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}()

	log.Info("Redis connection established successfully")

	w := worker.New(requestQueue, turns, lore, redisClient, log, os.Getenv("WORKER_ID"))

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for requests...")

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// Give the worker time to finish the current request
	time.Sleep(2 * time.Second)

	log.Info("Worker exited")
}
