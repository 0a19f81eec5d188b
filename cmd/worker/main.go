package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/gamemaster-agent/internal/config"
	"github.com/jwebster45206/gamemaster-agent/internal/logger"
	"github.com/jwebster45206/gamemaster-agent/internal/orchestrator"
	"github.com/jwebster45206/gamemaster-agent/internal/services"
	"github.com/jwebster45206/gamemaster-agent/internal/services/queue"
	"github.com/jwebster45206/gamemaster-agent/internal/storage"
	"github.com/jwebster45206/gamemaster-agent/internal/worker"
	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/prompts"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	log.Info("Starting Game Master Worker",
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"action_model", cfg.ActionModel,
		"creation_model", cfg.CreationModel,
		"observation_model", cfg.ObservationModel)

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

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	store, err := storage.Open(storageCtx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage", "error", err)
		}
	}()
	log.Info("Storage service initialized successfully")

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer initCancel()
	llmService, err := services.NewLLMService(initCtx, cfg, log)
	if err != nil {
		log.Error("Failed to create LLM service", "error", err)
		os.Exit(1)
	}
	if err := services.InitModels(initCtx, llmService, cfg.ActionModel, cfg.CreationModel, cfg.ObservationModel); err != nil {
		log.Error("Failed to initialize LLM models", "error", err)
		os.Exit(1)
	}
	log.Info("LLM service initialized successfully")

	pack, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		log.Error("Failed to load prompts", "error", err, "path", cfg.PromptsFile)
		os.Exit(1)
	}

	orch := orchestrator.New(llmService, pack, orchestrator.Config{
		ActionModel:      cfg.ActionModel,
		CreationModel:    cfg.CreationModel,
		ObservationModel: cfg.ObservationModel,
		MaxToolCalls:     cfg.MaxToolCallsPerTurn,
		PhaseTimeout:     cfg.PhaseTimeout,
	}, log)

	policy := character.WeightAdvisory
	if cfg.EnforceMaxWeight {
		policy = character.WeightEnforced
	}
	processor := worker.NewProcessor(store, orch, log, character.WithInventoryLimit(cfg.InventoryMaxWeight, policy))

	w := worker.New(requestQueue, processor, queueClient.GetRedisClient(), log, cfg.WorkerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for requests...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// Give worker time to finish current request
	time.Sleep(2 * time.Second)

	log.Info("Worker exited")
}
