package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/gamemaster-agent/internal/config"
	"github.com/jwebster45206/gamemaster-agent/internal/handlers"
	"github.com/jwebster45206/gamemaster-agent/internal/logger"
	"github.com/jwebster45206/gamemaster-agent/internal/middleware"
	"github.com/jwebster45206/gamemaster-agent/internal/services/events"
	"github.com/jwebster45206/gamemaster-agent/internal/services/queue"
	"github.com/jwebster45206/gamemaster-agent/internal/storage"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Game Master API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend)

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	store, err := storage.Open(storageCtx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	rdb := queueClient.GetRedisClient()
	broadcaster := events.NewBroadcaster(rdb, log)

	mux := handlers.NewRouter(handlers.Deps{
		Storage:    store,
		Queue:      queue.NewRequestQueue(queueClient),
		Publisher:  broadcaster,
		Subscriber: broadcaster,
		Locks:      queueClient.StoryLocks(queue.DefaultLockTTL),
		Health: map[string]handlers.Pinger{
			"storage": store,
			"queue":   queueClient,
		},
		Logger: log,
	})

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the SSE endpoint holds responses open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := queueClient.Close(); err != nil {
		log.Error("Error closing queue client", "error", err)
	}

	log.Info("Server exited")
}
