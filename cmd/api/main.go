package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spiresync/internal/api"
	"spiresync/internal/app"
	"spiresync/internal/config"
	"spiresync/internal/events"
	"spiresync/internal/inventory"
	"spiresync/internal/logger"
	"spiresync/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel, cfg.Env)

	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize: %v", err)
	}
	defer a.Close()

	// Scheduled syncs run in this process unless a worker owns them
	var dispatcher inventory.Dispatcher
	var local *inventory.LocalDispatcher
	if cfg.SyncTrigger == config.TriggerKafka {
		producer := worker.NewProducer(cfg, events.SourceAPI, logger)
		defer producer.Close()
		dispatcher = producer
	} else {
		local = inventory.NewLocalDispatcher(a.Orchestrator, a.Settings, logger)
		dispatcher = local
	}
	scheduler := inventory.NewScheduler(a.Settings, a.Tracker, dispatcher, logger, cfg.ProgressTTL)

	// Initialize API server
	server := api.New(cfg, logger, api.Deps{
		Settings:  a.Settings,
		Catalog:   a.Catalog,
		Scheduler: scheduler,
		Cipher:    a.Cipher,
	})

	go func() {
		logger.Info("Starting API server on port %s (sync trigger: %s)", cfg.APIPort, cfg.SyncTrigger)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}

	if local != nil {
		logger.Info("Waiting for running syncs to finish...")
		local.Wait()
	}
}
