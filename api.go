package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"spiresync/internal/api"
	"spiresync/internal/app"
	"spiresync/internal/config"
	"spiresync/internal/events"
	"spiresync/internal/inventory"
	"spiresync/internal/logger"
	"spiresync/internal/worker"
)

var (
	router http.Handler
	initMu sync.Mutex
)

// initRouter builds the API once per serverless instance.
func initRouter() error {
	initMu.Lock()
	defer initMu.Unlock()

	if router != nil {
		return nil // Already initialized
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.Env)

	a, err := app.Build(context.Background(), cfg, log)
	if err != nil {
		return err
	}

	var dispatcher inventory.Dispatcher
	if cfg.SyncTrigger == config.TriggerKafka {
		producer := worker.NewProducer(cfg, events.SourceAPI, log)
		dispatcher = producer
	} else {
		log.Warn("SYNC_TRIGGER=local in a serverless instance; runs may stop when the instance is frozen")
		dispatcher = inventory.NewLocalDispatcher(a.Orchestrator, a.Settings, log)
	}

	server := api.New(cfg, log, api.Deps{
		Settings:  a.Settings,
		Catalog:   a.Catalog,
		Scheduler: inventory.NewScheduler(a.Settings, a.Tracker, dispatcher, log, cfg.ProgressTTL),
		Cipher:    a.Cipher,
	})
	router = server.Router()
	return nil
}

// Handler is the serverless entrypoint.
func Handler(w http.ResponseWriter, r *http.Request) {
	if err := initRouter(); err != nil {
		http.Error(w, fmt.Sprintf("Initialization failed: %v", err), http.StatusInternalServerError)
		return
	}

	// Serve the request
	router.ServeHTTP(w, r)
}
