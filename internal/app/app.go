// Package app wires the shared runtime used by the api, worker and CLI
// binaries.
package app

import (
	"context"
	"fmt"

	"spiresync/internal/config"
	"spiresync/internal/connectors/woocommerce"
	"spiresync/internal/database"
	"spiresync/internal/encryption"
	"spiresync/internal/inventory"
	"spiresync/internal/logger"
	"spiresync/internal/progress"
	"spiresync/internal/repository"
)

type App struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.Database
	Cipher       *encryption.Cipher
	Settings     *repository.SettingsRepository
	Catalog      *repository.CatalogRepository
	Tracker      progress.Tracker
	Orchestrator *inventory.Orchestrator

	closers []func() error
}

// Build opens the database and progress backend. Progress is kept in redis
// when REDIS_URL is set and in process memory otherwise.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Logger:  log,
		DB:      db,
		Cipher:  encryption.New(cfg.EncryptionKey),
		closers: []func() error{db.Close},
	}
	a.Settings = repository.NewSettingsRepository(db.DB, a.Cipher)
	a.Catalog = repository.NewCatalogRepository(db.DB)

	if cfg.RedisURL != "" {
		tracker, err := progress.NewRedisTracker(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.Tracker = tracker
		a.closers = append(a.closers, tracker.Close)
	} else {
		log.Warn("REDIS_URL not set, sync progress is kept in process memory")
		a.Tracker = progress.NewMemoryTracker()
	}

	a.Orchestrator = inventory.NewOrchestrator(
		inventory.SpireSource(cfg.ERPTimeout, log),
		woocommerce.New(a.Catalog, log),
		a.Tracker,
		log,
		inventory.Options{
			PageSize:         cfg.SyncPageSize,
			DefaultWarehouse: cfg.DefaultWarehouse,
			ProgressTTL:      cfg.ProgressTTL,
		},
	)

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
