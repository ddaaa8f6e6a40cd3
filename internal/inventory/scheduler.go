package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"spiresync/internal/logger"
	"spiresync/internal/models"
	"spiresync/internal/progress"
)

type SettingsLoader interface {
	Load(ctx context.Context) (*models.SyncSettings, error)
}

// Dispatcher hands a scheduled run to whatever executes it.
type Dispatcher interface {
	Dispatch(ctx context.Context, runKey string) error
}

// Scheduler is the trigger side of a sync: it validates configuration,
// records the scheduled snapshot and dispatches the run.
type Scheduler struct {
	settings   SettingsLoader
	tracker    progress.Tracker
	dispatcher Dispatcher
	logger     *logger.Logger
	ttl        time.Duration
}

func NewScheduler(settings SettingsLoader, tracker progress.Tracker, dispatcher Dispatcher, logger *logger.Logger, ttl time.Duration) *Scheduler {
	if ttl <= 0 {
		ttl = progress.DefaultTTL
	}
	return &Scheduler{
		settings:   settings,
		tracker:    tracker,
		dispatcher: dispatcher,
		logger:     logger,
		ttl:        ttl,
	}
}

// Schedule returns once the run is recorded and dispatched. Configuration
// errors are returned without writing any snapshot.
func (s *Scheduler) Schedule(ctx context.Context, runKey string) (*models.SyncRun, error) {
	runKey = strings.TrimSpace(runKey)
	if runKey == "" {
		return nil, ErrMissingRunKey
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := Validate(settings, runKey); err != nil {
		return nil, err
	}

	run := models.SyncRun{
		RunKey:  runKey,
		State:   models.SyncStateScheduled,
		Status:  string(models.SyncStateScheduled),
		Message: fmt.Sprintf("Sync scheduled for brand %s.", runKey),
	}
	if err := s.tracker.Set(ctx, run, s.ttl); err != nil {
		s.logger.Warn("Failed to write sync progress for %s: %v", runKey, err)
	}

	if err := s.dispatcher.Dispatch(ctx, runKey); err != nil {
		failed := run
		failed.State = models.SyncStateError
		failed.Status = "Error: " + err.Error()
		failed.Message = failed.Status
		if werr := s.tracker.Set(ctx, failed, s.ttl); werr != nil {
			s.logger.Warn("Failed to write sync progress for %s: %v", runKey, werr)
		}
		return nil, fmt.Errorf("failed to dispatch sync: %w", err)
	}

	s.logger.Info("Sync scheduled for brand %s.", runKey)
	return &run, nil
}

// Progress reads the latest snapshot for a run.
func (s *Scheduler) Progress(ctx context.Context, runKey string) (*models.SyncRun, error) {
	runKey = strings.TrimSpace(runKey)
	if runKey == "" {
		return nil, ErrMissingRunKey
	}
	return s.tracker.Get(ctx, runKey)
}

// LocalDispatcher runs syncs in background goroutines of this process.
// Runs are detached from the caller's cancellation and cannot be stopped
// once started.
type LocalDispatcher struct {
	orchestrator *Orchestrator
	settings     SettingsLoader
	logger       *logger.Logger
	wg           sync.WaitGroup
}

func NewLocalDispatcher(orchestrator *Orchestrator, settings SettingsLoader, logger *logger.Logger) *LocalDispatcher {
	return &LocalDispatcher{
		orchestrator: orchestrator,
		settings:     settings,
		logger:       logger,
	}
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, runKey string) error {
	runCtx := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		settings, err := d.settings.Load(runCtx)
		if err != nil {
			d.logger.Error("Failed to load settings for %s: %v", runKey, err)
			d.orchestrator.Fail(runCtx, runKey, fmt.Errorf("failed to load settings: %w", err))
			return
		}
		if err := d.orchestrator.Run(runCtx, settings, runKey); err != nil {
			d.logger.Error("Sync for %s not started: %v", runKey, err)
			d.orchestrator.Fail(runCtx, runKey, err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched run has finished.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
