package processors

import (
	"context"
	"fmt"

	"spiresync/internal/events"
	"spiresync/internal/logger"
	"spiresync/internal/models"
)

type SettingsLoader interface {
	Load(ctx context.Context) (*models.SyncSettings, error)
}

// SyncRunner executes one inventory sync. Fail marks a run that could not
// start as terminated.
type SyncRunner interface {
	Run(ctx context.Context, settings *models.SyncSettings, runKey string) error
	Fail(ctx context.Context, runKey string, err error)
}

type EventProcessor struct {
	settings SettingsLoader
	runner   SyncRunner
	logger   *logger.Logger
}

func NewEventProcessor(settings SettingsLoader, runner SyncRunner, logger *logger.Logger) *EventProcessor {
	return &EventProcessor{
		settings: settings,
		runner:   runner,
		logger:   logger,
	}
}

// Process handles one event. Unknown event types are logged and dropped.
func (ep *EventProcessor) Process(ctx context.Context, event events.Event) error {
	ep.logger.Debug("Processing event: %s (%s)", event.Type, event.ID)

	switch event.Type {
	case events.TypeSyncRequested:
		return ep.processSyncRequested(ctx, event)
	default:
		ep.logger.Warn("Ignoring event of unknown type %q", event.Type)
		return nil
	}
}

func (ep *EventProcessor) processSyncRequested(ctx context.Context, event events.Event) error {
	if event.RunKey == "" {
		return fmt.Errorf("event %s has no run key", event.ID)
	}

	// A started run always finishes, even when the worker is shutting down.
	runCtx := context.WithoutCancel(ctx)

	settings, err := ep.settings.Load(runCtx)
	if err != nil {
		err = fmt.Errorf("failed to load settings: %w", err)
		ep.runner.Fail(runCtx, event.RunKey, err)
		return err
	}

	if err := ep.runner.Run(runCtx, settings, event.RunKey); err != nil {
		ep.runner.Fail(runCtx, event.RunKey, err)
		return fmt.Errorf("sync for %s not started: %w", event.RunKey, err)
	}

	ep.logger.Info("Event %s processed successfully", event.ID)
	return nil
}
