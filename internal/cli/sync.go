package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"spiresync/internal/app"
	"spiresync/internal/events"
	"spiresync/internal/inventory"
	"spiresync/internal/models"
	"spiresync/internal/worker"

	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	var dispatch bool

	cmd := &cobra.Command{
		Use:   "sync <brand>",
		Short: "Sync inventory for one brand",
		Long: `Fetch the brand's inventory from Spire and upsert it into the catalog.

By default the run executes in this process and the final progress is
printed. With --dispatch the run is published to Kafka for a worker.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				if dispatch {
					return runDispatch(cmd, a, formatter, args[0])
				}
				return runSync(cmd, a, formatter, args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&dispatch, "dispatch", false, "publish the run to Kafka instead of running it here")

	return cmd
}

func runSync(cmd *cobra.Command, a *app.App, formatter *OutputFormatter, brand string) error {
	ctx := cmd.Context()

	settings, err := a.Settings.Load(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load settings", err)
	}

	if err := a.Orchestrator.Run(ctx, settings, brand); err != nil {
		if errors.Is(err, inventory.ErrMissingCredentials) || errors.Is(err, inventory.ErrMissingRunKey) {
			return WrapExitError(ExitCommandError, "sync not started", err)
		}
		return err
	}

	run, err := a.Tracker.Get(ctx, strings.TrimSpace(brand))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read progress", err)
	}
	if err := printRun(formatter, run); err != nil {
		return err
	}
	if run.State == models.SyncStateError {
		return NewExitError(ExitFailure, run.Status)
	}
	return nil
}

func runDispatch(cmd *cobra.Command, a *app.App, formatter *OutputFormatter, brand string) error {
	producer := worker.NewProducer(a.Config, events.SourceCLI, a.Logger)
	defer producer.Close()

	scheduler := inventory.NewScheduler(a.Settings, a.Tracker, producer, a.Logger, a.Config.ProgressTTL)
	run, err := scheduler.Schedule(cmd.Context(), brand)
	if err != nil {
		return WrapExitError(ExitCommandError, "sync not scheduled", err)
	}
	return printRun(formatter, run)
}

func printRun(formatter *OutputFormatter, run *models.SyncRun) error {
	return formatter.Print(run, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %s\n", run.RunKey, run.Message)
		fmt.Fprintf(w, "state=%s processed=%d total=%d failed=%d\n", run.State, run.Processed, run.Total, run.Failed)
	})
}
