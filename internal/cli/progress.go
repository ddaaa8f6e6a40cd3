package cli

import (
	"errors"

	"spiresync/internal/app"
	"spiresync/internal/progress"

	"github.com/spf13/cobra"
)

// NewProgressCommand creates the progress command. Progress is only shared
// between processes when REDIS_URL is set.
func NewProgressCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress <brand>",
		Short: "Show the latest sync progress for a brand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				run, err := a.Tracker.Get(cmd.Context(), args[0])
				if errors.Is(err, progress.ErrNotFound) {
					return NewExitError(ExitFailure, err.Error())
				}
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read progress", err)
				}
				return printRun(formatter, run)
			})
		},
	}

	return cmd
}
