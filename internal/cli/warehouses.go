package cli

import (
	"fmt"
	"io"

	"spiresync/internal/app"
	"spiresync/internal/inventory"
	"spiresync/internal/services/spire"

	"github.com/spf13/cobra"
)

// NewWarehousesCommand creates the warehouses command.
func NewWarehousesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warehouses",
		Short: "List Spire warehouses sorted by code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				settings, err := a.Settings.Load(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load settings", err)
				}
				if !settings.HasCredentials() {
					return NewExitError(ExitCommandError, inventory.ErrMissingCredentials.Error())
				}

				client := spire.NewClient(inventory.Credentials(settings), a.Config.ERPTimeout, a.Logger)
				warehouses, err := client.GetWarehouses(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "failed to fetch warehouses", err)
				}

				return formatter.Print(warehouses, func(w io.Writer) {
					for _, wh := range warehouses {
						fmt.Fprintf(w, "%s\t%s\n", wh.Code, wh.Description)
					}
				})
			})
		},
	}

	return cmd
}
