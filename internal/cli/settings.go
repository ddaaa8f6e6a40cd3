package cli

import (
	"fmt"
	"io"
	"os"

	"spiresync/internal/app"
	"spiresync/internal/repository"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewSettingsCommand groups the settings subcommands.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage the stored Spire settings",
	}

	cmd.AddCommand(newSettingsImportCommand(rootOpts))
	cmd.AddCommand(newSettingsShowCommand(rootOpts))

	return cmd
}

func newSettingsImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Replace the stored settings with a YAML file",
		Long: `Read credentials and sync conditions from a YAML file, sanitize them the
same way the settings API does, and save them. The password is stored
encrypted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readSettingsFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read settings file", err)
			}
			settings, err := repository.Sanitize(*input)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid settings", err)
			}

			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				if err := a.Settings.Save(cmd.Context(), settings); err != nil {
					return WrapExitError(ExitCommandError, "failed to save settings", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Settings saved for company %s (%d conditions, match %s).\n",
					settings.CompanyName, len(settings.ConditionList()), settings.MatchType)
				return nil
			})
		},
	}
}

func newSettingsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings without the password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return withApp(cmd.Context(), rootOpts, func(a *app.App) error {
				settings, err := a.Settings.Load(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load settings", err)
				}
				settings.APIPassword = ""

				return formatter.Print(settings, func(w io.Writer) {
					fmt.Fprintf(w, "base_url:     %s\n", settings.BaseURL)
					fmt.Fprintf(w, "company_name: %s\n", settings.CompanyName)
					fmt.Fprintf(w, "api_username: %s\n", settings.APIUsername)
					fmt.Fprintf(w, "match_type:   %s\n", settings.MatchType)
					for _, c := range settings.ConditionList() {
						fmt.Fprintf(w, "  %s %s %q\n", c.Key, c.Operator, c.Value)
					}
				})
			})
		},
	}
}

func readSettingsFile(path string) (*repository.SettingsInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var input repository.SettingsInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &input, nil
}
