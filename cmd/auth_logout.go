package cmd

import (
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/factor591/aisheets/config"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API key",
	Long: `Remove the API key saved by 'aisheets auth login'.

What happens:
  - The key is removed from config.json; other settings are kept.
  - If nothing else is left, config.json is deleted.
  - If no key is stored, prints "Not logged in." and exits successfully.

Keys passed through AISHEETS_API_KEY or OPENAI_API_KEY are not affected.

Example:
  aisheets auth logout`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	logoutCmd.SilenceUsage = true
	authCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.APIKey == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Not logged in.")
		return nil
	}

	cfg.APIKey = ""
	if reflect.ValueOf(cfg).IsZero() {
		err = config.Delete()
	} else {
		err = config.Save(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "✓ Logged out")
	return nil
}
