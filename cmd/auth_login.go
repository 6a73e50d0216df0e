package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/factor591/aisheets/client"
	"github.com/factor591/aisheets/config"
)

var loginNoVerify bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a model provider API key",
	Long: `Save an API key to config.json for future commands.

What happens:
  1. The key is taken from --api-key, or read from stdin when the flag is absent.
  2. Unless --no-verify is set, the key is checked by listing the provider's models.
  3. The key (and --api-url / --model, if given) is saved with 0600 permissions.

For non-interactive environments you can skip this and set AISHEETS_API_KEY.

Examples:
  aisheets auth login
  aisheets auth login --api-key sk-... --model gpt-4o
  echo "$KEY" | aisheets auth login --api-url http://localhost:8080/v1`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.SilenceUsage = true
	loginCmd.Flags().BoolVar(&loginNoVerify, "no-verify", false, "Save the key without checking it against the API")
	authCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
		var err error
		if key, err = readLine(cmd.InOrStdin()); err != nil {
			return fmt.Errorf("reading API key: %w", err)
		}
	}
	if key == "" {
		return fmt.Errorf("no API key given")
	}

	if !loginNoVerify {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		settings.APIKey = key
		c, err := newClient(settings)
		if err != nil {
			return err
		}
		if _, err := c.ListModels(cmd.Context()); err != nil {
			if client.IsUnauthorized(err) {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not verify key: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.APIKey = key
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "✓ API key saved")
	return nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
