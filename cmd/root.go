package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/factor591/aisheets/client"
	"github.com/factor591/aisheets/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	apiKey    string
	apiURL    string
	modelName string
	logLevel  levelFlag
)

var rootCmd = &cobra.Command{
	Use:   "aisheets",
	Short: "aisheets: edit spreadsheets by describing the change",
	Long: `Edit xlsx, xlsm, xls and csv files with plain-language instructions.

A bounded sample of the workbook is sent to an OpenAI-compatible chat model,
which proposes structured changes. The changes are applied locally and the
result is written to a new file. When anything goes wrong after the input
has been read, the output is an unchanged copy of the original.

Settings are read from config.json (see 'aisheets auth login'), then the
AISHEETS_* environment variables, then flags.`,
	Version:       Version,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Model provider API key (env: AISHEETS_API_KEY, OPENAI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "OpenAI-compatible API base URL (env: AISHEETS_API_URL)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Chat model name (env: AISHEETS_MODEL)")
	rootCmd.PersistentFlags().Var(&logLevel, "log-level", "Log level: debug, info, warn or error (env: AISHEETS_LOG_LEVEL)")
}

// levelFlag is a --log-level value validated at parse time.
type levelFlag struct{ value string }

var _ pflag.Value = (*levelFlag)(nil)

func (l *levelFlag) String() string { return l.value }
func (l *levelFlag) Type() string   { return "level" }

func (l *levelFlag) Set(s string) error {
	if _, err := parseLevel(s); err != nil {
		return err
	}
	l.value = strings.ToLower(strings.TrimSpace(s))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: want debug, info, warn or error", s)
	}
	return lvl, nil
}

// loadSettings layers defaults, config file, environment and flags.
func loadSettings() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	cfg, err = config.ApplyEnv(cfg)
	if err != nil {
		return config.Config{}, err
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	if logLevel.value != "" {
		cfg.LogLevel = logLevel.value
	}
	return cfg.Resolved(), nil
}

func newLogger(level string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func resolveAPIKey(cfg config.Config) (string, error) {
	if cfg.APIKey == "" {
		return "", fmt.Errorf("not authenticated: run 'aisheets auth login' or set --api-key / AISHEETS_API_KEY")
	}
	return cfg.APIKey, nil
}

func newClient(cfg config.Config) (*client.Client, error) {
	key, err := resolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, fmt.Errorf("request_timeout: %w", err)
	}
	c := client.New(cfg.APIURL, key)
	c.Model = cfg.Model
	c.UserAgent = "aisheets/" + Version
	c.SetRequestTimeout(timeout)
	return c, nil
}

func Execute() error {
	return rootCmd.Execute()
}
