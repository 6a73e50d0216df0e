package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	chassisconfig "github.com/ai8future/chassis-go/v5/config"
)

const (
	DefaultAPIURL         = "https://api.openai.com/v1"
	DefaultModel          = "gpt-4"
	DefaultMaxFileBytes   = 5 << 20
	DefaultRequestTimeout = 60 * time.Second
	DefaultLogLevel       = "warn"
)

// DefaultAllowedExtensions are the input extensions accepted when the
// config does not list any.
var DefaultAllowedExtensions = []string{"xlsx", "xlsm", "xls", "csv"}

type Config struct {
	APIKey            string   `json:"api_key,omitempty"`
	APIURL            string   `json:"api_url,omitempty"`
	Model             string   `json:"model,omitempty"`
	MaxFileBytes      int64    `json:"max_file_bytes,omitempty"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`
	OutputDir         string   `json:"output_dir,omitempty"`
	RequestTimeout    string   `json:"request_timeout,omitempty"` // Go duration, e.g. "90s"
	LogLevel          string   `json:"log_level,omitempty"`
}

// EnvOverrides allows environment variables to override config.json values.
// All fields are optional (required:"false"); only non-empty values apply.
type EnvOverrides struct {
	APIKey         string `env:"AISHEETS_API_KEY" required:"false"`
	APIURL         string `env:"AISHEETS_API_URL" required:"false"`
	Model          string `env:"AISHEETS_MODEL" required:"false"`
	OutputDir      string `env:"AISHEETS_OUTPUT_DIR" required:"false"`
	MaxFileBytes   string `env:"AISHEETS_MAX_FILE_BYTES" required:"false"`
	RequestTimeout string `env:"AISHEETS_REQUEST_TIMEOUT" required:"false"`
	LogLevel       string `env:"AISHEETS_LOG_LEVEL" required:"false"`
	OpenAIKey      string `env:"OPENAI_API_KEY" required:"false"`
}

// ApplyEnv merges environment overrides into cfg. OPENAI_API_KEY only
// fills an API key that is still empty afterwards.
func ApplyEnv(cfg Config) (Config, error) {
	env := chassisconfig.MustLoad[EnvOverrides]()
	if env.APIKey != "" {
		cfg.APIKey = env.APIKey
	}
	if env.APIURL != "" {
		cfg.APIURL = env.APIURL
	}
	if env.Model != "" {
		cfg.Model = env.Model
	}
	if env.OutputDir != "" {
		cfg.OutputDir = env.OutputDir
	}
	if env.MaxFileBytes != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(env.MaxFileBytes), 10, 64)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("AISHEETS_MAX_FILE_BYTES: %q is not a positive byte count", env.MaxFileBytes)
		}
		cfg.MaxFileBytes = n
	}
	if env.RequestTimeout != "" {
		if _, err := parseTimeout(env.RequestTimeout); err != nil {
			return cfg, fmt.Errorf("AISHEETS_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = env.RequestTimeout
	}
	if env.LogLevel != "" {
		cfg.LogLevel = env.LogLevel
	}
	if cfg.APIKey == "" && env.OpenAIKey != "" {
		cfg.APIKey = env.OpenAIKey
	}
	return cfg, nil
}

// Resolved returns a copy with every unset field filled with its default.
func (c Config) Resolved() Config {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = DefaultMaxFileBytes
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = DefaultAllowedExtensions
	} else {
		exts := make([]string, 0, len(c.AllowedExtensions))
		for _, e := range c.AllowedExtensions {
			if e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), ".")); e != "" {
				exts = append(exts, e)
			}
		}
		c.AllowedExtensions = exts
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	return c
}

// Timeout parses RequestTimeout, falling back to the default when unset.
func (c Config) Timeout() (time.Duration, error) {
	if strings.TrimSpace(c.RequestTimeout) == "" {
		return DefaultRequestTimeout, nil
	}
	return parseTimeout(c.RequestTimeout)
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%q is not a positive duration", s)
	}
	return d, nil
}

// Dir returns the directory holding config.json.
func Dir() (string, error) {
	if v := os.Getenv("AISHEETS_CONFIG_DIR"); v != "" {
		return v, nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "aisheets"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "aisheets"), nil
}

func filePath() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.json"), nil
}

// Load reads the config file. Returns a zero-value Config if the file does not exist.
func Load() (Config, error) {
	p, err := filePath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", p, err)
	}
	return cfg, nil
}

// Save writes the config to disk atomically using a temp file + rename.
func Save(cfg Config) error {
	p, err := filePath()
	if err != nil {
		return err
	}
	d := filepath.Dir(p)
	if err := os.MkdirAll(d, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	// Remove dest first for Windows compat (os.Rename fails if dest exists on Windows).
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Delete removes the config file.
func Delete() error {
	p, err := filePath()
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
