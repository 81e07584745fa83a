package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIBaseURL         string
	BindAddress        string
	RequireBearerToken bool
	BearerToken        string
	RequestTimeout     time.Duration
	PollInterval       time.Duration
	ReconcileCron      string
	StreamEnabled      bool
	CacheDir           string
	SessionPath        string
	SessionPassphrase  string
	LogLevel           string
}

// fileConfig is the YAML shape; durations are strings ("10s", "1m").
// The session passphrase is env-only so it never lands in a config file.
type fileConfig struct {
	APIBaseURL     string `yaml:"api_base_url"`
	BindAddress    string `yaml:"bind_address"`
	RequireToken   *bool  `yaml:"require_token"`
	BearerToken    string `yaml:"bearer_token"`
	RequestTimeout string `yaml:"request_timeout"`
	PollInterval   string `yaml:"poll_interval"`
	ReconcileCron  string `yaml:"reconcile_cron"`
	Stream         *bool  `yaml:"stream"`
	CacheDir       string `yaml:"cache_dir"`
	SessionPath    string `yaml:"session_path"`
	LogLevel       string `yaml:"log_level"`
}

// Load builds the configuration from defaults, then an optional YAML
// file (EVB_CONFIG), then EVB_* environment overrides.
func Load() (Config, error) {
	home, _ := os.UserHomeDir()
	stateDir := filepath.Join(home, ".eventbook")

	cfg := Config{
		BindAddress:        "127.0.0.1:9471",
		RequireBearerToken: false,
		RequestTimeout:     10 * time.Second,
		PollInterval:       time.Minute,
		StreamEnabled:      true,
		CacheDir:           filepath.Join(stateDir, "cache"),
		SessionPath:        filepath.Join(stateDir, "session.enc"),
		SessionPassphrase:  "eventbook-local",
		LogLevel:           "info",
	}

	if path := strings.TrimSpace(os.Getenv("EVB_CONFIG")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.APIBaseURL = getenvDefault("EVB_API_BASE_URL", cfg.APIBaseURL)
	cfg.BindAddress = getenvDefault("EVB_BIND_ADDRESS", cfg.BindAddress)
	cfg.RequireBearerToken = getenvBool("EVB_REQUIRE_TOKEN", cfg.RequireBearerToken)
	cfg.BearerToken = getenvDefault("EVB_BEARER_TOKEN", cfg.BearerToken)
	cfg.RequestTimeout = getenvDuration("EVB_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.PollInterval = getenvDuration("EVB_POLL_INTERVAL", cfg.PollInterval)
	cfg.ReconcileCron = getenvDefault("EVB_RECONCILE_CRON", cfg.ReconcileCron)
	cfg.StreamEnabled = getenvBool("EVB_STREAM", cfg.StreamEnabled)
	cfg.CacheDir = getenvDefault("EVB_CACHE_DIR", cfg.CacheDir)
	cfg.SessionPath = getenvDefault("EVB_SESSION_PATH", cfg.SessionPath)
	cfg.SessionPassphrase = getenvDefault("EVB_SESSION_PASSPHRASE", cfg.SessionPassphrase)
	cfg.LogLevel = getenvDefault("EVB_LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(blob, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if fc.APIBaseURL != "" {
		cfg.APIBaseURL = fc.APIBaseURL
	}
	if fc.BindAddress != "" {
		cfg.BindAddress = fc.BindAddress
	}
	if fc.RequireToken != nil {
		cfg.RequireBearerToken = *fc.RequireToken
	}
	if fc.BearerToken != "" {
		cfg.BearerToken = fc.BearerToken
	}
	if fc.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("config request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return fmt.Errorf("config poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if fc.ReconcileCron != "" {
		cfg.ReconcileCron = fc.ReconcileCron
	}
	if fc.Stream != nil {
		cfg.StreamEnabled = *fc.Stream
	}
	if fc.CacheDir != "" {
		cfg.CacheDir = fc.CacheDir
	}
	if fc.SessionPath != "" {
		cfg.SessionPath = fc.SessionPath
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	return nil
}

func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("EVB_API_BASE_URL is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be > 0")
	}
	if c.ReconcileCron != "" {
		if _, err := cron.ParseStandard(c.ReconcileCron); err != nil {
			return fmt.Errorf("invalid reconcile cron %q: %w", c.ReconcileCron, err)
		}
	} else if c.PollInterval <= 0 {
		return errors.New("poll interval must be > 0 when no cron schedule is set")
	}
	if c.RequireBearerToken && c.BearerToken == "" {
		return errors.New("EVB_BEARER_TOKEN is required when token auth is enabled")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
