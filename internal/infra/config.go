package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"lightning_go/internal/domain"
)

const (
	AppName = "lightning-go"

	DefaultRestURL = "https://api.bitflyer.com"
	DefaultWSURL   = "wss://ws.lightstream.bitflyer.com/json-rpc"

	// DefaultUserAgent identifies REST requests.
	DefaultUserAgent = "lightning-go/1.0"
)

// Config holds every application setting. LoadConfig reads it from YAML and
// then overlays credentials from the environment.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		RestURL    string `yaml:"rest_url"`
		WSURL      string `yaml:"ws_url"`
		TimeoutSec int    `yaml:"timeout_sec"`
		APIKey     string `yaml:"api_key"`
		APISecret  string `yaml:"api_secret"`
	} `yaml:"api"`

	Board struct {
		Product string          `yaml:"product"`
		Rows    int             `yaml:"rows"`
		Group   decimal.Decimal `yaml:"group"`
	} `yaml:"board"`

	Executions struct {
		Product string `yaml:"product"`
		Rows    int    `yaml:"rows"`
	} `yaml:"executions"`

	Ticker struct {
		Products []string `yaml:"products"`
	} `yaml:"ticker"`

	UI struct {
		RenderIntervalMS int `yaml:"render_interval_ms"`
		HealthPollSec    int `yaml:"health_poll_sec"`
	} `yaml:"ui"`

	Logging struct {
		Level  string `yaml:"level"`
		Dir    string `yaml:"dir"`
		Stdout bool   `yaml:"stdout"`
	} `yaml:"logging"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = AppName
	cfg.App.Version = "1.0.0"
	cfg.API.RestURL = DefaultRestURL
	cfg.API.WSURL = DefaultWSURL
	cfg.API.TimeoutSec = 10
	cfg.Board.Product = "BTC_JPY"
	cfg.Board.Rows = 24
	cfg.Board.Group = decimal.Zero
	cfg.Executions.Product = "BTC_JPY"
	cfg.Executions.Rows = 48
	cfg.Ticker.Products = []string{"BTC_JPY", "FX_BTC_JPY", "ETH_BTC", "BCH_BTC"}
	cfg.UI.RenderIntervalMS = 200
	cfg.UI.HealthPollSec = 60
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	cfg.Storage.Path = filepath.Join("data", "lightning.db")
	return &cfg
}

// LoadConfig reads path on top of DefaultConfig. A missing file yields
// domain.ErrConfigNotFound.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &domain.ConfigError{Field: path, Err: err}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.API.RestURL, "http://") && !strings.HasPrefix(c.API.RestURL, "https://") {
		return &domain.ConfigError{Field: "api.rest_url", Err: fmt.Errorf("invalid URL %q", c.API.RestURL)}
	}
	if !strings.HasPrefix(c.API.WSURL, "ws://") && !strings.HasPrefix(c.API.WSURL, "wss://") {
		return &domain.ConfigError{Field: "api.ws_url", Err: fmt.Errorf("invalid URL %q", c.API.WSURL)}
	}
	if c.API.TimeoutSec <= 0 {
		return &domain.ConfigError{Field: "api.timeout_sec", Err: errors.New("must be positive")}
	}
	if c.Board.Rows <= 0 {
		return &domain.ConfigError{Field: "board.rows", Err: errors.New("must be positive")}
	}
	if c.Board.Group.IsNegative() {
		return &domain.ConfigError{Field: "board.group", Err: errors.New("must not be negative")}
	}
	if c.Executions.Rows <= 0 {
		return &domain.ConfigError{Field: "executions.rows", Err: errors.New("must be positive")}
	}
	if c.UI.RenderIntervalMS <= 0 {
		return &domain.ConfigError{Field: "ui.render_interval_ms", Err: errors.New("must be positive")}
	}
	if c.UI.HealthPollSec <= 0 {
		return &domain.ConfigError{Field: "ui.health_poll_sec", Err: errors.New("must be positive")}
	}
	return nil
}

// RenderInterval is the coalescer interval.
func (c *Config) RenderInterval() time.Duration {
	return time.Duration(c.UI.RenderIntervalMS) * time.Millisecond
}

// HealthPollInterval is the board-state polling interval.
func (c *Config) HealthPollInterval() time.Duration {
	return time.Duration(c.UI.HealthPollSec) * time.Second
}

// Timeout is the REST client timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// HasCredential reports whether private requests can be signed.
func (c *Config) HasCredential() bool {
	return c.API.APIKey != "" && c.API.APISecret != ""
}

// overrideWithEnv replaces credentials with environment values when set.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("LIGHTNING_API_KEY"); key != "" {
		cfg.API.APIKey = key
	}
	if secret := os.Getenv("LIGHTNING_API_SECRET"); secret != "" {
		cfg.API.APISecret = secret
	}
}

// ResolveConfigPath finds config.yaml.
// Priority: 1. Current Dir, 2. OS Config Dir
func ResolveConfigPath() string {
	defaultPath := filepath.Join("configs", "config.yaml")

	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	configRoot, err := os.UserConfigDir()
	if err == nil {
		osPath := filepath.Join(configRoot, AppName, "config.yaml")
		if _, err := os.Stat(osPath); err == nil {
			return osPath
		}
	}

	return defaultPath
}
