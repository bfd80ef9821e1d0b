package api

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/openalpha/cdp-chain/api/middleware"
	"github.com/openalpha/cdp-chain/api/websocket"
)

// Config contains server configuration
type Config struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`

	// MetricsAddr serves /metrics on its own listener; empty mounts it on the API router
	MetricsAddr    string   `toml:"metrics_addr"`
	AllowedOrigins []string `toml:"allowed_origins"`

	// Admin is the bech32 admin authority of both modules
	Admin string `toml:"admin"`

	// GenesisFile optionally seeds trove and pool state from an exported genesis
	GenesisFile string `toml:"genesis_file"`

	Log       LogConfig                  `toml:"log"`
	Auth      middleware.AuthConfig      `toml:"auth"`
	RateLimit middleware.RateLimitConfig `toml:"rate_limit"`
	WebSocket websocket.HubConfig        `toml:"websocket"`
}

// LogConfig configures the service logger. An empty File logs to stderr.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 10,
			MaxAgeDays: 30,
		},
		Auth:      *middleware.DefaultAuthConfig(),
		RateLimit: *middleware.DefaultRateLimitConfig(),
		WebSocket: *websocket.DefaultHubConfig(),
	}
}

// LoadConfig reads a TOML file over the defaults. Callers validate after
// applying flag and environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Admin == "" {
		return fmt.Errorf("admin authority must be set")
	}
	if c.Auth.HMACSecret == "" {
		return fmt.Errorf("auth.hmac_secret must be set")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
