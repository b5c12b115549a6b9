package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the TOML file.
const (
	EnvAPIURL = "AUDX_API_URL"
	EnvDBPath = "AUDX_DB_PATH"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Player   PlayerConfig   `toml:"player"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Sandbox  SandboxConfig  `toml:"sandbox"`
}

// APIConfig contains settings for the remote store API.
type APIConfig struct {
	BaseURL        string  `toml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
}

// DatabaseConfig contains local state database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PlayerConfig contains audio transport defaults.
type PlayerConfig struct {
	CheckpointIntervalMS int     `toml:"checkpoint_interval_ms"`
	DefaultVolume        float64 `toml:"default_volume"`
	DefaultRate          float64 `toml:"default_rate"`
}

// CatalogConfig contains catalog cache settings.
type CatalogConfig struct {
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`
	ItemCacheSize   int `toml:"item_cache_size"`
}

// SandboxConfig contains settings for the local sandbox backend.
type SandboxConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Timeout returns the API timeout as a [time.Duration].
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CheckpointInterval returns the checkpoint cadence as a [time.Duration].
func (c PlayerConfig) CheckpointInterval() time.Duration {
	return time.Duration(c.CheckpointIntervalMS) * time.Millisecond
}

// CacheTTL returns the catalog cache TTL as a [time.Duration].
func (c CatalogConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Addr returns host:port for the sandbox listener.
func (c SandboxConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate reports settings that would leave a component unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if c.Player.CheckpointIntervalMS <= 0 {
		return fmt.Errorf("%w: player.checkpoint_interval_ms must be positive", ErrInvalidConfig)
	}
	if c.Player.DefaultVolume < 0 || c.Player.DefaultVolume > 1 {
		return fmt.Errorf("%w: player.default_volume must be within [0, 1]", ErrInvalidConfig)
	}
	return nil
}

// ApplyEnv overrides config values from the process environment, after loading a .env file when one exists.
//
// A missing .env file is not an error.
func (c *Config) ApplyEnv(envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
