package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvFileVar names a dotenv file read before the environment.
const EnvFileVar = "ENV_FILE"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Packager  PackagerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	// MaxBodyBytes caps write bodies. Zero means unlimited.
	MaxBodyBytes int64 `envconfig:"MAX_BODY_BYTES" default:"0"`
	// FrontPage is an HTML file served at "/". Empty serves the built-in page.
	FrontPage string `envconfig:"FRONT_PAGE" default:""`
}

// Addr returns the host:port pair to listen on.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// StorageConfig holds filesystem configuration.
type StorageConfig struct {
	// Root is the directory request paths are interpreted against.
	Root string `envconfig:"STORAGE_ROOT" default:"."`
}

// PackagerConfig holds configuration for the mkdocx command.
type PackagerConfig struct {
	// Command is run with the request path appended as its last argument.
	// Empty selects the built-in zip packager.
	Command string   `envconfig:"PACKAGER_COMMAND" default:""`
	Exclude []string `envconfig:"PACKAGER_EXCLUDE" default:"**/.DS_Store"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Rate limit scopes.
const (
	RateLimitScopeIP     = "ip"
	RateLimitScopeGlobal = "global"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	// Scope is "ip" for a bucket per client address or "global" for one
	// bucket shared by every client.
	Scope string `envconfig:"RATE_LIMIT_SCOPE" default:"ip"`
}

// MetricsConfig holds the operational listener configuration.
type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Address string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load loads configuration from environment variables, after exporting
// the file named by ENV_FILE if it is set.
func Load() (*Config, error) {
	if path := os.Getenv(EnvFileVar); path != "" {
		if err := LoadEnvFile(path); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvFile exports the variables in a dotenv file. Variables already
// present in the environment keep their values.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("invalid config: server port is empty")
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("invalid config: MAX_BODY_BYTES must not be negative, got %d", c.Server.MaxBodyBytes)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid config: RATE_LIMIT_RPS must be positive when rate limiting is enabled")
	}
	switch c.RateLimit.Scope {
	case RateLimitScopeIP, RateLimitScopeGlobal:
	default:
		return fmt.Errorf("invalid config: RATE_LIMIT_SCOPE must be %q or %q, got %q",
			RateLimitScopeIP, RateLimitScopeGlobal, c.RateLimit.Scope)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Root: ".",
		},
		Packager: PackagerConfig{
			Exclude: []string{"**/.DS_Store"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
			Scope:             RateLimitScopeIP,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9090",
		},
	}
}
