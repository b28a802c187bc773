// Package config loads the engine configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"

	"github.com/CircleVault-Network/vault_engine/pkg/logger"
)

// Config is the full engine configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Directory DirectoryConfig
	Sweeper   SweeperConfig
	Logging   LoggingConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `env:"LISTEN_ADDR,default=:8080"`
	// APITokens is a comma-separated list of accepted bearer tokens. Empty
	// leaves the API open (local development only).
	APITokens string `env:"API_TOKENS"`
	// RateLimitRPS throttles each client IP. Zero disables throttling.
	RateLimitRPS float64 `env:"RATE_LIMIT_RPS,default=0"`
}

// DatabaseConfig selects the registry backend. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN string `env:"DATABASE_DSN"`
}

// DirectoryConfig seeds the directory.
type DirectoryConfig struct {
	// BootstrapAdmin is registered as a verified admin at startup if absent.
	BootstrapAdmin string `env:"BOOTSTRAP_ADMIN"`
}

// SweeperConfig controls the expiry sweeper.
type SweeperConfig struct {
	Schedule string `env:"SWEEP_SCHEDULE,default=* * * * *"`
}

// LoggingConfig mirrors logger.LoggingConfig.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL,default=info"`
	Format     string `env:"LOG_FORMAT,default=text"`
	Output     string `env:"LOG_OUTPUT,default=stdout"`
	FilePrefix string `env:"LOG_FILE_PREFIX"`
}

// Load decodes the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Tokens returns the parsed bearer token list.
func (c ServerConfig) Tokens() []string {
	if strings.TrimSpace(c.APITokens) == "" {
		return nil
	}
	parts := strings.Split(c.APITokens, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// LoggerConfig converts to the logger package's configuration.
func (c LoggingConfig) LoggerConfig() logger.LoggingConfig {
	return logger.LoggingConfig{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		FilePrefix: c.FilePrefix,
	}
}
