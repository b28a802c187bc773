package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.Tokens())
	assert.Empty(t, cfg.Database.DSN)
	assert.Equal(t, "* * * * *", cfg.Sweeper.Schedule)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("API_TOKENS", "alpha, beta ,,gamma")
	t.Setenv("DATABASE_DSN", "postgres://engine@localhost/vaults?sslmode=disable")
	t.Setenv("BOOTSTRAP_ADMIN", "root")
	t.Setenv("SWEEP_SCHEDULE", "*/5 * * * *")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, cfg.Server.Tokens())
	assert.Equal(t, "postgres://engine@localhost/vaults?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, "root", cfg.Directory.BootstrapAdmin)
	assert.Equal(t, "*/5 * * * *", cfg.Sweeper.Schedule)
	assert.Equal(t, "debug", cfg.Logging.LoggerConfig().Level)
}

func TestTokensParsing(t *testing.T) {
	assert.Nil(t, ServerConfig{APITokens: "  "}.Tokens())
	assert.Equal(t, []string{"one"}, ServerConfig{APITokens: "one"}.Tokens())
	assert.Equal(t, []string{"one", "two"}, ServerConfig{APITokens: " one , two "}.Tokens())
}
