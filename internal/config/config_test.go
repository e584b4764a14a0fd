package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable LoadFromEnv reads, restoring them after
// the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_PATH", "LISTEN_ADDR", "LOG_LEVEL", "ENV", "SCHEDULER_SPEC",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
		"JWT_SECRET", "AUTH_ISSUER_URL", "AUTH_AUDIENCE", "AUTH_ALLOWED_ISSUERS",
		"TOKEN_TTL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "phishdeck.sqlite", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "* * * * *", cfg.SchedulerSpec)
	assert.Equal(t, float64(100), cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.OIDCEnabled())
	assert.False(t, cfg.IsProduction())

	// The insecure default secret comes with a warning.
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
	assert.NotEmpty(t, cfg.Warnings)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "/tmp/platform.sqlite")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("JWT_SECRET", "sufficiently-long-production-secret")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/platform.sqlite", cfg.DBPath)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnvProductionFatals(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "production")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")

		_, err := LoadFromEnv()
		require.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("cors wildcard", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "production")
		t.Setenv("JWT_SECRET", "sufficiently-long-production-secret")

		_, err := LoadFromEnv()
		require.ErrorContains(t, err, "CORS")
	})
}

func TestLoadFromEnvOIDCNeedsAudience(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_ISSUER_URL", "https://idp.example.com")

	_, err := LoadFromEnv()
	require.ErrorContains(t, err, "AUTH_AUDIENCE")

	t.Setenv("AUTH_AUDIENCE", "phishdeck-api")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Auth.OIDCEnabled())
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
# platform settings
DB_PATH=from-file
LISTEN_ADDR=":9090"
LOG_LEVEL='debug'
not a key value line
`), 0o600))

	require.NoError(t, LoadDotEnv(path))

	// Real environment wins over the file.
	assert.Equal(t, "from-env", os.Getenv("DB_PATH"))
	assert.Equal(t, ":9090", os.Getenv("LISTEN_ADDR"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
}

func TestLoadDotEnvMissingFileIsFine(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestStripQuotes(t *testing.T) {
	assert.Equal(t, "plain", stripQuotes("plain"))
	assert.Equal(t, "quoted", stripQuotes(`"quoted"`))
	assert.Equal(t, "quoted", stripQuotes("'quoted'"))
	assert.Equal(t, `"mismatched'`, stripQuotes(`"mismatched'`))
	assert.Equal(t, `"`, stripQuotes(`"`))
}
