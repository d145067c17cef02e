package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "LOG_LEVEL", "JWT_SECRET", "DB_DRIVER", "DATABASE_URL",
		"POSTGRES_HOST", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_PORT",
		"SQLITE_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "CORS_ORIGINS", "LIVENESS_INTERVAL",
		"MAX_MESSAGE_LENGTH", "SEND_BUFFER", "MAX_FRAME_BYTES", "WRITE_TIMEOUT", "STORE_TIMEOUT",
		"SHUTDOWN_TIMEOUT", "PRESENCE_TTL", "PRESENCE_REFRESH_SCHEDULE",
		"RATE_LIMIT_PER_SECOND", "RATE_LIMIT_BURST",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.LivenessInterval)
	assert.Equal(t, 1000, cfg.MaxMessageLength)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Equal(t, "@every 1m", cfg.PresenceRefreshSchedule)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "sqlite")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_PostgresNeedsDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Contains(t, cfg.DatabaseURL, "host=db")
	assert.Contains(t, cfg.DatabaseURL, "dbname=mindspark")
}

func TestLoadConfig_UnsupportedDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "oracle")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("LIVENESS_INTERVAL", "5s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")
	t.Setenv("SEND_BUFFER", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.LivenessInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.RateLimitPerSecond)
	assert.Equal(t, 256, cfg.SendBuffer)
}

func TestLoadConfig_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "realtime.yaml")
	content := []byte(`
port: "4000"
jwt_secret: from-file
db_driver: sqlite
liveness_interval: 10s
cors_origins:
  - https://app.example
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "5000")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port, "env wins over file")
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 10*time.Second, cfg.LivenessInterval)
	assert.Equal(t, []string{"https://app.example"}, cfg.AllowedOrigins)
}

func TestLoadConfig_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("UNIT_TEST_ENV", "value")
	if got := getEnvOrDefault("UNIT_TEST_ENV", "fallback"); got != "value" {
		t.Fatalf("expected env value, got %s", got)
	}

	t.Setenv("UNIT_TEST_ENV", "")
	if got := getEnvOrDefault("UNIT_TEST_ENV", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback value, got %s", got)
	}
}
