package config_test

import (
	"os"
	"testing"

	"github.com/gigcatalog/ingestor/config"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	clearIngestorEnv(t)

	cfg := config.Load()
	require.Equal(t, config.ModeDevelopment, cfg.Mode)
	require.Equal(t, 30, cfg.RateLimitPerMin)
	require.Equal(t, 2, cfg.StaggerMinutes)
	require.True(t, cfg.UseFileStorage)
	require.False(t, cfg.UseDatabase)
	require.False(t, cfg.RedisEnabled)
}

func TestLoadOverrides(t *testing.T) {
	clearIngestorEnv(t)
	t.Setenv("INGESTOR_MODE", "production")
	t.Setenv("INGESTOR_ENABLED_SOURCES", "ra, resident-advisor ,songkick")
	t.Setenv("INGESTOR_REDIS_URL", "redis://cache:6379")

	cfg := config.Load()
	require.Equal(t, config.ModeProduction, cfg.Mode)
	require.Equal(t, []string{"ra", "resident-advisor", "songkick"}, cfg.EnabledSources)
	require.True(t, cfg.RedisEnabled)
}

func clearIngestorEnv(t *testing.T) {
	t.Helper()
	for _, e := range os.Environ() {
		key := e
		for i, c := range e {
			if c == '=' {
				key = e[:i]
				break
			}
		}
		for _, prefix := range []string{"INGESTOR_", "LOG_LEVEL"} {
			if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
				t.Setenv(key, "")
				os.Unsetenv(key)
			}
		}
	}
}
