package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/grocer",
		"REDIS_URL":    "redis://localhost:6379/0",
		"PORT":         "",
		"APP_ENV":      "",
	})
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "EUR", cfg.CurrencyCode)
	require.True(t, cfg.MigrateOnStart)
	require.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, 20, cfg.CatalogDefaultLimit)
	require.Equal(t, 60, cfg.CompareRateLimitMax)
	require.Equal(t, 2160*time.Hour, cfg.SweepRetention)
}

func TestLoadRequiresDatabaseAndRedis(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379/0",
	})
	require.Error(t, err)

	_, err = LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/grocer",
		"REDIS_URL":    "",
	})
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":              "postgres://localhost:5432/grocer",
		"REDIS_URL":                 "redis://localhost:6379/0",
		"PORT":                      "9090",
		"CORS_ALLOWED_ORIGINS":      "https://a.example, https://b.example",
		"COMPARE_RATE_LIMIT_WINDOW": "30s",
		"DB_MIGRATE_ON_START":       "false",
	})
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 30*time.Second, cfg.CompareRateLimitWindow)
	require.False(t, cfg.MigrateOnStart)
}
