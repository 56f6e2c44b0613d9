package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-agency/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/agency",
		"REDIS_URL":    "redis://localhost:6379/0",
		"APP_ENV":      "",
		"PORT":         "",
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 30, cfg.QuoteValidityDays)
	require.Equal(t, 14, cfg.InvoiceDueDays)
	require.Equal(t, time.Hour, cfg.OverdueScanInterval)
	require.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	require.Equal(t, "agency", cfg.MetricsNamespace)
	require.Equal(t, 120, cfg.RateLimitMax)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379/0",
	})
	require.Error(t, err)
}

func TestLoadRequiresRedisURL(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/agency",
		"REDIS_URL":    "",
	})
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":          "postgres://localhost:5432/agency",
		"REDIS_URL":             "redis://localhost:6379/0",
		"PORT":                  "9090",
		"QUOTE_VALIDITY_DAYS":   "45",
		"INVOICE_DUE_DAYS":      "7",
		"OVERDUE_SCAN_INTERVAL": "15m",
		"CORS_ALLOWED_ORIGINS":  "https://app.example.com, https://admin.example.com",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 45, cfg.QuoteValidityDays)
	require.Equal(t, 7, cfg.InvoiceDueDays)
	require.Equal(t, 15*time.Minute, cfg.OverdueScanInterval)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":        "postgres://localhost:5432/agency",
		"REDIS_URL":           "redis://localhost:6379/0",
		"QUOTE_VALIDITY_DAYS": "-3",
		"INVOICE_DUE_DAYS":    "not-a-number",
	})
	require.NoError(t, err)
	require.Equal(t, 30, cfg.QuoteValidityDays)
	require.Equal(t, 14, cfg.InvoiceDueDays)
}

func TestExplicitZeroValues(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":           "postgres://localhost:5432/agency",
		"REDIS_URL":              "redis://localhost:6379/0",
		"TRACING_SAMPLING_RATIO": "0",
		"RATE_LIMIT_MAX":         "0",
	})
	require.NoError(t, err)
	require.Zero(t, cfg.TracingSampling)
	require.Zero(t, cfg.RateLimitMax)
}

func TestSamplingRatioOutOfRangeFallsBack(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":           "postgres://localhost:5432/agency",
		"REDIS_URL":              "redis://localhost:6379/0",
		"TRACING_SAMPLING_RATIO": "1.5",
		"RATE_LIMIT_MAX":         "-10",
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, cfg.TracingSampling)
	require.Equal(t, 120, cfg.RateLimitMax)
}
