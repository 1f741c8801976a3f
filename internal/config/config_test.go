package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "DB_PATH", "TEMPLATE_DIR", "LAYOUT_FILE", "LOG_LEVEL",
	"MAIL_TRANSPORT", "GAS_WEBHOOK_URL", "WEBHOOK_TIMEOUT",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM", "SMTP_TLS", "SMTP_TIMEOUT",
	"TREASURY_EMAIL", "MAIL_TO_ADMIN", "SPLIT_THRESHOLD_BYTES", "FORCE_SYNC_SEND",
	"SESSION_TTL", "CSRF_KEY", "SECURE_COOKIES",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "DELIVERY_MAX_RETRY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "alta.db", cfg.DBPath)
	assert.Equal(t, "tesoreria@dimensasl.com", cfg.TreasuryEmail)
	assert.Equal(t, int64(18*1024*1024), cfg.SplitThresholdBytes)
	assert.Equal(t, 30*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.ForceSyncSend)
	assert.False(t, cfg.Redis.Enabled())
	assert.Empty(t, cfg.Transport)
	assert.Error(t, cfg.MailConfigured())
}

func TestLoad_InfersTransport(t *testing.T) {
	t.Run("webhook", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GAS_WEBHOOK_URL", "https://script.example.com/exec")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, TransportWebhook, cfg.Transport)
		assert.NoError(t, cfg.MailConfigured())
	})

	t.Run("smtp", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SMTP_HOST", "smtp.example.com")
		t.Setenv("SMTP_USERNAME", "altas@example.com")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, TransportSMTP, cfg.Transport)
		assert.Equal(t, "altas@example.com", cfg.SMTP.From)
		assert.Equal(t, 587, cfg.SMTP.Port)
		assert.True(t, cfg.SMTP.TLS)
		assert.NoError(t, cfg.MailConfigured())
	})

	t.Run("explicit smtp without host", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAIL_TRANSPORT", "smtp")
		t.Setenv("GAS_WEBHOOK_URL", "https://script.example.com/exec")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, TransportSMTP, cfg.Transport)
		assert.Error(t, cfg.MailConfigured())
	})
}

func TestLoad_ForceSyncSend(t *testing.T) {
	for _, v := range []string{"1", "true", "YES"} {
		clearEnv(t)
		t.Setenv("FORCE_SYNC_SEND", v)
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.ForceSyncSend, v)
	}
}

func TestLoad_ReportsMalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPLIT_THRESHOLD_BYTES", "lots")
	t.Setenv("WEBHOOK_TIMEOUT", "soon")
	t.Setenv("MAIL_TRANSPORT", "pigeon")
	t.Setenv("CSRF_KEY", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPLIT_THRESHOLD_BYTES")
	assert.Contains(t, err.Error(), "WEBHOOK_TIMEOUT")
	assert.Contains(t, err.Error(), "MAIL_TRANSPORT")
	assert.Contains(t, err.Error(), "CSRF_KEY")
}

func TestLoad_Redis(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 3, cfg.MaxRetry)
}
