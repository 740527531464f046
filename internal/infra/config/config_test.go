package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pipeline")
	t.Setenv("AMQP_URL", "amqp://localhost:5672/")
	t.Setenv("API_BASE_URL", "https://api.example.org/")
	t.Setenv("API_TOKEN", "secret")
	t.Setenv("SMTP_HOST", "smtp.example.org")
	t.Setenv("MAIL_SENDER", "alerts@example.org")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.org", cfg.APIBaseURL, "trailing slash should be stripped")
	assert.Equal(t, cfg.APIBaseURL, cfg.UIBaseURL, "UI base falls back to the API base")
	assert.Equal(t, 7, cfg.StatefulResultsDays)
	assert.Equal(t, 3, cfg.TotalRetries)
	assert.Equal(t, 10*time.Minute, cfg.ResendDelay)
	assert.Equal(t, 15*time.Minute, cfg.IndexResendDelay)
	assert.Equal(t, 1, cfg.ArxivLookbackDays)
	assert.Equal(t, 3, cfg.AstroLookbackDays)
	assert.Equal(t, 2000, cfg.MaxRowsDaily)
	assert.Equal(t, 5, cfg.MaxRowsWeekly)
	assert.Equal(t, "notifications", cfg.QueueExchange)
	assert.Equal(t, "process", cfg.QueueName)
	assert.Equal(t, "30 7 * * *", cfg.CronSpecDaily)
	assert.Equal(t, "30 8 * * 1", cfg.CronSpecWeekly)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoadHonorsOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("UI_BASE_URL", "https://ui.example.org/")
	t.Setenv("STATEFUL_RESULTS_DAYS", "14")
	t.Setenv("RESEND_DELAY", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://ui.example.org", cfg.UIBaseURL)
	assert.Equal(t, 14, cfg.StatefulResultsDays)
	assert.Equal(t, 30*time.Minute, cfg.ResendDelay)
}

func TestLoadRequiresCoreSettings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOTAL_RETRIES", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOTAL_RETRIES")
}
