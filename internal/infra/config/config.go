package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string
	AMQPURL     string

	// Upstream API access
	APIBaseURL string
	APIToken   string
	UIBaseURL  string

	// Outbound mail
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	MailSender string

	// Dedup / retry policy
	StatefulResultsDays int
	TotalRetries        int
	ResendDelay         time.Duration // standard reschedule window
	IndexResendDelay    time.Duration // longer window for index-freshness retries
	ArxivLookbackDays   int
	AstroLookbackDays   int
	MaxRowsDaily        int
	MaxRowsWeekly       int

	// Queue topology
	QueueExchange string
	QueueName     string

	// Batch driver schedule
	CronSpecDaily  string
	CronSpecWeekly string

	OpsListenAddr string
	LogLevel      string
	Environment   string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.AMQPURL = os.Getenv("AMQP_URL")
	if cfg.AMQPURL == "" {
		return nil, fmt.Errorf("AMQP_URL is not set")
	}

	cfg.APIBaseURL = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is not set")
	}

	cfg.APIToken = os.Getenv("API_TOKEN")
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("API_TOKEN is not set")
	}

	cfg.UIBaseURL = strings.TrimRight(os.Getenv("UI_BASE_URL"), "/")
	if cfg.UIBaseURL == "" {
		cfg.UIBaseURL = cfg.APIBaseURL
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is not set")
	}
	cfg.SMTPPort, err = intEnv("SMTP_PORT", 25)
	if err != nil {
		return nil, err
	}
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASS")

	cfg.MailSender = os.Getenv("MAIL_SENDER")
	if cfg.MailSender == "" {
		return nil, fmt.Errorf("MAIL_SENDER is not set")
	}

	cfg.StatefulResultsDays, err = intEnv("STATEFUL_RESULTS_DAYS", 7)
	if err != nil {
		return nil, err
	}
	cfg.TotalRetries, err = intEnv("TOTAL_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	cfg.ResendDelay, err = durationEnv("RESEND_DELAY", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.IndexResendDelay, err = durationEnv("INDEX_RESEND_DELAY", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.ArxivLookbackDays, err = intEnv("ARXIV_LOOKBACK_DAYS", 1)
	if err != nil {
		return nil, err
	}
	cfg.AstroLookbackDays, err = intEnv("ASTRO_LOOKBACK_DAYS", 3)
	if err != nil {
		return nil, err
	}
	cfg.MaxRowsDaily, err = intEnv("MAX_ROWS_DAILY", 2000)
	if err != nil {
		return nil, err
	}
	cfg.MaxRowsWeekly, err = intEnv("MAX_ROWS_WEEKLY", 5)
	if err != nil {
		return nil, err
	}

	cfg.QueueExchange = os.Getenv("QUEUE_EXCHANGE")
	if cfg.QueueExchange == "" {
		cfg.QueueExchange = "notifications"
	}
	cfg.QueueName = os.Getenv("QUEUE_NAME")
	if cfg.QueueName == "" {
		cfg.QueueName = "process"
	}

	cfg.CronSpecDaily = os.Getenv("CRON_SPEC_DAILY")
	if cfg.CronSpecDaily == "" {
		cfg.CronSpecDaily = "30 7 * * *" // Default: 07:30 every day
	}
	cfg.CronSpecWeekly = os.Getenv("CRON_SPEC_WEEKLY")
	if cfg.CronSpecWeekly == "" {
		cfg.CronSpecWeekly = "30 8 * * 1" // Default: 08:30 every Monday
	}

	cfg.OpsListenAddr = os.Getenv("OPS_LISTEN_ADDR")
	if cfg.OpsListenAddr == "" {
		cfg.OpsListenAddr = ":9090"
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
