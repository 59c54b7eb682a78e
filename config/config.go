package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alem-hub/homework-notifier/internal/application/poller"
	"github.com/alem-hub/homework-notifier/pkg/logger"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration.
type Config struct {
	// Application
	App AppConfig

	// Homework status API
	Practicum PracticumConfig

	// Telegram Bot
	Telegram TelegramConfig

	// Poll loop
	Poller PollerConfig

	// Observability
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
}

// PracticumConfig holds status endpoint settings.
type PracticumConfig struct {
	// Full endpoint URL
	Endpoint string

	// OAuth token (required)
	Token string

	RequestTimeout time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Circuit breaker settings
	CircuitBreakerThreshold int           // failed fetches before opening
	CircuitBreakerTimeout   time.Duration // time before half-open, defaults to the poll interval
}

// TelegramConfig holds Telegram Bot settings.
type TelegramConfig struct {
	// Bot token from @BotFather (required)
	Token string

	// Channel that receives notifications (required)
	ChatID string

	BaseURL        string
	RequestTimeout time.Duration

	// Rate limiting
	RateLimit   float64 // messages per second
	MaxAttempts int
}

// PollerConfig holds poll loop settings.
type PollerConfig struct {
	Interval time.Duration

	// Skip homeworks whose status was already delivered by this process
	SkipUnchanged bool

	// Send "Program failure: ..." reports to the channel
	ReportFailures bool
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string // debug, info, warn, error, critical
	LogFormat string // json, text

	// Optional append-only log file, written in addition to stdout
	LogFile string
}

// Load loads configuration from environment variables.
// Missing credentials are not a load error: they are reported by the poller
// before the first fetch.
func Load() (*Config, error) {
	cfg := &Config{
		App:           loadAppConfig(),
		Practicum:     loadPracticumConfig(),
		Telegram:      loadTelegramConfig(),
		Poller:        loadPollerConfig(),
		Observability: loadObservabilityConfig(),
	}

	// An open breaker half-opens by the next cycle unless overridden.
	if cfg.Practicum.CircuitBreakerTimeout <= 0 {
		cfg.Practicum.CircuitBreakerTimeout = cfg.Poller.Interval
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadAppConfig() AppConfig {
	env := Environment(getEnv("APP_ENV", "development"))

	return AppConfig{
		Name:        getEnv("APP_NAME", "homework-notifier"),
		Environment: env,
		Debug:       env == EnvDevelopment || getEnvBool("APP_DEBUG", false),
	}
}

func loadPracticumConfig() PracticumConfig {
	return PracticumConfig{
		Endpoint:                getEnv("PRACTICUM_ENDPOINT", "https://practicum.yandex.ru/api/user_api/homework_statuses/"),
		Token:                   getEnv("PRACTICUM_TOKEN", ""),
		RequestTimeout:          getEnvDuration("PRACTICUM_REQUEST_TIMEOUT", 30*time.Second),
		MaxAttempts:             getEnvInt("PRACTICUM_MAX_ATTEMPTS", 3),
		RetryBaseDelay:          getEnvDuration("PRACTICUM_RETRY_BASE_DELAY", 2*time.Second),
		RetryMaxDelay:           getEnvDuration("PRACTICUM_RETRY_MAX_DELAY", 30*time.Second),
		CircuitBreakerThreshold: getEnvInt("PRACTICUM_CB_THRESHOLD", 5),
		CircuitBreakerTimeout:   getEnvDuration("PRACTICUM_CB_TIMEOUT", 0),
	}
}

func loadTelegramConfig() TelegramConfig {
	return TelegramConfig{
		Token:          getEnv("TELEGRAM_TOKEN", ""),
		ChatID:         getEnv("TELEGRAM_CHAT_ID", ""),
		BaseURL:        getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
		RequestTimeout: getEnvDuration("TELEGRAM_REQUEST_TIMEOUT", 30*time.Second),
		RateLimit:      getEnvFloat("TELEGRAM_RATE_LIMIT", 1),
		MaxAttempts:    getEnvInt("TELEGRAM_MAX_ATTEMPTS", 3),
	}
}

func loadPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:       getEnvDuration("POLL_INTERVAL", poller.DefaultPollInterval),
		SkipUnchanged:  getEnvBool("POLLER_SKIP_UNCHANGED", false),
		ReportFailures: getEnvBool("POLLER_REPORT_FAILURES", true),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LogFile:   getEnv("LOG_FILE", ""),
	}
}

// Validate checks settings that have a valid range. Credentials are checked
// separately by Credentials().Validate().
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.Practicum.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "PRACTICUM_ENDPOINT must be an absolute URL")
	}
	if u, err := url.Parse(c.Telegram.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "TELEGRAM_BASE_URL must be an absolute URL")
	}

	if c.Practicum.MaxAttempts < 1 {
		errs = append(errs, "PRACTICUM_MAX_ATTEMPTS must be at least 1")
	}
	if c.Telegram.MaxAttempts < 1 {
		errs = append(errs, "TELEGRAM_MAX_ATTEMPTS must be at least 1")
	}
	if c.Practicum.CircuitBreakerThreshold < 1 {
		errs = append(errs, "PRACTICUM_CB_THRESHOLD must be at least 1")
	}
	if c.Practicum.RequestTimeout <= 0 || c.Telegram.RequestTimeout <= 0 {
		errs = append(errs, "request timeouts must be positive")
	}
	if c.Telegram.RateLimit < 0 {
		errs = append(errs, "TELEGRAM_RATE_LIMIT must not be negative")
	}
	if c.Poller.Interval <= 0 {
		errs = append(errs, "POLL_INTERVAL must be positive")
	}

	switch strings.ToLower(c.Observability.LogFormat) {
	case string(logger.FormatJSON), string(logger.FormatText):
	default:
		errs = append(errs, "LOG_FORMAT must be json or text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Credentials returns the three required secrets.
func (c *Config) Credentials() poller.Credentials {
	return poller.Credentials{
		EndpointToken: c.Practicum.Token,
		NotifierToken: c.Telegram.Token,
		ChannelID:     c.Telegram.ChatID,
	}
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

// getEnvDuration accepts Go durations ("10m") and plain seconds ("600").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
