// Package main is the entry point of the homework review notifier.
//
// The process polls the homework status endpoint every POLL_INTERVAL and
// posts one Telegram message per review status change. It runs until it
// receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/alem-hub/homework-notifier/config"
	"github.com/alem-hub/homework-notifier/internal/application/poller"
	"github.com/alem-hub/homework-notifier/internal/domain/shared"
	"github.com/alem-hub/homework-notifier/internal/infrastructure/external/practicum"
	"github.com/alem-hub/homework-notifier/internal/infrastructure/external/telegram"
	"github.com/alem-hub/homework-notifier/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log, closeLog, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	log.Info("starting homework notifier",
		logger.String("env", string(cfg.App.Environment)),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. EXTERNAL CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	practicumConfig := practicum.DefaultClientConfig(cfg.Practicum.Token)
	practicumConfig.Endpoint = cfg.Practicum.Endpoint
	practicumConfig.Timeout = cfg.Practicum.RequestTimeout
	practicumConfig.MaxAttempts = cfg.Practicum.MaxAttempts
	practicumConfig.RetryBaseDelay = cfg.Practicum.RetryBaseDelay
	practicumConfig.RetryMaxDelay = cfg.Practicum.RetryMaxDelay
	practicumConfig.CircuitBreakerThreshold = cfg.Practicum.CircuitBreakerThreshold
	practicumConfig.CircuitBreakerTimeout = cfg.Practicum.CircuitBreakerTimeout
	practicumConfig.Logger = log
	statusClient := practicum.NewClient(practicumConfig)

	telegramConfig := telegram.DefaultClientConfig(cfg.Telegram.Token)
	telegramConfig.BaseURL = cfg.Telegram.BaseURL
	telegramConfig.Timeout = cfg.Telegram.RequestTimeout
	telegramConfig.RetryAttempts = cfg.Telegram.MaxAttempts
	telegramConfig.RateLimit = cfg.Telegram.RateLimit
	telegramConfig.Logger = log
	bot := telegram.NewClient(telegramConfig)

	checkBot(ctx, cfg.Credentials(), bot, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. POLL LOOP
	// ─────────────────────────────────────────────────────────────────────────
	supervisorConfig := poller.DefaultSupervisorConfig(cfg.Credentials())
	supervisorConfig.Interval = cfg.Poller.Interval
	supervisorConfig.SkipUnchanged = cfg.Poller.SkipUnchanged
	supervisorConfig.ReportFailures = cfg.Poller.ReportFailures

	supervisor := poller.NewSupervisor(statusClient, bot, supervisorConfig, log)

	if err := supervisor.Run(ctx); err != nil {
		if shared.IsMissingCredentials(err) {
			return fmt.Errorf("program stopped: %w", err)
		}
		return err
	}

	log.Info("homework notifier stopped")
	return nil
}

// tokenChecker is the part of the telegram client used at startup.
type tokenChecker interface {
	GetMe(ctx context.Context) (*telegram.User, error)
}

// checkBot verifies the bot token once all credentials are present. Missing
// credentials are left to the supervisor, which stops before any network call.
// A failed check is only a warning: the poll loop still starts and reports
// delivery errors on its own.
func checkBot(ctx context.Context, creds poller.Credentials, bot tokenChecker, log *logger.Logger) bool {
	if creds.Validate() != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	me, err := bot.GetMe(ctx)
	if err != nil {
		log.Warn("telegram token check failed", logger.Err(err))
		return false
	}
	log.Info("telegram bot authorized", logger.String("username", me.Username))
	return true
}

// setupLogger writes to stdout and, when LOG_FILE is set, appends to that file too.
func setupLogger(cfg *config.Config) (*logger.Logger, func(), error) {
	opts := logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		Format:    logger.Format(cfg.Observability.LogFormat),
		AddCaller: cfg.App.Debug,
	}

	closeFn := func() {}
	if cfg.Observability.LogFile != "" {
		f, err := logger.OpenFile(cfg.Observability.LogFile)
		if err != nil {
			return nil, nil, err
		}
		opts.Output = io.MultiWriter(os.Stdout, f)
		closeFn = func() { _ = f.Close() }
	}

	log := logger.New(opts).With(logger.String("app", cfg.App.Name))
	return log, closeFn, nil
}
