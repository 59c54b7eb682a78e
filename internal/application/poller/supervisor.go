package poller

import (
	"context"
	"time"

	"github.com/alem-hub/homework-notifier/internal/domain/shared"
	"github.com/alem-hub/homework-notifier/pkg/logger"
)

// DefaultPollInterval is the pause between two poll cycles.
const DefaultPollInterval = 600 * time.Second

// failureReportPrefix starts every failure report sent to the channel.
const failureReportPrefix = "Program failure: "

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// SupervisorConfig contains configuration for the Supervisor.
type SupervisorConfig struct {
	// Credentials are checked before the first poll
	Credentials Credentials

	// Interval is the pause after every cycle, successful or not
	Interval time.Duration

	// ReportFailures sends "Program failure: ..." to the channel on cycle errors
	ReportFailures bool

	// SkipUnchanged suppresses repeated notifications for the same status
	SkipUnchanged bool

	// StartCursor is the first from_date; zero means the current time
	StartCursor int64
}

// DefaultSupervisorConfig returns sensible defaults.
func DefaultSupervisorConfig(creds Credentials) SupervisorConfig {
	return SupervisorConfig{
		Credentials:    creds,
		Interval:       DefaultPollInterval,
		ReportFailures: true,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SUPERVISOR
// ══════════════════════════════════════════════════════════════════════════════

// Supervisor checks credentials once and then runs poll cycles forever,
// waiting a fixed interval after each one.
type Supervisor struct {
	config   SupervisorConfig
	cycle    *Cycle
	notifier *Notifier
	logger   *logger.Logger
	now      func() time.Time

	// lastReport is the last failure report delivered; reset by a successful cycle.
	lastReport string
}

// NewSupervisor wires a Cycle and a Notifier around the given transports.
func NewSupervisor(fetcher StatusFetcher, sender MessageSender, config SupervisorConfig, log *logger.Logger) *Supervisor {
	if log == nil {
		log = logger.Default()
	}
	log = log.With(logger.Component("poller"))

	notifier := NewNotifier(sender, log)

	return &Supervisor{
		config:   config,
		notifier: notifier,
		cycle: NewCycle(fetcher, notifier, CycleConfig{
			ChatID:        config.Credentials.ChannelID,
			SkipUnchanged: config.SkipUnchanged,
		}, log),
		logger: log,
		now:    time.Now,
	}
}

// Run blocks until ctx is cancelled, then returns nil.
// It returns an error wrapping shared.ErrMissingCredentials, without polling,
// when a credential is absent.
func (s *Supervisor) Run(ctx context.Context) error {
	creds := s.config.Credentials
	if err := creds.Validate(); err != nil {
		s.logger.Critical("credential check failed",
			logger.Err(err),
			logger.ErrorKind(shared.Kind(err)),
		)
		return err
	}

	cursor := s.config.StartCursor
	if cursor == 0 {
		cursor = s.now().Unix()
	}

	s.logger.Info("poller started",
		logger.String("endpoint_token", Fingerprint(creds.EndpointToken)),
		logger.String("notifier_token", Fingerprint(creds.NotifierToken)),
		logger.ChatID(creds.ChannelID),
		logger.Cursor(cursor),
		logger.Duration("interval", s.config.Interval),
	)

	for {
		next, err := s.cycle.RunOnce(ctx, cursor)
		if ctx.Err() != nil {
			s.logger.Info("poller stopped")
			return nil
		}

		if err != nil {
			s.handleCycleError(ctx, err)
		} else {
			cursor = next
			s.lastReport = ""
		}

		if !s.wait(ctx) {
			s.logger.Info("poller stopped")
			return nil
		}
	}
}

// handleCycleError logs err and reports it to the channel. Delivery failures
// are only logged: the channel itself is what failed.
func (s *Supervisor) handleCycleError(ctx context.Context, err error) {
	kind := logger.ErrorKind(shared.Kind(err))

	if shared.IsDelivery(err) {
		s.logger.Error("notification not delivered", logger.Err(err), kind)
		return
	}

	s.logger.Critical("poll cycle failed", logger.Err(err), kind)

	if !s.config.ReportFailures {
		return
	}

	report := failureReportPrefix + err.Error()
	if report == s.lastReport {
		s.logger.Debug("failure already reported, not repeating")
		return
	}

	if sendErr := s.notifier.Notify(ctx, s.config.Credentials.ChannelID, report); sendErr != nil {
		s.logger.Error("failure report not delivered", logger.Err(sendErr))
		return
	}
	s.lastReport = report
}

// wait sleeps for the poll interval and reports false if ctx ended first.
func (s *Supervisor) wait(ctx context.Context) bool {
	timer := time.NewTimer(s.config.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
