package poller

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/homework-notifier/internal/domain/homework"
	"github.com/alem-hub/homework-notifier/pkg/logger"
)

// StatusFetcher requests the raw status payload for homeworks changed since fromDate.
// Implemented by the practicum client.
type StatusFetcher interface {
	FetchStatuses(ctx context.Context, fromDate int64) ([]byte, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// POLL CYCLE
// ══════════════════════════════════════════════════════════════════════════════

// CycleConfig contains configuration for a Cycle.
type CycleConfig struct {
	// ChatID is the channel every notification goes to
	ChatID string

	// SkipUnchanged suppresses entries whose status was already delivered
	SkipUnchanged bool
}

// Cycle runs one poll: fetch, validate, translate and notify.
type Cycle struct {
	fetcher  StatusFetcher
	notifier *Notifier
	chatID   string
	tracker  *homework.Tracker
	logger   *logger.Logger
	newID    func() string
}

// NewCycle creates a Cycle.
func NewCycle(fetcher StatusFetcher, notifier *Notifier, config CycleConfig, log *logger.Logger) *Cycle {
	if log == nil {
		log = logger.Default()
	}

	c := &Cycle{
		fetcher:  fetcher,
		notifier: notifier,
		chatID:   config.ChatID,
		logger:   log,
		newID:    uuid.NewString,
	}
	if config.SkipUnchanged {
		c.tracker = homework.NewTracker()
	}
	return c
}

// RunOnce polls once with the given cursor and returns the cursor for the next poll.
//
// Homeworks are checked and notified one by one in payload order. The first
// entry that is malformed, cannot be translated or cannot be delivered ends
// the cycle; entries before it stay delivered. On any error the returned
// cursor equals the input cursor.
func (c *Cycle) RunOnce(ctx context.Context, cursor int64) (int64, error) {
	log := c.logger.With(logger.CycleID(c.newID()), logger.Cursor(cursor))
	start := time.Now()

	log.Info("polling status endpoint")

	body, err := c.fetcher.FetchStatuses(ctx, cursor)
	if err != nil {
		return cursor, err
	}

	raw, err := homework.Decode(body)
	if err != nil {
		return cursor, err
	}
	resp, err := homework.ValidateResponse(raw)
	if err != nil {
		return cursor, err
	}

	if len(resp.Entries) == 0 {
		log.Info("no status changes")
	}

	sent := 0
	for i, entry := range resp.Entries {
		hw, err := homework.ParseEntry(i, entry)
		if err != nil {
			return cursor, err
		}
		text, err := homework.Translate(hw)
		if err != nil {
			return cursor, err
		}

		if c.tracker != nil && !c.tracker.Changed(hw) {
			log.Debug("status already delivered, skipping",
				logger.HomeworkName(hw.Name),
				logger.StatusCode(hw.Status.String()),
			)
			continue
		}

		if err := c.notifier.Notify(ctx, c.chatID, text); err != nil {
			return cursor, err
		}
		if c.tracker != nil {
			c.tracker.Record(hw)
		}
		sent++

		log.Info("status change delivered",
			logger.HomeworkName(hw.Name),
			logger.StatusCode(hw.Status.String()),
		)
	}

	next := c.nextCursor(log, cursor, resp)

	fields := []logger.Field{
		logger.Int("homeworks", len(resp.Entries)),
		logger.Int("sent", sent),
		logger.Int64("next_from_date", next),
		logger.Latency(time.Since(start)),
	}
	if c.tracker != nil {
		fields = append(fields, logger.Int("tracked", c.tracker.Len()))
	}
	log.Info("poll cycle finished", fields...)

	return next, nil
}

// nextCursor never moves the cursor backwards.
func (c *Cycle) nextCursor(log *logger.Logger, cursor int64, resp homework.Response) int64 {
	if resp.CurrentDate == nil {
		return cursor
	}
	if *resp.CurrentDate < cursor {
		log.Warn("server time is behind the cursor, keeping cursor",
			logger.Int64("current_date", *resp.CurrentDate),
		)
		return cursor
	}
	return *resp.CurrentDate
}
