// Package practicum implements the homework status API client.
// It fetches the raw status payload for homeworks updated since a timestamp
// and classifies failures into transport and endpoint-unavailable errors.
package practicum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alem-hub/homework-notifier/internal/domain/shared"
	"github.com/alem-hub/homework-notifier/pkg/circuitbreaker"
	"github.com/alem-hub/homework-notifier/pkg/logger"
	"github.com/alem-hub/homework-notifier/pkg/retry"
)

const domainName = "practicum"

// DefaultEndpoint is the production homework status endpoint.
const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

// maxBodySize bounds how much of a response is read.
const maxBodySize = 4 << 20

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the status API client.
type ClientConfig struct {
	// Endpoint is the full status endpoint URL
	Endpoint string

	// Token is the OAuth token sent in the Authorization header
	Token string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// MaxAttempts is the number of attempts per fetch (1 disables retries)
	MaxAttempts int

	// RetryBaseDelay is the delay before the first retry
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps the delay between retries
	RetryMaxDelay time.Duration

	// CircuitBreakerThreshold is the number of failed fetches before the circuit opens
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long fetches fail fast once the circuit is open
	CircuitBreakerTimeout time.Duration

	// Logger for structured logging
	Logger *logger.Logger

	// HTTPClient overrides the default client (tests)
	HTTPClient *http.Client
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(token string) ClientConfig {
	return ClientConfig{
		Endpoint:                DefaultEndpoint,
		Token:                   token,
		Timeout:                 30 * time.Second,
		MaxAttempts:             3,
		RetryBaseDelay:          2 * time.Second,
		RetryMaxDelay:           30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   10 * time.Minute,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the homework status API client.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *logger.Logger
	retrier        *retry.Retrier
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewClient creates a new status API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	log := config.Logger.With(logger.Component("practicum"))

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     log,
		retrier: retry.StatusAPIRetrier(config.MaxAttempts, config.RetryBaseDelay, config.RetryMaxDelay,
			retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
				log.Warn("status request failed, retrying",
					logger.Int("attempt", attempt),
					logger.Duration("delay", delay),
					logger.Err(err),
				)
			}),
		),
		circuitBreaker: circuitbreaker.StatusAPIBreaker(
			config.CircuitBreakerThreshold,
			config.CircuitBreakerTimeout,
			shared.IsTransient,
			func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			},
		),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// FetchStatuses requests homeworks updated since fromDate (unix seconds) and
// returns the undecoded response body.
//
// Errors wrap shared.ErrTransport when the endpoint could not be reached and
// shared.ErrEndpointUnavailable when it answered with a non-200 status or the
// circuit breaker is open.
func (c *Client) FetchStatuses(ctx context.Context, fromDate int64) ([]byte, error) {
	var body []byte

	err := c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		body, err = retry.DoWithData(ctx, c.retrier, func(ctx context.Context) ([]byte, error) {
			return c.doSingleRequest(ctx, fromDate)
		})
		return err
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return nil, shared.WrapError(domainName, "Fetch", shared.ErrEndpointUnavailable, "status endpoint disabled after repeated failures", err)
		}
		return nil, err
	}

	return body, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doSingleRequest performs one GET and marks the outcome for the retrier.
func (c *Client) doSingleRequest(ctx context.Context, fromDate int64) ([]byte, error) {
	reqURL, err := c.requestURL(fromDate)
	if err != nil {
		return nil, retry.Permanent(shared.WrapError(domainName, "Fetch", shared.ErrTransport, "invalid endpoint URL", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, retry.Permanent(shared.WrapError(domainName, "Fetch", shared.ErrTransport, "create request", err))
	}
	req.Header.Set("Authorization", "OAuth "+c.config.Token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("status api request", logger.Cursor(fromDate))
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := shared.WrapError(domainName, "Fetch", shared.ErrTransport, "status endpoint unreachable", err)
		if ctx.Err() != nil {
			return nil, retry.Permanent(wrapped)
		}
		return nil, retry.Retryable(wrapped)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, retry.Retryable(shared.WrapError(domainName, "Fetch", shared.ErrTransport, "read response", err))
	}

	c.logger.Debug("status api response",
		logger.Int("http_status", resp.StatusCode),
		logger.Latency(time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
		wrapped := shared.WrapError(domainName, "Fetch", shared.ErrEndpointUnavailable, "status endpoint answered with an error", statusErr)
		if isRetryableStatus(resp.StatusCode) {
			return nil, retry.Retryable(wrapped)
		}
		return nil, retry.Permanent(wrapped)
	}

	return body, nil
}

func (c *Client) requestURL(fromDate int64) (string, error) {
	u, err := url.Parse(c.config.Endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(fromDate, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// StatusError carries a non-200 answer of the status endpoint.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
