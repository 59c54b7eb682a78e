// Package telegram implements the part of the Telegram Bot API the notifier
// needs: sending plain text messages to a chat and checking the bot token.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alem-hub/homework-notifier/pkg/logger"
	"github.com/alem-hub/homework-notifier/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Telegram client.
type ClientConfig struct {
	// Token is the Telegram Bot API token
	Token string

	// BaseURL is the Telegram Bot API base URL (default: https://api.telegram.org)
	BaseURL string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RetryAttempts is the number of attempts per API call
	RetryAttempts int

	// RateLimit is the maximum number of API calls per second (0 = unlimited)
	RateLimit float64

	// Logger for structured logging
	Logger *logger.Logger

	// HTTPClient overrides the default client (tests)
	HTTPClient *http.Client
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(token string) ClientConfig {
	return ClientConfig{
		Token:         token,
		BaseURL:       "https://api.telegram.org",
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RateLimit:     1,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TELEGRAM API TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Message represents a sent Telegram message.
type Message struct {
	MessageID int64  `json:"message_id"`
	Date      int64  `json:"date"`
	Chat      *Chat  `json:"chat,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Chat represents a Telegram chat.
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// User represents a Telegram user or bot.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// APIResponse represents a Telegram API response.
type APIResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// ResponseParameters contains additional error parameters.
type ResponseParameters struct {
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
	RetryAfter      int   `json:"retry_after,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Telegram Bot API client.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *logger.Logger
	limiter    *rate.Limiter
	retrier    *retry.Retrier
}

// NewClient creates a new Telegram client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.telegram.org"
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	log := config.Logger.With(logger.Component("telegram"))

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     log,
		limiter:    rate.NewLimiter(limit, 1),
		retrier: retry.TelegramRetrier(config.RetryAttempts,
			retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
				log.Warn("telegram api call failed, retrying",
					logger.Int("attempt", attempt),
					logger.Duration("delay", delay),
					logger.Err(err),
				)
			}),
		),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SENDING MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// SendMessageParams contains parameters for sending a message.
type SendMessageParams struct {
	ChatID              string // numeric id or @channelusername
	Text                string
	DisableNotification bool
	DisableWebPreview   bool
}

// SendMessage sends a text message.
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	body := map[string]interface{}{
		"chat_id": chatIDValue(params.ChatID),
		"text":    params.Text,
	}
	if params.DisableNotification {
		body["disable_notification"] = true
	}
	if params.DisableWebPreview {
		body["disable_web_page_preview"] = true
	}

	var message Message
	if err := c.callAPI(ctx, "sendMessage", body, &message); err != nil {
		switch {
		case IsChatNotFound(err):
			c.logger.Error("chat not found, check TELEGRAM_CHAT_ID", logger.ChatID(params.ChatID))
		case IsBotBlocked(err):
			c.logger.Error("bot cannot write to the chat, add it to the channel as admin", logger.ChatID(params.ChatID))
		}
		return nil, fmt.Errorf("send message: %w", err)
	}

	return &message, nil
}

// SendText sends plain text to chatID. It satisfies the poller's MessageSender.
func (c *Client) SendText(ctx context.Context, chatID string, text string) error {
	_, err := c.SendMessage(ctx, SendMessageParams{
		ChatID:            chatID,
		Text:              text,
		DisableWebPreview: true,
	})
	return err
}

// GetMe returns the bot behind the configured token.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.callAPI(ctx, "getMe", nil, &user); err != nil {
		return nil, fmt.Errorf("get me: %w", err)
	}
	return &user, nil
}

// chatIDValue sends numeric ids as numbers and channel usernames as strings.
func chatIDValue(chatID string) interface{} {
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return id
	}
	return chatID
}

// ══════════════════════════════════════════════════════════════════════════════
// API CALL HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// callAPI makes a call to the Telegram Bot API with pacing and retries.
func (c *Client) callAPI(ctx context.Context, method string, body map[string]interface{}, result interface{}) error {
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		err := c.doAPICall(ctx, method, body, result)
		if err == nil {
			return nil
		}
		if !c.isRetryableError(ctx, err) {
			return retry.Permanent(err)
		}

		// Telegram tells us how long to back off when flooding.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			timer := time.NewTimer(time.Duration(apiErr.RetryAfter) * time.Second)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return retry.Permanent(err)
			case <-timer.C:
			}
		}
		return retry.Retryable(err)
	})
}

// doAPICall performs a single API call.
func (c *Client) doAPICall(ctx context.Context, method string, body map[string]interface{}, result interface{}) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.config.BaseURL, c.config.Token, method)

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("telegram api call", logger.Operation(method))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL embeds the token; keep it out of error messages.
		var urlErr interface{ Unwrap() error }
		if errors.As(err, &urlErr) && urlErr.Unwrap() != nil {
			err = urlErr.Unwrap()
		}
		return &NetworkError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: method, Err: fmt.Errorf("read response: %w", err)}
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return &APIError{Code: resp.StatusCode, Description: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if !apiResp.OK {
		apiErr := &APIError{
			Code:        apiResp.ErrorCode,
			Description: apiResp.Description,
		}
		if apiResp.Parameters != nil {
			apiErr.RetryAfter = apiResp.Parameters.RetryAfter
		}
		return apiErr
	}

	if result != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// APIError represents a Telegram API error.
type APIError struct {
	Code        int
	Description string
	RetryAfter  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// NetworkError means the Bot API could not be reached.
type NetworkError struct {
	Method string
	Err    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("telegram %s: %v", e.Method, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// isRetryableError checks if an error is retryable.
func (c *Client) isRetryableError(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsChatNotFound checks if the error indicates the chat does not exist.
func IsChatNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(apiErr.Description), "chat not found")
}

// IsBotBlocked checks if the error indicates the bot cannot write to the chat.
func IsBotBlocked(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden
}
