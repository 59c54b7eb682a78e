package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/homework-notifier/pkg/logger"
)

const testToken = "123:secret"

func newTestClient(baseURL string) *Client {
	cfg := DefaultClientConfig(testToken)
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	cfg.RateLimit = 0
	cfg.Logger = logger.Nop()
	return NewClient(cfg)
}

func TestSendText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot"+testToken+"/sendMessage", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(-100123), body["chat_id"])
		assert.Equal(t, "hello", body["text"])

		_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 7, "date": 1, "chat": {"id": -100123, "type": "channel"}}}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).SendText(context.Background(), "-100123", "hello")
	assert.NoError(t, err)
}

func TestSendMessage_ChannelUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "@reviews", body["chat_id"])
		_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 8, "date": 1}}`))
	}))
	defer srv.Close()

	msg, err := newTestClient(srv.URL).SendMessage(context.Background(), SendMessageParams{ChatID: "@reviews", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), msg.MessageID)
}

func TestSendText_RetriesFloodWait(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok": false, "error_code": 429, "description": "Too Many Requests: retry after 0", "parameters": {"retry_after": 0}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 9, "date": 1}}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).SendText(context.Background(), "1", "hello")
	assert.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendText_ChatNotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok": false, "error_code": 400, "description": "Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).SendText(context.Background(), "1", "hello")
	require.Error(t, err)
	assert.True(t, IsChatNotFound(err))
	assert.False(t, IsBotBlocked(err))
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Code)
}

func TestSendText_NetworkErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{Token: testToken, BaseURL: baseURL, Timeout: time.Second, RetryAttempts: 1, Logger: logger.Nop()})

	err := client.SendText(context.Background(), "1", "hello")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")

	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestGetMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot"+testToken+"/getMe", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok": true, "result": {"id": 42, "is_bot": true, "first_name": "Reviews", "username": "review_bot"}}`))
	}))
	defer srv.Close()

	user, err := newTestClient(srv.URL).GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "review_bot", user.Username)
	assert.True(t, user.IsBot)
}

func TestSendText_LogsChatHints(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want string
	}{
		{"chat not found", http.StatusBadRequest, `{"ok": false, "error_code": 400, "description": "Bad Request: chat not found"}`, "check TELEGRAM_CHAT_ID"},
		{"bot blocked", http.StatusForbidden, `{"ok": false, "error_code": 403, "description": "Forbidden: bot is not a member of the channel chat"}`, "bot cannot write to the chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var buf bytes.Buffer
			cfg := DefaultClientConfig(testToken)
			cfg.BaseURL = srv.URL
			cfg.Timeout = 2 * time.Second
			cfg.RateLimit = 0
			cfg.Logger = logger.New(logger.Options{Output: &buf, Level: logger.LevelInfo, Format: logger.FormatText})

			err := NewClient(cfg).SendText(context.Background(), "-100500", "hello")

			require.Error(t, err)
			assert.Contains(t, buf.String(), "ERROR, "+tt.want)
			assert.Contains(t, buf.String(), "chat_id=-100500")
			assert.NotContains(t, buf.String(), testToken)
		})
	}
}
