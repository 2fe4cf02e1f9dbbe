package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(apiURL string) Config {
	return Config{
		APIURL:   apiURL,
		BotToken: "test-token",
		Destinations: map[string]string{
			"ops": "-1001234567890",
		},
	}
}

func TestNewSender_Defaults(t *testing.T) {
	sender := NewSender(Config{BotToken: "x"})

	assert.Equal(t, defaultAPIURL, sender.config.APIURL)
	assert.Equal(t, defaultParseMode, sender.config.ParseMode)
	assert.Equal(t, defaultTimeout, sender.config.Timeout)
	assert.NotNil(t, sender.httpClient)
}

func TestNewSender_CustomConfig(t *testing.T) {
	sender := NewSender(Config{
		APIURL:    "https://example.com",
		BotToken:  "x",
		ParseMode: "HTML",
		Timeout:   30 * time.Second,
	})

	assert.Equal(t, "https://example.com", sender.config.APIURL)
	assert.Equal(t, "HTML", sender.config.ParseMode)
	assert.Equal(t, 30*time.Second, sender.config.Timeout)
}

func TestSender_Send_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req sendMessageRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "-1001234567890", req.ChatID)
		assert.Equal(t, "DB down", req.Text)
		assert.Equal(t, "Markdown", req.ParseMode)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(testConfig(server.URL))
	err := sender.Send(context.Background(), "ops", "DB down")

	assert.NoError(t, err)
}

func TestSender_Send_UnknownDestination(t *testing.T) {
	sender := NewSender(testConfig("https://example.invalid"))
	err := sender.Send(context.Background(), "nope", "DB down")

	require.Error(t, err)
	var permErr *PermanentError
	require.ErrorAs(t, err, &permErr)
	assert.Contains(t, permErr.Message, "unknown destination")
	assert.False(t, permErr.IsRetryable())
}

func TestSender_Send_MissingToken(t *testing.T) {
	sender := NewSender(Config{Destinations: map[string]string{"ops": "1"}})
	err := sender.Send(context.Background(), "ops", "DB down")

	require.Error(t, err)
	var permErr *PermanentError
	require.ErrorAs(t, err, &permErr)
	assert.Contains(t, permErr.Message, "bot token")
}

func TestSender_Send_BadRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("can't parse entities"))
	}))
	defer server.Close()

	sender := NewSender(testConfig(server.URL))
	err := sender.Send(context.Background(), "ops", "DB down")

	require.Error(t, err)
	var permErr *PermanentError
	require.ErrorAs(t, err, &permErr)
	assert.Equal(t, http.StatusBadRequest, permErr.Code)
	assert.Contains(t, permErr.Message, "can't parse entities")
	assert.False(t, permErr.IsRetryable())
}

func TestSender_Send_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	sender := NewSender(testConfig(server.URL))
	err := sender.Send(context.Background(), "ops", "DB down")

	require.Error(t, err)
	var permErr *PermanentError
	require.ErrorAs(t, err, &permErr)
	assert.False(t, permErr.IsRetryable())
}

func TestSender_Send_TooManyRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sender := NewSender(testConfig(server.URL))
	err := sender.Send(context.Background(), "ops", "DB down")

	require.Error(t, err)
	var retryErr *RetryableError
	require.ErrorAs(t, err, &retryErr)
	assert.True(t, retryErr.IsRetryable())
}

func TestSender_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewSender(testConfig(server.URL))
	err := sender.Send(context.Background(), "ops", "DB down")

	require.Error(t, err)
	var retryErr *RetryableError
	require.ErrorAs(t, err, &retryErr)
	assert.True(t, retryErr.IsRetryable())
}

func TestSender_Send_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused

	sender := NewSender(testConfig(server.URL))
	err := sender.Send(context.Background(), "ops", "DB down")

	require.Error(t, err)
	var retryErr *RetryableError
	require.ErrorAs(t, err, &retryErr)
	assert.True(t, retryErr.IsRetryable())
}
