// Package telegram delivers alert payloads via the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultAPIURL    = "https://api.telegram.org"
	defaultTimeout   = 10 * time.Second
	defaultParseMode = "Markdown"
)

// Config holds Telegram sender configuration. Destinations maps logical
// destination names (as used by producers) to chat IDs.
type Config struct {
	APIURL       string
	BotToken     string
	ParseMode    string
	Timeout      time.Duration
	Destinations map[string]string
}

// Sender implements alert delivery to Telegram chats.
type Sender struct {
	config     Config
	httpClient *http.Client
}

// NewSender creates a new Telegram sender.
func NewSender(config Config) *Sender {
	if config.APIURL == "" {
		config.APIURL = defaultAPIURL
	}
	if config.ParseMode == "" {
		config.ParseMode = defaultParseMode
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Sender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Send posts the payload to the chat behind the named destination. An
// unknown destination or missing bot token is a configuration problem and is
// reported as a permanent error; transport failures and server-side errors
// are retryable.
func (s *Sender) Send(ctx context.Context, destination, payload string) error {
	if s.config.BotToken == "" {
		return &PermanentError{Message: "bot token is not configured"}
	}

	chatID, ok := s.config.Destinations[destination]
	if !ok {
		return &PermanentError{Message: fmt.Sprintf("unknown destination %q", destination)}
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      payload,
		ParseMode: s.config.ParseMode,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.config.APIURL, s.config.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &RetryableError{Message: fmt.Sprintf("send request: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	return s.handleResponse(resp, destination)
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (s *Sender) handleResponse(resp *http.Response, destination string) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		slog.Debug("telegram message sent", "destination", destination)
		return nil

	case http.StatusBadRequest:
		return &PermanentError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("bad request: %s", string(body)),
		}

	case http.StatusUnauthorized, http.StatusForbidden:
		return &PermanentError{
			Code:    resp.StatusCode,
			Message: "invalid or revoked bot token",
		}

	case http.StatusNotFound:
		return &PermanentError{
			Code:    resp.StatusCode,
			Message: "chat not found",
		}

	case http.StatusTooManyRequests:
		return &RetryableError{
			Code:    resp.StatusCode,
			Message: "rate limited by telegram",
		}

	default:
		if resp.StatusCode >= 500 {
			return &RetryableError{
				Code:    resp.StatusCode,
				Message: fmt.Sprintf("server error: %s", string(body)),
			}
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// PermanentError indicates a permanent error that should not be retried.
type PermanentError struct {
	Code    int
	Message string
}

func (e *PermanentError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("telegram error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("telegram error: %s", e.Message)
}

// IsRetryable returns false as permanent errors should not be retried.
func (e *PermanentError) IsRetryable() bool { return false }

// RetryableError indicates a temporary error that can be retried.
type RetryableError struct {
	Code    int
	Message string
}

func (e *RetryableError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("telegram error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("telegram error: %s", e.Message)
}

// IsRetryable returns true as these errors are temporary.
func (e *RetryableError) IsRetryable() bool { return true }
