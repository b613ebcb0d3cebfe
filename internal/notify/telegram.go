// Package notify delivers attendance notifications to Telegram through a
// background queue.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTelegramURL is the public Bot API endpoint.
const DefaultTelegramURL = "https://api.telegram.org"

// Sender delivers a text message.
type Sender interface {
	SendText(ctx context.Context, text string) error
}

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	BaseURL string
	Token   string
	ChatID  string
	HTTP    *http.Client
	Timeout time.Duration
}

// NewTelegram creates a client with a bounded per-message timeout.
func NewTelegram(baseURL, token, chatID string, timeout time.Duration) *Telegram {
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Telegram{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		ChatID:  chatID,
		Timeout: timeout,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// SendText posts text to the configured chat.
func (t *Telegram) SendText(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	body, _ := json.Marshal(map[string]string{"chat_id": t.ChatID, "text": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/bot"+t.Token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.HTTP.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of logs.
		return fmt.Errorf("telegram request failed: %v", redact(err, t.Token))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("telegram rejected message: %s", out.Description)
	}
	return nil
}

func redact(err error, token string) string {
	if token == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), token, "***")
}

// LogSender writes messages to the log instead of sending them. It stands in
// when no bot token is configured.
type LogSender struct {
	Log *logrus.Logger
}

// SendText logs text.
func (s LogSender) SendText(_ context.Context, text string) error {
	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{"module": "notify", "scope": "log-sender"}).Info(text)
	}
	return nil
}

// NewSender returns a Telegram sender, or a LogSender when the bot token or
// chat id is missing.
func NewSender(baseURL, token, chatID string, timeout time.Duration, log *logrus.Logger) Sender {
	if token == "" || chatID == "" {
		if log != nil {
			log.WithFields(logrus.Fields{"module": "notify"}).Warn("telegram not configured, notifications are only logged")
		}
		return LogSender{Log: log}
	}
	return NewTelegram(baseURL, token, chatID, timeout)
}
