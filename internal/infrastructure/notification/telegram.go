package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/promosync/backend/internal/domain/sync"
)

// defaultTelegramAPIBase is the Telegram Bot API root
const defaultTelegramAPIBase = "https://api.telegram.org"

// telegramTimeout bounds one sendMessage call
const telegramTimeout = 10 * time.Second

// TelegramSender delivers messages through the Telegram Bot API
type TelegramSender struct {
	httpClient *http.Client
	apiBase    string
}

// TelegramSenderOption is a functional option for configuring the sender
type TelegramSenderOption func(*TelegramSender)

// WithTelegramHTTPClient sets the HTTP client used for delivery
func WithTelegramHTTPClient(client *http.Client) TelegramSenderOption {
	return func(s *TelegramSender) {
		s.httpClient = client
	}
}

// WithTelegramAPIBase overrides the Bot API root (tests)
func WithTelegramAPIBase(base string) TelegramSenderOption {
	return func(s *TelegramSender) {
		s.apiBase = base
	}
}

// NewTelegramSender creates a Telegram channel sender
func NewTelegramSender(opts ...TelegramSenderOption) *TelegramSender {
	sender := &TelegramSender{
		httpClient: &http.Client{Timeout: telegramTimeout},
		apiBase:    defaultTelegramAPIBase,
	}
	for _, opt := range opts {
		opt(sender)
	}
	return sender
}

// telegramSendRequest is the sendMessage call body
type telegramSendRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// telegramSendResponse is the Bot API acknowledgement
type telegramSendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers the message to the channel's chat
func (s *TelegramSender) Send(ctx context.Context, channel *sync.NotificationChannel, message string) error {
	if channel.Settings.BotToken == "" || channel.Settings.ChatID == "" {
		return fmt.Errorf("telegram: channel %s has no bot token or chat id", channel.Name)
	}

	body, err := json.Marshal(telegramSendRequest{
		ChatID: channel.Settings.ChatID,
		Text:   message,
	})
	if err != nil {
		return fmt.Errorf("telegram: failed to encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, channel.Settings.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: delivery failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telegram: failed to read response: %w", err)
	}

	var ack telegramSendResponse
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return fmt.Errorf("telegram: malformed response: %w", err)
	}
	if !ack.OK {
		return fmt.Errorf("telegram: API rejected message: %s", ack.Description)
	}

	return nil
}

// Ensure TelegramSender implements Sender
var _ Sender = (*TelegramSender)(nil)
