package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/promosync/backend/internal/domain/sync"
)

// webhookTimeout bounds one webhook delivery
const webhookTimeout = 10 * time.Second

// WebhookSender delivers messages as JSON POSTs to a configured endpoint
type WebhookSender struct {
	httpClient *http.Client
}

// NewWebhookSender creates a webhook channel sender
func NewWebhookSender(client *http.Client) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: webhookTimeout}
	}
	return &WebhookSender{httpClient: client}
}

// webhookPayload is the body posted to webhook endpoints
type webhookPayload struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// Send delivers the message to the channel's URL with the channel's extra
// headers merged in
func (s *WebhookSender) Send(ctx context.Context, channel *sync.NotificationChannel, message string) error {
	if channel.Settings.URL == "" {
		return fmt.Errorf("webhook: channel %s has no URL", channel.Name)
	}

	body, err := json.Marshal(webhookPayload{
		Channel: channel.Name,
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("webhook: failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, channel.Settings.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range channel.Settings.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Ensure WebhookSender implements Sender
var _ Sender = (*WebhookSender)(nil)
