package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// NotificationChannel Enums
// ---------------------------------------------------------------------------

// ChannelType identifies the transport a notification channel delivers over.
type ChannelType string

const (
	// ChannelTypeTelegram delivers through the Telegram bot API
	ChannelTypeTelegram ChannelType = "TELEGRAM"
	// ChannelTypeWebhook delivers by POSTing JSON to a URL
	ChannelTypeWebhook ChannelType = "WEBHOOK"
	// ChannelTypeEmail delivers over SMTP
	ChannelTypeEmail ChannelType = "EMAIL"
)

// IsValid checks if the channel type is valid
func (t ChannelType) IsValid() bool {
	switch t {
	case ChannelTypeTelegram, ChannelTypeWebhook, ChannelTypeEmail:
		return true
	}
	return false
}

// String returns the string representation
func (t ChannelType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// NotificationChannel Entity
// ---------------------------------------------------------------------------

// ChannelSettings holds transport-specific delivery settings. Only the
// fields for the channel's type are consulted.
type ChannelSettings struct {
	// BotToken is the Telegram bot token
	BotToken string `json:"bot_token,omitempty"`
	// ChatID is the Telegram chat to post to
	ChatID string `json:"chat_id,omitempty"`
	// URL is the webhook endpoint
	URL string `json:"url,omitempty"`
	// Headers are extra headers sent with webhook requests
	Headers map[string]string `json:"headers,omitempty"`
	// Recipients are the email addresses to deliver to
	Recipients []string `json:"recipients,omitempty"`
}

// NotificationChannel is a configured destination for run lifecycle messages.
type NotificationChannel struct {
	// ID is the channel's unique identifier
	ID uuid.UUID
	// Name is a human-readable label
	Name string
	// Type selects the delivery transport
	Type ChannelType
	// Settings carries transport-specific configuration
	Settings ChannelSettings
	// OnStart enables messages when a run begins
	OnStart bool
	// OnSuccess enables messages when a run finishes SUCCESS
	OnSuccess bool
	// OnFailure enables messages when a run finishes PARTIAL, FAILED or CANCELLED
	OnFailure bool
	// Enabled gates the channel as a whole
	Enabled bool
	// CreatedAt is when the channel was created
	CreatedAt time.Time
	// UpdatedAt is when the channel was last modified
	UpdatedAt time.Time
}

// Wants reports whether the channel should receive the given event.
func (c *NotificationChannel) Wants(event NotificationEvent) bool {
	if !c.Enabled {
		return false
	}
	switch event {
	case NotificationEventStart:
		return c.OnStart
	case NotificationEventSuccess:
		return c.OnSuccess
	case NotificationEventFailure:
		return c.OnFailure
	}
	return false
}

// Validate checks the channel's settings against its type.
func (c *NotificationChannel) Validate() error {
	if !c.Type.IsValid() {
		return &ConfigurationError{Field: "type", Reason: "unknown channel type " + string(c.Type)}
	}
	switch c.Type {
	case ChannelTypeTelegram:
		if c.Settings.BotToken == "" || c.Settings.ChatID == "" {
			return &ConfigurationError{Field: "settings", Reason: "telegram channels require bot_token and chat_id"}
		}
	case ChannelTypeWebhook:
		if c.Settings.URL == "" {
			return &ConfigurationError{Field: "settings", Reason: "webhook channels require url"}
		}
	case ChannelTypeEmail:
		if len(c.Settings.Recipients) == 0 {
			return &ConfigurationError{Field: "settings", Reason: "email channels require at least one recipient"}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Repository Interface
// ---------------------------------------------------------------------------

// NotificationChannelRepository abstracts notification channel persistence.
type NotificationChannelRepository interface {
	// FindByID finds a channel by its identifier
	FindByID(ctx context.Context, id uuid.UUID) (*NotificationChannel, error)
}
