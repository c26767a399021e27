package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/promosync/backend/internal/domain/sync"
	"github.com/promosync/backend/internal/infrastructure/config"
)

// EmailSender delivers messages through a configured SMTP relay. Recipients
// come from the channel; the relay from engine configuration.
type EmailSender struct {
	cfg config.SMTPConfig

	// sendMail is swappable for tests
	sendMail func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailSender creates an email channel sender
func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	return &EmailSender{
		cfg:      cfg,
		sendMail: smtp.SendMail,
	}
}

// Send delivers the message to the channel's recipients
func (s *EmailSender) Send(ctx context.Context, channel *sync.NotificationChannel, message string) error {
	if s.cfg.Host == "" {
		return fmt.Errorf("email: SMTP relay is not configured")
	}
	if len(channel.Settings.Recipients) == 0 {
		return fmt.Errorf("email: channel %s has no recipients", channel.Name)
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(channel.Settings.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subjectLine(message))
	b.WriteString("\r\n")
	b.WriteString(message)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := s.sendMail(addr, auth, s.cfg.From, channel.Settings.Recipients, []byte(b.String())); err != nil {
		return fmt.Errorf("email: delivery failed: %w", err)
	}
	return nil
}

// subjectLine uses the first line of the message as the subject
func subjectLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx > 0 {
		return message[:idx]
	}
	return message
}

// Ensure EmailSender implements Sender
var _ Sender = (*EmailSender)(nil)
