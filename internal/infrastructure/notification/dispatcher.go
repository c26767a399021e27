package notification

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promosync/backend/internal/domain/sync"
)

// Dispatcher implements the Notifier port: it resolves the configured
// channel, checks its event toggles and hands the rendered message to the
// channel-type's sender. Delivery failures are logged and swallowed; they
// never propagate into the sync run.
type Dispatcher struct {
	channels sync.NotificationChannelRepository
	senders  map[sync.ChannelType]Sender
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher over the given channel repository and
// senders
func NewDispatcher(channels sync.NotificationChannelRepository, senders map[sync.ChannelType]Sender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		channels: channels,
		senders:  senders,
		logger:   logger,
	}
}

// DefaultSenders wires the production sender for each channel type
func DefaultSenders(smtp *EmailSender) map[sync.ChannelType]Sender {
	return map[sync.ChannelType]Sender{
		sync.ChannelTypeTelegram: NewTelegramSender(),
		sync.ChannelTypeWebhook:  NewWebhookSender(nil),
		sync.ChannelTypeEmail:    smtp,
	}
}

// Notify dispatches the event for the execution to the channel, if the
// channel has that event enabled. A nil channelID is a no-op.
func (d *Dispatcher) Notify(ctx context.Context, event sync.NotificationEvent, execution *sync.Execution, channelID *uuid.UUID) {
	if channelID == nil {
		return
	}

	channel, err := d.channels.FindByID(ctx, *channelID)
	if err != nil {
		d.logger.Warn("Notification channel lookup failed",
			zap.String("channel_id", channelID.String()),
			zap.Error(err),
		)
		return
	}

	if !channel.Wants(event) {
		return
	}

	sender, ok := d.senders[channel.Type]
	if !ok {
		d.logger.Warn("No sender registered for channel type",
			zap.String("channel", channel.Name),
			zap.String("type", channel.Type.String()),
		)
		return
	}

	message := RenderMessage(event, execution)
	if err := sender.Send(ctx, channel, message); err != nil {
		d.logger.Warn("Notification delivery failed",
			zap.String("channel", channel.Name),
			zap.String("type", channel.Type.String()),
			zap.String("event", string(event)),
			zap.Error(err),
		)
		return
	}

	d.logger.Debug("Notification delivered",
		zap.String("channel", channel.Name),
		zap.String("event", string(event)),
	)
}

// Ensure Dispatcher implements Notifier
var _ sync.Notifier = (*Dispatcher)(nil)
