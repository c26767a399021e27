package notification

import (
	"context"

	"github.com/promosync/backend/internal/domain/sync"
)

// Sender delivers one rendered message over a channel's transport. All
// channel types are treated uniformly through this interface.
type Sender interface {
	// Send delivers the message to the channel's destination
	Send(ctx context.Context, channel *sync.NotificationChannel, message string) error
}
