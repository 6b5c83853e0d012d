package processor

import (
	"context"
	"time"

	"github.com/mauv0809/matchledger/internal/notifier"
	"github.com/mauv0809/matchledger/internal/pubsub"
)

// Store records which events have been announced. Pub/Sub delivers at least
// once, so a claim must succeed exactly once per match and event.
type Store interface {
	ClaimNotification(ctx context.Context, matchID string, event pubsub.EventType, at time.Time) (bool, error)
	ReleaseNotification(ctx context.Context, matchID string, event pubsub.EventType) error
	UpdateNotificationTimestamp(ctx context.Context, matchID string, event pubsub.EventType, messageTS string) error
}

// Notifier defines the notification operations required by the processor.
// This is an alias for the main notifier interface for decoupling.
type Notifier interface {
	notifier.Notifier
}
