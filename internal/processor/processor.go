package processor

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/clock"
	"github.com/mauv0809/matchledger/internal/pubsub"
)

// New creates a new Processor.
func New(store Store, notifier Notifier, pubsub pubsub.PubSubClient, c clock.Clock) *Processor {
	return &Processor{
		store:    store,
		pubsub:   pubsub,
		notifier: notifier,
		clock:    c,
	}
}

// HandleEvent decodes an encoded event and announces it. An error means the
// event was not announced and should be redelivered.
func (p *Processor) HandleEvent(ctx context.Context, topic pubsub.EventType, data []byte, dryRun bool) error {
	switch topic {
	case pubsub.EventMatchFinalized:
		var event pubsub.MatchFinalizedEvent
		if err := p.pubsub.ProcessMessage(data, &event); err != nil {
			return apperr.New(apperr.ErrValidation, "malformed %s event: %v", topic, err)
		}
		return p.ProcessMatchFinalized(ctx, event, dryRun)
	case pubsub.EventMatchCancelled:
		var event pubsub.MatchCancelledEvent
		if err := p.pubsub.ProcessMessage(data, &event); err != nil {
			return apperr.New(apperr.ErrValidation, "malformed %s event: %v", topic, err)
		}
		return p.ProcessMatchCancelled(ctx, event, dryRun)
	default:
		return apperr.New(apperr.ErrValidation, "unknown event %q", topic)
	}
}

// ProcessMatchFinalized announces a result once.
func (p *Processor) ProcessMatchFinalized(ctx context.Context, event pubsub.MatchFinalizedEvent, dryRun bool) error {
	return p.announce(ctx, event.MatchID, pubsub.EventMatchFinalized, dryRun, func() (string, error) {
		return p.notifier.SendMatchFinalized(event, dryRun)
	})
}

// ProcessMatchCancelled announces a cancellation once.
func (p *Processor) ProcessMatchCancelled(ctx context.Context, event pubsub.MatchCancelledEvent, dryRun bool) error {
	return p.announce(ctx, event.MatchID, pubsub.EventMatchCancelled, dryRun, func() (string, error) {
		return p.notifier.SendMatchCancelled(event, dryRun)
	})
}

func (p *Processor) announce(ctx context.Context, matchID string, event pubsub.EventType, dryRun bool, send func() (string, error)) error {
	if matchID == "" {
		return apperr.New(apperr.ErrValidation, "%s event without match id", event)
	}
	if dryRun {
		log.Info("[Dry Run] Announcing without recording", "matchID", matchID, "event", event)
		_, err := send()
		return err
	}

	claimed, err := p.store.ClaimNotification(ctx, matchID, event, p.clock.Now())
	if err != nil {
		return err
	}
	if !claimed {
		log.Info("Event already announced, skipping", "matchID", matchID, "event", event)
		return nil
	}

	ts, err := send()
	if err != nil {
		log.Error("Failed to announce event", "matchID", matchID, "event", event, "error", err)
		if releaseErr := p.store.ReleaseNotification(ctx, matchID, event); releaseErr != nil {
			log.Error("Failed to release notification claim", "matchID", matchID, "event", event, "error", releaseErr)
		}
		return err
	}

	if err := p.store.UpdateNotificationTimestamp(ctx, matchID, event, ts); err != nil {
		log.Warn("Failed to store message timestamp", "matchID", matchID, "error", err)
	}
	log.Info("Event announced", "matchID", matchID, "event", event, "ts", ts)
	return nil
}
