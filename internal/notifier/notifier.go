package notifier

import (
	"github.com/mauv0809/matchledger/internal/club"
	"github.com/mauv0809/matchledger/internal/pubsub"
)

// Notifier defines a high-level interface for announcing business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// SendMatchFinalized announces a result and the rating changes it caused.
	// It returns the provider's message timestamp.
	SendMatchFinalized(event pubsub.MatchFinalizedEvent, dryRun bool) (string, error)
	// SendMatchCancelled announces a cancelled match.
	SendMatchCancelled(event pubsub.MatchCancelledEvent, dryRun bool) (string, error)
	// SendLeaderboard posts the rating leaderboard to the channel.
	SendLeaderboard(members []club.Member, dryRun bool) error

	// FormatLeaderboardResponse formats the leaderboard for a slash command response.
	FormatLeaderboardResponse(members []club.Member) (any, error)
}
