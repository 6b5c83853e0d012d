package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/matchledger/internal/club"
	"github.com/mauv0809/matchledger/internal/metrics"
	"github.com/mauv0809/matchledger/internal/notifier"
	"github.com/mauv0809/matchledger/internal/pubsub"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-channel", "dry-run-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

func (s *Notifier) SendMatchFinalized(event pubsub.MatchFinalizedEvent, dryRun bool) (string, error) {
	_, ts, err := s.sendMessage(s.formatMatchFinalized(event), dryRun)
	return ts, err
}

func (s *Notifier) SendMatchCancelled(event pubsub.MatchCancelledEvent, dryRun bool) (string, error) {
	_, ts, err := s.sendMessage(s.formatMatchCancelled(event), dryRun)
	return ts, err
}

func (s *Notifier) SendLeaderboard(members []club.Member, dryRun bool) error {
	_, _, err := s.sendMessage(s.formatLeaderboard(members), dryRun)
	return err
}

// FormatLeaderboardResponse formats a leaderboard message for a slash command response.
func (s *Notifier) FormatLeaderboardResponse(members []club.Member) (any, error) {
	return s.formatLeaderboard(members), nil
}

// formatMatchFinalized creates the result announcement using Block Kit.
func (s *Notifier) formatMatchFinalized(event pubsub.MatchFinalizedEvent) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "⚽ Match finished! ⚽", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", matchLabel(event.Location, event.ScheduledAt), false, false), nil, nil))

	resultText := fmt.Sprintf("Result: %s %d - %d %s", event.TeamAName, event.TeamAGoals, event.TeamBGoals, event.TeamBName)
	switch {
	case event.TeamAGoals > event.TeamBGoals:
		resultText += fmt.Sprintf("\n%s won! 🏆", event.TeamAName)
	case event.TeamBGoals > event.TeamAGoals:
		resultText += fmt.Sprintf("\n%s won! 🏆", event.TeamBName)
	default:
		resultText += "\nIt's a draw."
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", resultText, true, false), nil, nil))

	if len(event.Changes) == 0 {
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", "No rating changes.", false, false)))
		return slack.NewBlockMessage(blocks...)
	}

	var lines []string
	for _, c := range event.Changes {
		name := c.UserName
		if name == "" {
			name = c.UserID
		}
		lines = append(lines, fmt.Sprintf("• %s: %.1f → %.1f (%+.1f)", name, c.Before, c.After, c.After-c.Before))
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", "*Rating changes*\n"+strings.Join(lines, "\n"), false, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatMatchCancelled creates the cancellation announcement using Block Kit.
func (s *Notifier) formatMatchCancelled(event pubsub.MatchCancelledEvent) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🚫 Match cancelled", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := matchLabel(event.Location, event.ScheduledAt) + "\nRatings are unaffected."
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, false, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatLeaderboard creates a Slack message to display the rating leaderboard.
func (s *Notifier) formatLeaderboard(members []club.Member) slack.Message {
	blocks := make([]slack.Block, 0)

	// Header
	headerText := slack.NewTextBlockObject("plain_text", "🏆 Rating Leaderboard 🏆", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if len(members) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No ratings yet. Go play some matches!", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	for i, m := range members {
		rank := i + 1
		var medal string
		switch rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}

		var rating float64
		if m.Rating != nil {
			rating = *m.Rating
		}
		playerText := fmt.Sprintf("%d. %s %s\n> *Rating*: %.2f", rank, medal, m.Name, rating)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", playerText, false, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

func matchLabel(location string, scheduledAt int64) string {
	loc, err := time.LoadLocation("Europe/Copenhagen")
	var timeStr string
	if err == nil {
		timeStr = time.UnixMilli(scheduledAt).In(loc).Format("Monday 02 Jan, 15:04")
	} else {
		timeStr = time.UnixMilli(scheduledAt).UTC().Format("Monday 02 Jan, 15:04")
	}
	if location == "" {
		return timeStr
	}
	return fmt.Sprintf("%s at %s", location, timeStr)
}
