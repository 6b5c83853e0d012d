package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType represents the type of event/message sent via pubsub. It doubles
// as the topic name.
type EventType string

const (
	EventMatchFinalized EventType = "match-finalized"
	EventMatchCancelled EventType = "match-cancelled"
)

// RatingChange is one player's applied rating movement.
type RatingChange struct {
	UserID   string  `msgpack:"user_id" json:"userId"`
	UserName string  `msgpack:"user_name" json:"userName"`
	Side     string  `msgpack:"side" json:"side"`
	Before   float64 `msgpack:"before" json:"before"`
	After    float64 `msgpack:"after" json:"after"`
}

// MatchFinalizedEvent is published after a finalize commits.
type MatchFinalizedEvent struct {
	MatchID     string         `msgpack:"match_id" json:"matchId"`
	OrganizerID string         `msgpack:"organizer_id" json:"organizerId"`
	Location    string         `msgpack:"location" json:"location"`
	ScheduledAt int64          `msgpack:"scheduled_at" json:"scheduledAt"`
	TeamAName   string         `msgpack:"team_a_name" json:"teamAName"`
	TeamBName   string         `msgpack:"team_b_name" json:"teamBName"`
	TeamAGoals  int            `msgpack:"team_a_goals" json:"teamAGoals"`
	TeamBGoals  int            `msgpack:"team_b_goals" json:"teamBGoals"`
	Changes     []RatingChange `msgpack:"changes" json:"changes"`
	FinalizedAt int64          `msgpack:"finalized_at" json:"finalizedAt"`
}

// MatchCancelledEvent is published after a cancel commits.
type MatchCancelledEvent struct {
	MatchID     string `msgpack:"match_id" json:"matchId"`
	OrganizerID string `msgpack:"organizer_id" json:"organizerId"`
	ActorID     string `msgpack:"actor_id" json:"actorId"`
	Location    string `msgpack:"location" json:"location"`
	ScheduledAt int64  `msgpack:"scheduled_at" json:"scheduledAt"`
	CancelledAt int64  `msgpack:"cancelled_at" json:"cancelledAt"`
}
