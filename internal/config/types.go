package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName    string
	Port      string
	Slack     SlackConfig
	Turso     TursoConfig
	Redis     RedisConfig
	ProjectID string
	Rating    RatingConfig
	Roster    RosterConfig
}
type SlackConfig struct {
	Token         string
	ChannelID     string
	SigningSecret string
}
type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

// RedisConfig enables the distributed match lock when URL is set.
type RedisConfig struct {
	URL     string
	LockTTL time.Duration
}

// RatingConfig carries the rating rule constants. See rating.Rules.
type RatingConfig struct {
	Delta      float64 `yaml:"delta"`
	UpperBound float64 `yaml:"upper_bound"`
	Baseline   float64 `yaml:"baseline"`
}

// RosterConfig carries the default team capacity and the close precondition.
type RosterConfig struct {
	TeamCapacity        int `yaml:"team_capacity"`
	MinConfirmedPerTeam int `yaml:"min_confirmed_per_team"`
}
