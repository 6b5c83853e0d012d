package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	DefaultRatingDelta         = 0.5
	DefaultRatingUpperBound    = 10.0
	DefaultRatingBaseline      = 5.0
	DefaultTeamCapacity        = 5
	DefaultMinConfirmedPerTeam = 1
	DefaultLockTTL             = 30 * time.Second
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}

	cfg := Config{
		DBName: getEnv("DB_NAME"),
		Port:   getEnv("PORT"),
		Slack: SlackConfig{
			Token:         os.Getenv("SLACK_BOT_TOKEN"),
			ChannelID:     os.Getenv("SLACK_CHANNEL_ID"),
			SigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		},
		Turso: TursoConfig{
			PrimaryURL: os.Getenv("TURSO_PRIMARY_URL"),
			AuthToken:  os.Getenv("TURSO_AUTH_TOKEN"),
		},
		Redis: RedisConfig{
			URL:     os.Getenv("REDIS_URL"),
			LockTTL: DefaultLockTTL,
		},
		ProjectID: os.Getenv("GCP_PROJECT"),
		Rating:    DefaultRating(),
		Roster:    DefaultRoster(),
	}

	if path := os.Getenv("RATING_RULES_FILE"); path != "" {
		rules, err := LoadRules(path)
		if err != nil {
			log.Fatalf("Failed to load rating rules from %s: %s", path, err)
		}
		cfg.Rating = rules.Rating
		cfg.Roster = rules.Roster
	}

	// Individual env vars win over the rules file.
	if err := applyOverrides(&cfg, os.LookupEnv); err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}
	return cfg
}

// DefaultRating returns the baseline rating rules.
func DefaultRating() RatingConfig {
	return RatingConfig{
		Delta:      DefaultRatingDelta,
		UpperBound: DefaultRatingUpperBound,
		Baseline:   DefaultRatingBaseline,
	}
}

// DefaultRoster returns the default roster rules.
func DefaultRoster() RosterConfig {
	return RosterConfig{
		TeamCapacity:        DefaultTeamCapacity,
		MinConfirmedPerTeam: DefaultMinConfirmedPerTeam,
	}
}

type lookupFunc func(key string) (string, bool)

func applyOverrides(cfg *Config, lookup lookupFunc) error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"RATING_DELTA", &cfg.Rating.Delta},
		{"RATING_UPPER_BOUND", &cfg.Rating.UpperBound},
		{"RATING_BASELINE", &cfg.Rating.Baseline},
	}
	for _, f := range floats {
		raw, ok := lookup(f.key)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"ROSTER_TEAM_CAPACITY", &cfg.Roster.TeamCapacity},
		{"ROSTER_MIN_CONFIRMED", &cfg.Roster.MinConfirmedPerTeam},
	}
	for _, i := range ints {
		raw, ok := lookup(i.key)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", i.key, err)
		}
		*i.dst = v
	}

	if raw, ok := lookup("REDIS_LOCK_TTL"); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("REDIS_LOCK_TTL: %w", err)
		}
		cfg.Redis.LockTTL = d
	}
	return nil
}

// Validate checks the rule constants for internal consistency.
func (c Config) Validate() error {
	if c.Rating.Delta < 0 {
		return fmt.Errorf("rating delta must not be negative, got %v", c.Rating.Delta)
	}
	if c.Rating.UpperBound <= 0 {
		return fmt.Errorf("rating upper bound must be positive, got %v", c.Rating.UpperBound)
	}
	if c.Rating.Baseline < 0 || c.Rating.Baseline > c.Rating.UpperBound {
		return fmt.Errorf("rating baseline %v outside [0, %v]", c.Rating.Baseline, c.Rating.UpperBound)
	}
	if c.Roster.TeamCapacity < 1 {
		return fmt.Errorf("team capacity must be at least 1, got %d", c.Roster.TeamCapacity)
	}
	if c.Roster.MinConfirmedPerTeam < 0 || c.Roster.MinConfirmedPerTeam > c.Roster.TeamCapacity {
		return fmt.Errorf("min confirmed per team %d outside [0, %d]", c.Roster.MinConfirmedPerTeam, c.Roster.TeamCapacity)
	}
	return nil
}
