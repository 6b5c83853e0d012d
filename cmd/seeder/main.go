package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mauv0809/matchledger/internal/clock"
	"github.com/mauv0809/matchledger/internal/club"
	"github.com/mauv0809/matchledger/internal/config"
	"github.com/mauv0809/matchledger/internal/database"
	"github.com/mauv0809/matchledger/internal/lock"
	"github.com/mauv0809/matchledger/internal/match"
	"github.com/mauv0809/matchledger/internal/metrics"
	"github.com/mauv0809/matchledger/internal/rating"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// seedMember is one entry of the members file. A nil Rating leaves the
// member unrated.
type seedMember struct {
	ID     string    `yaml:"id"`
	Name   string    `yaml:"name"`
	Role   club.Role `yaml:"role"`
	Rating *float64  `yaml:"rating"`
}

func loadMembers(path string) ([]seedMember, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading members file: %w", err)
	}
	var members []seedMember
	if err := yaml.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("error parsing members file: %w", err)
	}
	return members, nil
}

// dummyMembers returns an organizer plus count players with random ratings.
func dummyMembers(count int, upperBound float64) []seedMember {
	members := []seedMember{{ID: "organizer-1", Name: "Seeder Organizer", Role: club.RoleOrganizer}}
	for i := 1; i <= count; i++ {
		r := float64(rand.Intn(int(upperBound*2)+1)) / 2
		members = append(members, seedMember{
			ID:     fmt.Sprintf("player-%d", i),
			Name:   fmt.Sprintf("Seeder Player %d", i),
			Role:   club.RolePlayer,
			Rating: &r,
		})
	}
	return members
}

func main() {
	file := flag.String("file", "", "YAML file with members to seed")
	count := flag.Int("players", 12, "Number of dummy players when no file is given")
	flag.Parse()

	log.Info("Starting database seeder...")
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "matchledger.db"
	}

	db, teardown, err := database.InitDB(dbName, os.Getenv("TURSO_PRIMARY_URL"), os.Getenv("TURSO_AUTH_TOKEN"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer teardown()

	rules := config.DefaultRating()
	members := dummyMembers(*count, rules.UpperBound)
	if *file != "" {
		if members, err = loadMembers(*file); err != nil {
			log.Fatalf("Failed to load members: %s", err)
		}
	}

	c := clock.New()
	store := club.New(db, c)
	ratings := rating.NewService(db, rating.NewLedger(db, c), store, match.NewStore(db).(rating.MatchDescriber), lock.NewLocal(),
		rating.Rules{Delta: rules.Delta, UpperBound: rules.UpperBound, Baseline: rules.Baseline}, metrics.NewService(prometheus.NewRegistry()))

	ctx := context.Background()
	imported := 0
	for _, m := range members {
		if m.Role == "" {
			m.Role = club.RolePlayer
		}
		if err := store.UpsertMember(ctx, club.Member{ID: m.ID, Name: m.Name, Role: m.Role}); err != nil {
			log.Fatalf("Failed to upsert member %s: %s", m.ID, err)
		}
		if m.Rating == nil {
			continue
		}
		if _, err := ratings.Import(ctx, m.ID, *m.Rating); err != nil {
			log.Fatalf("Failed to import rating for %s: %s", m.ID, err)
		}
		imported++
	}

	log.Info("Seeding complete", "members", len(members), "ratings_imported", imported)
}
