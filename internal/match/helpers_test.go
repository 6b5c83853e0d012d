package match_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mauv0809/matchledger/internal/authz"
	"github.com/mauv0809/matchledger/internal/clock"
	"github.com/mauv0809/matchledger/internal/club"
	"github.com/mauv0809/matchledger/internal/database"
	"github.com/mauv0809/matchledger/internal/lock"
	"github.com/mauv0809/matchledger/internal/match"
	"github.com/mauv0809/matchledger/internal/metrics"
	"github.com/mauv0809/matchledger/internal/pubsub"
	"github.com/mauv0809/matchledger/internal/rating"
	"github.com/stretchr/testify/require"
)

var (
	now   = time.Date(2026, 4, 2, 18, 30, 0, 0, time.UTC)
	rules = rating.Rules{Delta: 0.5, UpperBound: 10, Baseline: 5}
)

type env struct {
	db        *sql.DB
	clock     *clock.MockClock
	members   club.ClubStore
	ledger    *rating.MockLedger
	store     match.Store
	metrics   *metrics.Mock
	publisher *pubsub.MockPubSubClient
	locker    *lock.Local
	ratings   *rating.Service
	svc       *match.Service
	roster    *match.Roster
}

func newEnv(t *testing.T, rr match.RosterRules) *env {
	t.Helper()
	db, teardown, err := database.InitDB(filepath.Join(t.TempDir(), "match.db"), "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	c := clock.NewMock(now)
	e := &env{
		db:        db,
		clock:     c,
		members:   club.New(db, c),
		store:     match.NewStore(db),
		metrics:   metrics.NewMock(),
		publisher: pubsub.NewMock(),
	}
	e.ledger = rating.NewMockLedger(rating.NewLedger(db, c))
	locker := lock.NewLocal()
	e.locker = locker
	checker := authz.New(db, c)

	e.svc = match.NewService(match.Deps{
		DB:        db,
		Store:     e.store,
		Ledger:    e.ledger,
		Members:   e.members,
		Authz:     checker,
		Locker:    locker,
		Publisher: e.publisher,
		Clock:     c,
		Metrics:   e.metrics,
	}, rules, rr)
	e.roster = match.NewRoster(db, e.store, e.members, checker, locker, c, e.metrics)
	e.ratings = rating.NewService(db, e.ledger, e.members, e.store.(rating.MatchDescriber), locker, rules, e.metrics)

	ctx := context.Background()
	require.NoError(t, e.members.UpsertMember(ctx, club.Member{ID: "org", Name: "Olga", Role: club.RoleOrganizer}))
	require.NoError(t, e.members.UpsertMember(ctx, club.Member{ID: "org2", Name: "Otto", Role: club.RoleOrganizer}))
	require.NoError(t, e.members.UpsertMember(ctx, club.Member{ID: "deputy", Name: "Dana"}))
	for i := 1; i <= 12; i++ {
		require.NoError(t, e.members.UpsertMember(ctx, club.Member{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i)}))
	}
	_, err = db.Exec(`INSERT INTO delegations (organizer_id, delegate_id, starts_at) VALUES ('org', 'deputy', ?)`, now.Add(-time.Hour).UnixMilli())
	require.NoError(t, err)
	return e
}

func defaultRules() match.RosterRules {
	return match.RosterRules{TeamCapacity: 5, MinConfirmedPerTeam: 1}
}

// openMatch creates a published match owned by org.
func (e *env) openMatch(t *testing.T) *match.Details {
	t.Helper()
	d, err := e.svc.Create(context.Background(), match.CreateParams{
		OrganizerID: "org",
		ScheduledAt: now.Add(48 * time.Hour),
		Location:    "Riverside",
		Publish:     true,
	})
	require.NoError(t, err)
	return d
}

func slotID(d *match.Details, side match.Side) string {
	return d.Slot(side).ID
}

// closedMatch creates a match with the given players per side and closes it.
func (e *env) closedMatch(t *testing.T, teamA, teamB []string) *match.Details {
	t.Helper()
	ctx := context.Background()
	d := e.openMatch(t)
	for _, u := range teamA {
		_, err := e.roster.Join(ctx, d.ID, u, slotID(d, match.SideA))
		require.NoError(t, err)
	}
	for _, u := range teamB {
		_, err := e.roster.Join(ctx, d.ID, u, slotID(d, match.SideB))
		require.NoError(t, err)
	}
	_, err := e.svc.Close(ctx, d.ID, "org")
	require.NoError(t, err)
	return d
}

// seed gives users a starting rating through an import entry.
func (e *env) seed(t *testing.T, ratings map[string]float64) {
	t.Helper()
	for id, r := range ratings {
		_, err := e.ratings.Import(context.Background(), id, r)
		require.NoError(t, err)
	}
	e.clock.Advance(time.Minute)
}

func (e *env) current(t *testing.T, userID string) float64 {
	t.Helper()
	latest, err := e.ledger.LatestFor(context.Background(), e.db, userID)
	require.NoError(t, err)
	require.NotNil(t, latest, "user %s has no rating", userID)
	return latest.Rating
}

func (e *env) countEntries(t *testing.T, reason rating.ChangeReason) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM rating_ledger WHERE reason = ?`, string(reason)).Scan(&n))
	return n
}
