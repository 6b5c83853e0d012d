package match_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/database"
	"github.com/mauv0809/matchledger/internal/lock"
	"github.com/mauv0809/matchledger/internal/match"
	"github.com/mauv0809/matchledger/internal/pubsub"
	"github.com/mauv0809/matchledger/internal/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scores(a, b int) rating.Scores {
	return rating.Scores{TeamA: a, TeamB: b}
}

func TestCreate(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()

	d, err := e.svc.Create(ctx, match.CreateParams{
		OrganizerID: "org",
		ScheduledAt: now.Add(24 * time.Hour),
		IsPublic:    true,
		Location:    "  Hall 2 ",
		Cost:        &match.Money{AmountCents: 450, Currency: "EUR"},
		TeamAName:   "Reds",
	})
	require.NoError(t, err)
	assert.Equal(t, match.StatusDraft, d.Status)
	assert.Equal(t, "Hall 2", d.Location)
	assert.Equal(t, 5, d.TeamCapacity, "default capacity applies")
	assert.Equal(t, &match.Money{AmountCents: 450, Currency: "EUR"}, d.Cost)
	require.Len(t, d.Slots, 2)
	assert.Equal(t, "Reds", d.Slot(match.SideA).Name)
	assert.Equal(t, "Team B", d.Slot(match.SideB).Name)
	assert.Nil(t, d.Slot(match.SideA).Goals)
	assert.Empty(t, d.Roster)

	open, err := e.svc.Create(ctx, match.CreateParams{OrganizerID: "org", ScheduledAt: now, Publish: true, TeamCapacity: 2})
	require.NoError(t, err)
	assert.Equal(t, match.StatusOpen, open.Status)
	assert.Equal(t, 2, open.TeamCapacity)
}

func TestCreate_Rejections(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()

	_, err := e.svc.Create(ctx, match.CreateParams{OrganizerID: "p1", ScheduledAt: now})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized, "players cannot organize")

	_, err = e.svc.Create(ctx, match.CreateParams{OrganizerID: "ghost", ScheduledAt: now})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.svc.Create(ctx, match.CreateParams{OrganizerID: "org"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = e.svc.Create(ctx, match.CreateParams{OrganizerID: "org", ScheduledAt: now, TeamCapacity: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = e.svc.Create(ctx, match.CreateParams{OrganizerID: "org", ScheduledAt: now, Cost: &match.Money{AmountCents: 100, Currency: "euro"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLifecycle_HappyPath(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()

	d, err := e.svc.Create(ctx, match.CreateParams{OrganizerID: "org", ScheduledAt: now})
	require.NoError(t, err)

	m, err := e.svc.Publish(ctx, d.ID, "org")
	require.NoError(t, err)
	assert.Equal(t, match.StatusOpen, m.Status)

	_, err = e.roster.Join(ctx, d.ID, "p1", slotID(d, match.SideA))
	require.NoError(t, err)
	_, err = e.roster.Join(ctx, d.ID, "p2", slotID(d, match.SideB))
	require.NoError(t, err)

	m, err = e.svc.Close(ctx, d.ID, "deputy")
	require.NoError(t, err, "an active delegate may close")
	assert.Equal(t, match.StatusClosed, m.Status)

	res, err := e.svc.Finalize(ctx, d.ID, "org", scores(2, 1))
	require.NoError(t, err)
	assert.Equal(t, match.StatusFinalized, res.Match.Status)
	require.NotNil(t, res.Match.FinalizedAt)
	assert.Equal(t, 2, *res.Match.Slot(match.SideA).Goals)
	assert.Equal(t, 1, *res.Match.Slot(match.SideB).Goals)

	assert.Equal(t, 1, e.metrics.MatchTransitions("publish"))
	assert.Equal(t, 1, e.metrics.MatchTransitions("close"))
	assert.Equal(t, 1, e.metrics.MatchTransitions("finalize"))
}

func TestTransitions_RequireCapability(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	d, err := e.svc.Create(ctx, match.CreateParams{OrganizerID: "org", ScheduledAt: now})
	require.NoError(t, err)

	_, err = e.svc.Publish(ctx, d.ID, "org2")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = e.svc.Cancel(ctx, d.ID, "p1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = e.svc.Finalize(ctx, d.ID, "", scores(1, 0))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = e.svc.Preview(ctx, d.ID, "p1", scores(1, 0))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = e.svc.Publish(ctx, "missing", "org")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestClose_RequiresMinimumPerTeam(t *testing.T) {
	e := newEnv(t, match.RosterRules{TeamCapacity: 5, MinConfirmedPerTeam: 2})
	ctx := context.Background()
	d := e.openMatch(t)

	_, err := e.roster.Join(ctx, d.ID, "p1", slotID(d, match.SideA))
	require.NoError(t, err)
	_, err = e.roster.Join(ctx, d.ID, "p2", slotID(d, match.SideA))
	require.NoError(t, err)
	_, err = e.roster.Join(ctx, d.ID, "p3", slotID(d, match.SideB))
	require.NoError(t, err)
	_, err = e.roster.Assign(ctx, match.AssignParams{MatchID: d.ID, UserID: "p4", SlotID: slotID(d, match.SideB), ActorID: "org", Status: match.EntryPending})
	require.NoError(t, err)

	_, err = e.svc.Close(ctx, d.ID, "org")
	assert.ErrorIs(t, err, apperr.ErrInvalidState, "pending players do not count")

	_, err = e.roster.Join(ctx, d.ID, "p5", slotID(d, match.SideB))
	require.NoError(t, err)
	m, err := e.svc.Close(ctx, d.ID, "org")
	require.NoError(t, err)
	assert.Equal(t, match.StatusClosed, m.Status)
}

func TestFinalize_Scenario(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	e.seed(t, map[string]float64{"p1": 8, "p2": 7, "p3": 6, "p4": 9})
	d := e.closedMatch(t, []string{"p1", "p2"}, []string{"p3", "p4"})

	res, err := e.svc.Finalize(ctx, d.ID, "org", scores(3, 1))
	require.NoError(t, err)

	assert.Equal(t, 8.5, e.current(t, "p1"))
	assert.Equal(t, 7.5, e.current(t, "p2"))
	assert.Equal(t, 5.5, e.current(t, "p3"))
	assert.Equal(t, 8.5, e.current(t, "p4"))

	require.Len(t, res.Changes, 4)
	assert.Equal(t, rating.RatingChange{UserID: "p1", UserName: "Player 1", Before: 8, After: 8.5, Delta: 0.5}, res.Changes[0])
	assert.Equal(t, 4, e.countEntries(t, rating.ReasonMatchResult))

	for _, u := range []string{"p1", "p2", "p3", "p4"} {
		entries, err := e.ledger.AllFor(ctx, u)
		require.NoError(t, err)
		require.Len(t, entries, 2, "import plus one match result for %s", u)
		assert.Equal(t, rating.ReasonMatchResult, entries[1].Reason)
		assert.Equal(t, d.ID, entries[1].MatchID)

		member, err := e.members.GetMember(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, entries[1].Rating, *member.Rating, "cache matches ledger for %s", u)
	}
}

func TestFinalize_BaselineAndClamp(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	e.seed(t, map[string]float64{"p1": 10, "p2": 0})
	d := e.closedMatch(t, []string{"p1", "p3"}, []string{"p2", "p4"})

	_, err := e.svc.Finalize(ctx, d.ID, "org", scores(1, 0))
	require.NoError(t, err)

	assert.Equal(t, 10.0, e.current(t, "p1"), "clamped at the upper bound")
	assert.Equal(t, 5.5, e.current(t, "p3"), "unrated players start at the baseline")
	assert.Equal(t, 0.0, e.current(t, "p2"), "clamped at zero")
	assert.Equal(t, 4.5, e.current(t, "p4"))
}

func TestFinalize_DrawWritesNothing(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	e.seed(t, map[string]float64{"p1": 6, "p2": 4})
	d := e.closedMatch(t, []string{"p1"}, []string{"p2"})

	res, err := e.svc.Finalize(ctx, d.ID, "org", scores(2, 2))
	require.NoError(t, err)
	assert.Equal(t, match.StatusFinalized, res.Match.Status)
	assert.Empty(t, res.Changes)
	assert.Equal(t, 0, e.countEntries(t, rating.ReasonMatchResult))
	assert.Equal(t, 6.0, e.current(t, "p1"))
	assert.Equal(t, 4.0, e.current(t, "p2"))
}

func TestFinalize_OnlyConfirmedPlayersAreRated(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	d := e.openMatch(t)
	_, err := e.roster.Join(ctx, d.ID, "p1", slotID(d, match.SideA))
	require.NoError(t, err)
	_, err = e.roster.Join(ctx, d.ID, "p2", slotID(d, match.SideB))
	require.NoError(t, err)
	_, err = e.roster.Assign(ctx, match.AssignParams{MatchID: d.ID, UserID: "p3", SlotID: slotID(d, match.SideA), ActorID: "org", Status: match.EntryWaitlisted})
	require.NoError(t, err)
	_, err = e.svc.Close(ctx, d.ID, "org")
	require.NoError(t, err)

	res, err := e.svc.Finalize(ctx, d.ID, "org", scores(1, 0))
	require.NoError(t, err)
	assert.Len(t, res.Changes, 2)

	latest, err := e.ledger.LatestFor(ctx, e.db, "p3")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestFinalize_OnlyFromClosed(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()

	d := e.openMatch(t)
	_, err := e.svc.Finalize(ctx, d.ID, "org", scores(1, 0))
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = e.svc.Finalize(ctx, d.ID, "org", scores(-1, 0))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestTerminalMatchesRejectEverything(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()

	finalized := e.closedMatch(t, []string{"p1"}, []string{"p2"})
	_, err := e.svc.Finalize(ctx, finalized.ID, "org", scores(1, 0))
	require.NoError(t, err)

	cancelled := e.closedMatch(t, []string{"p3"}, []string{"p4"})
	_, err = e.svc.Cancel(ctx, cancelled.ID, "org")
	require.NoError(t, err)

	for name, d := range map[string]*match.Details{"finalized": finalized, "cancelled": cancelled} {
		t.Run(name, func(t *testing.T) {
			_, err := e.svc.Publish(ctx, d.ID, "org")
			assert.ErrorIs(t, err, apperr.ErrTerminalState)
			_, err = e.svc.Close(ctx, d.ID, "org")
			assert.ErrorIs(t, err, apperr.ErrTerminalState)
			_, err = e.svc.Finalize(ctx, d.ID, "org", scores(0, 1))
			assert.ErrorIs(t, err, apperr.ErrTerminalState)
			_, err = e.svc.Preview(ctx, d.ID, "org", scores(0, 1))
			assert.ErrorIs(t, err, apperr.ErrTerminalState)
			_, err = e.roster.Join(ctx, d.ID, "p9", slotID(d, match.SideA))
			assert.ErrorIs(t, err, apperr.ErrTerminalState)
			_, err = e.roster.Assign(ctx, match.AssignParams{MatchID: d.ID, UserID: "p9", SlotID: slotID(d, match.SideA), ActorID: "org"})
			assert.ErrorIs(t, err, apperr.ErrTerminalState)
			assert.ErrorIs(t, e.roster.Remove(ctx, d.ID, "p1", "org"), apperr.ErrTerminalState)
		})
	}

	_, err = e.svc.Cancel(ctx, finalized.ID, "org")
	assert.ErrorIs(t, err, apperr.ErrTerminalState, "a finalized match cannot be cancelled")
	assert.Equal(t, 2, e.countEntries(t, rating.ReasonMatchResult), "no extra rating was applied")
}

func TestCancel_IsIdempotent(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	d := e.openMatch(t)

	first, err := e.svc.Cancel(ctx, d.ID, "org")
	require.NoError(t, err)
	assert.Equal(t, match.StatusCancelled, first.Status)
	require.NotNil(t, first.CancelledAt)

	e.clock.Advance(time.Hour)
	second, err := e.svc.Cancel(ctx, d.ID, "org")
	require.NoError(t, err)
	assert.Equal(t, first, second, "the retry changes nothing")

	assert.Equal(t, 1, e.metrics.MatchTransitions("cancel"))
	sent := e.publisher.Sent()
	require.Len(t, sent, 1, "only the real cancellation is announced")
	assert.Equal(t, pubsub.EventMatchCancelled, sent[0].Topic)
	assert.Equal(t, d.ID, sent[0].Data.(pubsub.MatchCancelledEvent).MatchID)
}

func TestCancel_NoRatingEffect(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	d := e.closedMatch(t, []string{"p1"}, []string{"p2"})

	_, err := e.svc.Cancel(ctx, d.ID, "deputy")
	require.NoError(t, err)
	assert.Equal(t, 0, e.countEntries(t, rating.ReasonMatchResult))
}

func TestFinalize_RollsBackOnLedgerFailure(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	e.seed(t, map[string]float64{"p1": 5, "p2": 5, "p3": 5})
	d := e.closedMatch(t, []string{"p1", "p2"}, []string{"p3"})

	var calls int
	inner := e.ledger.Inner
	e.ledger.AppendFunc = func(ctx context.Context, q database.Querier, entry rating.Entry) (rating.Entry, error) {
		calls++
		if calls == 3 {
			return rating.Entry{}, errors.New("disk I/O error")
		}
		return inner.Append(ctx, q, entry)
	}

	_, err := e.svc.Finalize(ctx, d.ID, "org", scores(1, 0))
	require.Error(t, err)
	assert.Nil(t, apperr.Kind(err), "infrastructure failures are not domain errors")

	got, err := e.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusClosed, got.Status, "the match stays closed")
	assert.Nil(t, got.Slot(match.SideA).Goals)
	assert.Equal(t, 0, e.countEntries(t, rating.ReasonMatchResult), "no partial ledger writes")
	for _, u := range []string{"p1", "p2", "p3"} {
		assert.Equal(t, 5.0, e.current(t, u))
	}
	assert.Empty(t, e.publisher.Sent())

	e.ledger.AppendFunc = nil
	res, err := e.svc.Finalize(ctx, d.ID, "org", scores(1, 0))
	require.NoError(t, err, "a rolled back finalize is safely retryable")
	assert.Len(t, res.Changes, 3)
}

func TestFinalize_ConcurrentCallsApplyOnce(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	e.seed(t, map[string]float64{"p1": 5, "p2": 5})
	d := e.closedMatch(t, []string{"p1"}, []string{"p2"})

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Finalize(ctx, d.ID, "org", scores(1, 0))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrTerminalState)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 5.5, e.current(t, "p1"))
	assert.Equal(t, 4.5, e.current(t, "p2"))
	assert.Equal(t, 2, e.countEntries(t, rating.ReasonMatchResult))
}

func TestFinalize_ConcurrentWithAdjustmentLosesNothing(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	e.seed(t, map[string]float64{"p1": 5, "p2": 5})
	d := e.closedMatch(t, []string{"p1"}, []string{"p2"})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := e.svc.Finalize(ctx, d.ID, "org", scores(1, 0))
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		delta := 1.0
		_, err := e.ratings.Adjust(ctx, rating.AdjustParams{UserID: "p1", ActorID: "org", Delta: &delta})
		assert.NoError(t, err)
	}()
	wg.Wait()

	assert.Equal(t, 6.5, e.current(t, "p1"), "both changes apply regardless of order")
}

func TestFinalize_PublishFailureKeepsCommit(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	d := e.closedMatch(t, []string{"p1"}, []string{"p2"})
	e.publisher.SendMessageFunc = func(pubsub.EventType, any) error { return errors.New("pubsub unavailable") }

	res, err := e.svc.Finalize(ctx, d.ID, "org", scores(0, 3))
	require.NoError(t, err)
	assert.Equal(t, match.StatusFinalized, res.Match.Status)
	assert.Equal(t, 1, e.metrics.EventsPublishFailed())
}

func TestFinalize_PublishesEvent(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	d := e.closedMatch(t, []string{"p1"}, []string{"p2"})

	_, err := e.svc.Finalize(ctx, d.ID, "org", scores(0, 3))
	require.NoError(t, err)

	sent := e.publisher.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, pubsub.EventMatchFinalized, sent[0].Topic)
	event := sent[0].Data.(pubsub.MatchFinalizedEvent)
	assert.Equal(t, d.ID, event.MatchID)
	assert.Equal(t, "Riverside", event.Location)
	assert.Equal(t, 3, event.TeamBGoals)
	require.Len(t, event.Changes, 2)
	assert.Equal(t, pubsub.RatingChange{UserID: "p1", UserName: "Player 1", Side: "A", Before: 5, After: 4.5}, event.Changes[0])
	assert.Equal(t, 1, e.metrics.EventsPublished())
	assert.Equal(t, 1, e.metrics.FinalizeObservations())
}

// lockHeld reports whether key is still taken, waiting briefly for it.
func (e *env) lockHeld(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	unlock, err := e.locker.Lock(ctx, key)
	if err != nil {
		return true
	}
	unlock()
	return false
}

func TestFinalizeAndCancel_PublishAfterReleasingLocks(t *testing.T) {
	t.Run("finalize", func(t *testing.T) {
		e := newEnv(t, defaultRules())
		d := e.closedMatch(t, []string{"p1"}, []string{"p2"})

		var held []bool
		e.publisher.SendMessageFunc = func(topic pubsub.EventType, data any) error {
			for _, key := range []string{lock.MatchKey(d.ID), lock.RatingKey("p1"), lock.RatingKey("p2")} {
				held = append(held, e.lockHeld(key))
			}
			return nil
		}

		_, err := e.svc.Finalize(context.Background(), d.ID, "org", scores(2, 1))
		require.NoError(t, err)
		assert.Equal(t, []bool{false, false, false}, held)
	})

	t.Run("cancel", func(t *testing.T) {
		e := newEnv(t, defaultRules())
		d := e.openMatch(t)

		var held []bool
		e.publisher.SendMessageFunc = func(topic pubsub.EventType, data any) error {
			held = append(held, e.lockHeld(lock.MatchKey(d.ID)))
			return nil
		}

		_, err := e.svc.Cancel(context.Background(), d.ID, "org")
		require.NoError(t, err)
		assert.Equal(t, []bool{false}, held)
	})
}

func TestPreview_MatchesFinalizeAndWritesNothing(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	e.seed(t, map[string]float64{"p1": 8, "p2": 7, "p3": 6, "p4": 9})
	d := e.openMatch(t)
	for user, side := range map[string]match.Side{"p1": match.SideA, "p2": match.SideA, "p3": match.SideB, "p4": match.SideB} {
		_, err := e.roster.Join(ctx, d.ID, user, slotID(d, side))
		require.NoError(t, err)
	}

	first, err := e.svc.Preview(ctx, d.ID, "org", scores(3, 1))
	require.NoError(t, err, "preview works while the match is open")
	assert.Equal(t, rating.OutcomeAWins, first.Outcome)

	_, err = e.svc.Close(ctx, d.ID, "org")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := e.svc.Preview(ctx, d.ID, "deputy", scores(3, 1))
		require.NoError(t, err)
		assert.Equal(t, first.Changes, again.Changes)
	}
	assert.Equal(t, 0, e.countEntries(t, rating.ReasonMatchResult))

	got, err := e.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusClosed, got.Status)

	res, err := e.svc.Finalize(ctx, d.ID, "org", scores(3, 1))
	require.NoError(t, err)
	assert.Equal(t, first.Changes, res.Changes)

	draw, err := e.svc.Preview(ctx, d.ID, "org", scores(1, 1))
	assert.ErrorIs(t, err, apperr.ErrTerminalState)
	assert.Nil(t, draw)
}

func TestPreview_Draw(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	d := e.closedMatch(t, []string{"p1"}, []string{"p2"})

	res, err := e.svc.Preview(ctx, d.ID, "org", scores(0, 0))
	require.NoError(t, err)
	assert.Equal(t, rating.OutcomeDraw, res.Outcome)
	assert.Empty(t, res.Changes)
}

func TestTrendDescribesMatches(t *testing.T) {
	e := newEnv(t, defaultRules())
	ctx := context.Background()
	d := e.closedMatch(t, []string{"p1"}, []string{"p2"})
	_, err := e.svc.Finalize(ctx, d.ID, "org", scores(3, 1))
	require.NoError(t, err)

	points, err := e.ratings.Trend(ctx, "p2", 5)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "Riverside on 2026-04-04: 1-3 loss", points[0].Description)
}
