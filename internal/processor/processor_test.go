package processor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/clock"
	"github.com/mauv0809/matchledger/internal/database"
	"github.com/mauv0809/matchledger/internal/notifier"
	"github.com/mauv0809/matchledger/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func setup(t *testing.T) (*Processor, *notifier.Mock, Store) {
	t.Helper()
	db, teardown, err := database.InitDB(filepath.Join(t.TempDir(), "processor.db"), "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	s := NewStore(db)
	notif := notifier.NewMock()
	p := New(s, notif, pubsub.NewMock(), clock.NewMock(time.Date(2026, 4, 4, 20, 0, 0, 0, time.UTC)))
	return p, notif, s
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := msgpack.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestProcessor_HandleEvent(t *testing.T) {
	t.Run("finalized match is announced once", func(t *testing.T) {
		p, notif, _ := setup(t)
		event := pubsub.MatchFinalizedEvent{MatchID: "m1", TeamAGoals: 3, TeamBGoals: 1}

		require.NoError(t, p.HandleEvent(context.Background(), pubsub.EventMatchFinalized, encode(t, event), false))
		require.NoError(t, p.HandleEvent(context.Background(), pubsub.EventMatchFinalized, encode(t, event), false))

		calls := notif.FinalizedCalls()
		require.Len(t, calls, 1, "redelivered events stay quiet")
		assert.Equal(t, 3, calls[0].TeamAGoals)
	})

	t.Run("cancelled match is announced", func(t *testing.T) {
		p, notif, _ := setup(t)
		event := pubsub.MatchCancelledEvent{MatchID: "m2", ActorID: "org"}

		require.NoError(t, p.HandleEvent(context.Background(), pubsub.EventMatchCancelled, encode(t, event), false))
		require.Len(t, notif.CancelledCalls(), 1)
		assert.Equal(t, "org", notif.CancelledCalls()[0].ActorID)
	})

	t.Run("unknown events and garbage are rejected", func(t *testing.T) {
		p, notif, _ := setup(t)

		err := p.HandleEvent(context.Background(), "match-exploded", []byte{0x80}, false)
		assert.ErrorIs(t, err, apperr.ErrValidation)

		err = p.HandleEvent(context.Background(), pubsub.EventMatchFinalized, []byte{0xc1}, false)
		assert.ErrorIs(t, err, apperr.ErrValidation)

		err = p.HandleEvent(context.Background(), pubsub.EventMatchFinalized, encode(t, pubsub.MatchFinalizedEvent{}), false)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Empty(t, notif.FinalizedCalls())
	})
}

func TestProcessor_FailedAnnouncementIsRetried(t *testing.T) {
	p, notif, _ := setup(t)
	event := pubsub.MatchFinalizedEvent{MatchID: "m1"}

	notif.SendMatchFinalizedFunc = func(pubsub.MatchFinalizedEvent, bool) (string, error) {
		return "", errors.New("slack is down")
	}
	require.Error(t, p.ProcessMatchFinalized(context.Background(), event, false))

	notif.SendMatchFinalizedFunc = nil
	require.NoError(t, p.ProcessMatchFinalized(context.Background(), event, false))
	assert.Len(t, notif.FinalizedCalls(), 2, "the claim was released after the failure")
}

func TestProcessor_DryRunDoesNotClaim(t *testing.T) {
	p, notif, s := setup(t)
	event := pubsub.MatchCancelledEvent{MatchID: "m1"}

	require.NoError(t, p.ProcessMatchCancelled(context.Background(), event, true))
	require.NoError(t, p.ProcessMatchCancelled(context.Background(), event, true))
	assert.Len(t, notif.CancelledCalls(), 2)
	assert.Equal(t, []bool{true, true}, notif.DryRuns)

	claimed, err := s.ClaimNotification(context.Background(), "m1", pubsub.EventMatchCancelled, time.Now())
	require.NoError(t, err)
	assert.True(t, claimed, "dry runs leave no record")
}

func TestStore_ClaimIsExclusive(t *testing.T) {
	_, _, s := setup(t)
	ctx := context.Background()
	now := time.Now()

	claimed, err := s.ClaimNotification(ctx, "m1", pubsub.EventMatchFinalized, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.ClaimNotification(ctx, "m1", pubsub.EventMatchFinalized, now)
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = s.ClaimNotification(ctx, "m1", pubsub.EventMatchCancelled, now)
	require.NoError(t, err)
	assert.True(t, claimed, "claims are per event")

	require.NoError(t, s.UpdateNotificationTimestamp(ctx, "m1", pubsub.EventMatchFinalized, "123.456"))
	require.NoError(t, s.ReleaseNotification(ctx, "m1", pubsub.EventMatchFinalized))
	claimed, err = s.ClaimNotification(ctx, "m1", pubsub.EventMatchFinalized, now)
	require.NoError(t, err)
	assert.True(t, claimed)
}
