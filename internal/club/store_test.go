package club_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/clock"
	"github.com/mauv0809/matchledger/internal/club"
	"github.com/mauv0809/matchledger/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary SQLite database for testing.
func setupTestDB(t *testing.T) (club.ClubStore, *sql.DB) {
	t.Helper()

	db, teardown, err := database.InitDB(filepath.Join(t.TempDir(), "club.db"), "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	return club.New(db, clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))), db
}

func TestUpsertAndGetMember(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertMember(ctx, club.Member{ID: "u1", Name: "Ana"}))

	m, err := store.GetMember(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", m.Name)
	assert.Equal(t, club.RolePlayer, m.Role, "role defaults to player")
	assert.Nil(t, m.Rating)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), m.CreatedAt)

	require.NoError(t, store.UpsertMember(ctx, club.Member{ID: "u1", Name: "Ana B.", Role: club.RoleOrganizer}))
	m, err = store.GetMember(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana B.", m.Name)
	assert.Equal(t, club.RoleOrganizer, m.Role)
}

func TestUpsertMember_Validation(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	err := store.UpsertMember(ctx, club.Member{ID: "u1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = store.UpsertMember(ctx, club.Member{ID: "u1", Name: "Ana", Role: "REFEREE"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGetMember_NotFound(t *testing.T) {
	store, _ := setupTestDB(t)

	_, err := store.GetMember(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetMembers(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertMember(ctx, club.Member{ID: "u1", Name: "Ana"}))
	require.NoError(t, store.UpsertMember(ctx, club.Member{ID: "u2", Name: "Ben"}))

	members, err := store.GetMembers(ctx, []string{"u1", "u2", "ghost"})
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, "Ben", members["u2"].Name)

	empty, err := store.GetMembers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSetCachedRatingAndLeaderboard(t *testing.T) {
	store, db := setupTestDB(t)
	ctx := context.Background()
	for _, m := range []club.Member{{ID: "u1", Name: "Ana"}, {ID: "u2", Name: "Ben"}, {ID: "u3", Name: "Cai"}, {ID: "u4", Name: "Dee"}} {
		require.NoError(t, store.UpsertMember(ctx, m))
	}

	require.NoError(t, store.SetCachedRating(ctx, db, "u1", 6.5))
	require.NoError(t, database.RunInTx(ctx, db, func(tx *sql.Tx) error {
		if err := store.SetCachedRating(ctx, tx, "u2", 8); err != nil {
			return err
		}
		return store.SetCachedRating(ctx, tx, "u3", 6.5)
	}))

	board, err := store.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 3, "unrated members are not ranked")
	assert.Equal(t, "u2", board[0].ID)
	assert.Equal(t, "u1", board[1].ID, "ties are broken by name")
	assert.Equal(t, "u3", board[2].ID)
	assert.Equal(t, 8.0, *board[0].Rating)

	top, err := store.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	err = store.SetCachedRating(ctx, db, "ghost", 5)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpsertMember_KeepsCachedRating(t *testing.T) {
	store, db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertMember(ctx, club.Member{ID: "u1", Name: "Ana"}))
	require.NoError(t, store.SetCachedRating(ctx, db, "u1", 7))

	require.NoError(t, store.UpsertMember(ctx, club.Member{ID: "u1", Name: "Ana"}))
	m, err := store.GetMember(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, m.Rating)
	assert.Equal(t, 7.0, *m.Rating)
}
