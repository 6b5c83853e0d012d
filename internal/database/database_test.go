package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, teardown, err := InitDB(filepath.Join(t.TempDir(), "test.db"), "", "")
	require.NoError(t, err, "InitDB should not return an error")
	t.Cleanup(teardown)
	return db
}

func TestInitDB_CreatesTables(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"members", "matches", "team_slots", "roster_entries", "rating_ledger", "delegations", "notifications"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "Querying for %s table should not produce an error", table)
		assert.Equal(t, table, name)
	}
}

func TestInitDB_InMemory(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "")
	require.NoError(t, err)
	defer teardown()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM members").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestInitDB_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	_, teardown, err := InitDB(path, "", "")
	require.NoError(t, err)
	teardown()

	_, teardown, err = InitDB(path, "", "")
	require.NoError(t, err, "re-running migrations should be a no-op")
	teardown()
}

func TestRatingLedger_IsAppendOnly(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Exec(`INSERT INTO members (id, name, role, created_at) VALUES ('u1', 'Ana', 'PLAYER', 1)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO rating_ledger (id, user_id, rating, reason, created_at) VALUES ('e1', 'u1', 5, 'IMPORT', 1)`)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE rating_ledger SET rating = 9 WHERE id = 'e1'`)
	assert.Error(t, err, "updates must be rejected")
	_, err = db.Exec(`DELETE FROM rating_ledger WHERE id = 'e1'`)
	assert.Error(t, err, "deletes must be rejected")
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	insert := func(tx *sql.Tx, id string) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO members (id, name, role, created_at) VALUES (?, ?, 'PLAYER', 1)`, id, id)
		return err
	}
	count := func() int {
		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM members").Scan(&n))
		return n
	}

	t.Run("commits on success", func(t *testing.T) {
		err := RunInTx(ctx, db, func(tx *sql.Tx) error { return insert(tx, "a") })
		require.NoError(t, err)
		assert.Equal(t, 1, count())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := RunInTx(ctx, db, func(tx *sql.Tx) error {
			require.NoError(t, insert(tx, "b"))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, count())
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = RunInTx(ctx, db, func(tx *sql.Tx) error {
				require.NoError(t, insert(tx, "c"))
				panic("kaboom")
			})
		})
		assert.Equal(t, 1, count())
	})
}
