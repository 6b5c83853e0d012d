package authz

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/clock"
)

type delegationChecker struct {
	db    *sql.DB
	clock clock.Clock
}

// New returns a Checker backed by the delegations table. Delegations are
// written by an external component; this package only reads them.
func New(db *sql.DB, c clock.Clock) Checker {
	return &delegationChecker{db: db, clock: c}
}

func (c *delegationChecker) CanManage(ctx context.Context, actorID, organizerID string) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	if actorID == organizerID {
		return true, nil
	}

	now := c.clock.Now().UnixMilli()
	var n int
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM delegations
		WHERE organizer_id = ? AND delegate_id = ?
		  AND starts_at <= ?
		  AND (ends_at IS NULL OR ends_at > ?)
		  AND revoked_at IS NULL
	`, organizerID, actorID, now, now).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check delegation: %w", err)
	}
	return n > 0, nil
}

// Require turns a negative capability check into an Unauthorized error.
func Require(ctx context.Context, c Checker, actorID, organizerID string) error {
	ok, err := c.CanManage(ctx, actorID, organizerID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ErrUnauthorized, "user %q may not manage matches of organizer %s", actorID, organizerID)
	}
	return nil
}
