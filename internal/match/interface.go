package match

import (
	"context"
	"time"

	"github.com/mauv0809/matchledger/internal/database"
)

// Store persists matches, team slots and roster entries. Methods taking a
// Querier participate in the caller's transaction.
type Store interface {
	Create(ctx context.Context, q database.Querier, m *Match) error
	Get(ctx context.Context, q database.Querier, id string) (*Match, error)
	Roster(ctx context.Context, q database.Querier, matchID string) ([]RosterEntry, error)
	GetEntry(ctx context.Context, q database.Querier, matchID, userID string) (*RosterEntry, error)
	// AddEntry inserts e. A confirmed entry is only inserted while its slot
	// holds fewer than capacity confirmed entries; false means the slot was full.
	AddEntry(ctx context.Context, q database.Querier, e RosterEntry, capacity int) (bool, error)
	DeleteEntry(ctx context.Context, q database.Querier, matchID, userID string) (bool, error)
	// UpdateStatus moves the match from one status to another and reports
	// false when the match was no longer in from.
	UpdateStatus(ctx context.Context, q database.Querier, id string, from, to Status, at time.Time) (bool, error)
	SetGoals(ctx context.Context, q database.Querier, slotID string, goals int) error
	DescribeMatches(ctx context.Context, userID string, matchIDs []string) (map[string]string, error)
}
