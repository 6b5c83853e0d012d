package rating

import (
	"context"
	"time"

	"github.com/mauv0809/matchledger/internal/database"
)

// Ledger is the append-only store of rating values. Methods taking a Querier
// participate in the caller's transaction.
type Ledger interface {
	Append(ctx context.Context, q database.Querier, e Entry) (Entry, error)
	LatestFor(ctx context.Context, q database.Querier, userID string) (*Entry, error)
	LatestForMany(ctx context.Context, q database.Querier, userIDs []string) (map[string]float64, error)
	HistoryFor(ctx context.Context, userID string, f HistoryFilter) ([]Entry, int, error)
	AllFor(ctx context.Context, userID string) ([]Entry, error)
	AtDate(ctx context.Context, userID string, at time.Time) (*Entry, error)
}

// MatchDescriber labels match-result trend points, e.g. "Riverside, 3-1 win".
type MatchDescriber interface {
	DescribeMatches(ctx context.Context, userID string, matchIDs []string) (map[string]string, error)
}
