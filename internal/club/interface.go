package club

import (
	"context"

	"github.com/mauv0809/matchledger/internal/database"
)

// ClubStore is the user directory: display names, roles and the cached
// current rating of every member.
type ClubStore interface {
	UpsertMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, id string) (*Member, error)
	GetMembers(ctx context.Context, ids []string) (map[string]Member, error)
	Leaderboard(ctx context.Context, limit int) ([]Member, error)
	// SetCachedRating must run on the same transaction as the ledger append
	// that produced rating.
	SetCachedRating(ctx context.Context, q database.Querier, userID string, rating float64) error
}
