package club

import (
	"context"
	"sync"

	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/database"
)

// MockStore is a mock implementation of the ClubStore interface for testing.
// Without a Func set it serves the Members map. It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	Members map[string]Member

	UpsertMemberFunc    func(ctx context.Context, member Member) error
	GetMemberFunc       func(ctx context.Context, id string) (*Member, error)
	GetMembersFunc      func(ctx context.Context, ids []string) (map[string]Member, error)
	LeaderboardFunc     func(ctx context.Context, limit int) ([]Member, error)
	SetCachedRatingFunc func(ctx context.Context, q database.Querier, userID string, rating float64) error

	UpsertMemberCalls    []Member
	GetMembersCalls      [][]string
	LeaderboardCalls     []int
	SetCachedRatingCalls []struct {
		UserID string
		Rating float64
	}
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{Members: make(map[string]Member)}
}

func (m *MockStore) UpsertMember(ctx context.Context, member Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertMemberCalls = append(m.UpsertMemberCalls, member)
	if m.UpsertMemberFunc != nil {
		return m.UpsertMemberFunc(ctx, member)
	}
	m.Members[member.ID] = member
	return nil
}

func (m *MockStore) GetMember(ctx context.Context, id string) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetMemberFunc != nil {
		return m.GetMemberFunc(ctx, id)
	}
	member, ok := m.Members[id]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "user %s not found", id)
	}
	return &member, nil
}

func (m *MockStore) GetMembers(ctx context.Context, ids []string) (map[string]Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetMembersCalls = append(m.GetMembersCalls, ids)
	if m.GetMembersFunc != nil {
		return m.GetMembersFunc(ctx, ids)
	}
	out := make(map[string]Member, len(ids))
	for _, id := range ids {
		if member, ok := m.Members[id]; ok {
			out[id] = member
		}
	}
	return out, nil
}

func (m *MockStore) Leaderboard(ctx context.Context, limit int) ([]Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LeaderboardCalls = append(m.LeaderboardCalls, limit)
	if m.LeaderboardFunc != nil {
		return m.LeaderboardFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockStore) SetCachedRating(ctx context.Context, q database.Querier, userID string, rating float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCachedRatingCalls = append(m.SetCachedRatingCalls, struct {
		UserID string
		Rating float64
	}{userID, rating})
	if m.SetCachedRatingFunc != nil {
		return m.SetCachedRatingFunc(ctx, q, userID, rating)
	}
	if member, ok := m.Members[userID]; ok {
		member.Rating = &rating
		m.Members[userID] = member
	}
	return nil
}
