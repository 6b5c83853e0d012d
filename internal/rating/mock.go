package rating

import (
	"context"
	"sync"
	"time"

	"github.com/mauv0809/matchledger/internal/database"
)

// MockLedger is a spy Ledger. Calls without a Func set fall through to Inner
// when it is set, which lets tests inject a failure into a real ledger.
type MockLedger struct {
	mu    sync.Mutex
	Inner Ledger

	AppendFunc        func(ctx context.Context, q database.Querier, e Entry) (Entry, error)
	LatestForFunc     func(ctx context.Context, q database.Querier, userID string) (*Entry, error)
	LatestForManyFunc func(ctx context.Context, q database.Querier, userIDs []string) (map[string]float64, error)
	HistoryForFunc    func(ctx context.Context, userID string, f HistoryFilter) ([]Entry, int, error)
	AllForFunc        func(ctx context.Context, userID string) ([]Entry, error)
	AtDateFunc        func(ctx context.Context, userID string, at time.Time) (*Entry, error)

	AppendCalls        []Entry
	LatestForManyCalls [][]string
	HistoryForCalls    []HistoryFilter
}

func NewMockLedger(inner Ledger) *MockLedger {
	return &MockLedger{Inner: inner}
}

func (m *MockLedger) Append(ctx context.Context, q database.Querier, e Entry) (Entry, error) {
	m.mu.Lock()
	m.AppendCalls = append(m.AppendCalls, e)
	fn := m.AppendFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, q, e)
	}
	if m.Inner != nil {
		return m.Inner.Append(ctx, q, e)
	}
	return e, nil
}

func (m *MockLedger) LatestFor(ctx context.Context, q database.Querier, userID string) (*Entry, error) {
	if m.LatestForFunc != nil {
		return m.LatestForFunc(ctx, q, userID)
	}
	if m.Inner != nil {
		return m.Inner.LatestFor(ctx, q, userID)
	}
	return nil, nil
}

func (m *MockLedger) LatestForMany(ctx context.Context, q database.Querier, userIDs []string) (map[string]float64, error) {
	m.mu.Lock()
	m.LatestForManyCalls = append(m.LatestForManyCalls, userIDs)
	m.mu.Unlock()
	if m.LatestForManyFunc != nil {
		return m.LatestForManyFunc(ctx, q, userIDs)
	}
	if m.Inner != nil {
		return m.Inner.LatestForMany(ctx, q, userIDs)
	}
	return map[string]float64{}, nil
}

func (m *MockLedger) HistoryFor(ctx context.Context, userID string, f HistoryFilter) ([]Entry, int, error) {
	m.mu.Lock()
	m.HistoryForCalls = append(m.HistoryForCalls, f)
	m.mu.Unlock()
	if m.HistoryForFunc != nil {
		return m.HistoryForFunc(ctx, userID, f)
	}
	if m.Inner != nil {
		return m.Inner.HistoryFor(ctx, userID, f)
	}
	return nil, 0, nil
}

func (m *MockLedger) AllFor(ctx context.Context, userID string) ([]Entry, error) {
	if m.AllForFunc != nil {
		return m.AllForFunc(ctx, userID)
	}
	if m.Inner != nil {
		return m.Inner.AllFor(ctx, userID)
	}
	return nil, nil
}

func (m *MockLedger) AtDate(ctx context.Context, userID string, at time.Time) (*Entry, error) {
	if m.AtDateFunc != nil {
		return m.AtDateFunc(ctx, userID, at)
	}
	if m.Inner != nil {
		return m.Inner.AtDate(ctx, userID, at)
	}
	return nil, nil
}
