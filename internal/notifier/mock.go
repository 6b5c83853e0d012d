package notifier

import (
	"sync"

	"github.com/mauv0809/matchledger/internal/club"
	"github.com/mauv0809/matchledger/internal/pubsub"
)

var _ Notifier = (*Mock)(nil)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for method calls
	SendMatchFinalizedFunc        func(event pubsub.MatchFinalizedEvent, dryRun bool) (string, error)
	SendMatchCancelledFunc        func(event pubsub.MatchCancelledEvent, dryRun bool) (string, error)
	FormatLeaderboardResponseFunc func(members []club.Member) (any, error)

	// Call records
	SendMatchFinalizedCalls []pubsub.MatchFinalizedEvent
	SendMatchCancelledCalls []pubsub.MatchCancelledEvent
	SendLeaderboardCalls    [][]club.Member
	DryRuns                 []bool

	LastLeaderboardResponse any
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendMatchFinalizedCalls = nil
	m.SendMatchCancelledCalls = nil
	m.SendLeaderboardCalls = nil
	m.DryRuns = nil
	m.LastLeaderboardResponse = nil
}

func (m *Mock) SendMatchFinalized(event pubsub.MatchFinalizedEvent, dryRun bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendMatchFinalizedCalls = append(m.SendMatchFinalizedCalls, event)
	m.DryRuns = append(m.DryRuns, dryRun)
	if m.SendMatchFinalizedFunc != nil {
		return m.SendMatchFinalizedFunc(event, dryRun)
	}
	return "mock-ts", nil
}

func (m *Mock) SendMatchCancelled(event pubsub.MatchCancelledEvent, dryRun bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendMatchCancelledCalls = append(m.SendMatchCancelledCalls, event)
	m.DryRuns = append(m.DryRuns, dryRun)
	if m.SendMatchCancelledFunc != nil {
		return m.SendMatchCancelledFunc(event, dryRun)
	}
	return "mock-ts", nil
}

func (m *Mock) SendLeaderboard(members []club.Member, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendLeaderboardCalls = append(m.SendLeaderboardCalls, members)
	m.DryRuns = append(m.DryRuns, dryRun)
	return nil
}

func (m *Mock) FormatLeaderboardResponse(members []club.Member) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatLeaderboardResponseFunc != nil {
		resp, err := m.FormatLeaderboardResponseFunc(members)
		m.LastLeaderboardResponse = resp
		return resp, err
	}
	return "formatted_leaderboard", nil
}

// FinalizedCalls returns a copy of the recorded SendMatchFinalized events.
func (m *Mock) FinalizedCalls() []pubsub.MatchFinalizedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pubsub.MatchFinalizedEvent(nil), m.SendMatchFinalizedCalls...)
}

// CancelledCalls returns a copy of the recorded SendMatchCancelled events.
func (m *Mock) CancelledCalls() []pubsub.MatchCancelledEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pubsub.MatchCancelledEvent(nil), m.SendMatchCancelledCalls...)
}
