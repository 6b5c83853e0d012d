package authz

import (
	"context"
	"sync"
)

// MockChecker is a mock Checker. Without CanManageFunc only the organizer
// itself is allowed.
type MockChecker struct {
	mu sync.Mutex

	CanManageFunc  func(ctx context.Context, actorID, organizerID string) (bool, error)
	CanManageCalls []struct {
		ActorID     string
		OrganizerID string
	}
}

func NewMock() *MockChecker {
	return &MockChecker{}
}

func (m *MockChecker) CanManage(ctx context.Context, actorID, organizerID string) (bool, error) {
	m.mu.Lock()
	m.CanManageCalls = append(m.CanManageCalls, struct {
		ActorID     string
		OrganizerID string
	}{actorID, organizerID})
	fn := m.CanManageFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, actorID, organizerID)
	}
	return actorID != "" && actorID == organizerID, nil
}
