package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	matchTransitions    map[string]int
	rosterRejected      map[string]int
	ledgerEntries       map[string]int
	finalizeDurations   []float64
	eventsPublished     int
	eventsPublishFailed int
	slackNotifSent      int
	slackNotifFailed    int
	startupTime         float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		matchTransitions:  make(map[string]int),
		rosterRejected:    make(map[string]int),
		ledgerEntries:     make(map[string]int),
		finalizeDurations: make([]float64, 0),
	}
}

func (m *Mock) IncMatchTransition(transition string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchTransitions[transition]++
}

func (m *Mock) IncRosterRejected(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rosterRejected[kind]++
}

func (m *Mock) AddLedgerEntries(reason string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgerEntries[reason] += n
}

func (m *Mock) ObserveFinalizeDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalizeDurations = append(m.finalizeDurations, duration)
}

func (m *Mock) IncEventsPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsPublished++
}

func (m *Mock) IncEventsPublishFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsPublishFailed++
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// MatchTransitions returns how often the given transition was recorded.
func (m *Mock) MatchTransitions(transition string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchTransitions[transition]
}

// RosterRejected returns how often a roster operation failed with kind.
func (m *Mock) RosterRejected(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rosterRejected[kind]
}

// LedgerEntries returns the number of entries appended for reason.
func (m *Mock) LedgerEntries(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledgerEntries[reason]
}

// FinalizeObservations returns the number of recorded finalize durations.
func (m *Mock) FinalizeObservations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.finalizeDurations)
}

// EventsPublished returns the number of times IncEventsPublished was called.
func (m *Mock) EventsPublished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventsPublished
}

// EventsPublishFailed returns the number of times IncEventsPublishFailed was called.
func (m *Mock) EventsPublishFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventsPublishFailed
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}
