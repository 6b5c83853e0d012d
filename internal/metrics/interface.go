package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncMatchTransition(transition string)
	IncRosterRejected(kind string)
	AddLedgerEntries(reason string, n int)
	ObserveFinalizeDuration(duration float64)
	IncEventsPublished()
	IncEventsPublishFailed()
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetStartupTime(duration float64)
}
