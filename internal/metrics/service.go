package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		MatchTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchledger_match_transitions_total",
			Help: "The total number of committed match state transitions.",
		}, []string{"transition"}),
		RosterRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchledger_roster_rejections_total",
			Help: "The total number of rejected roster operations by error kind.",
		}, []string{"kind"}),
		LedgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchledger_ledger_entries_total",
			Help: "The total number of rating ledger entries appended.",
		}, []string{"reason"}),
		FinalizeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "matchledger_finalize_duration_seconds",
			Help:    "The duration of match finalization including lock waits.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchledger_events_published_total",
			Help: "The total number of domain events published.",
		}),
		EventsPublishFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchledger_events_publish_failed_total",
			Help: "The total number of domain events that failed to publish.",
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchledger_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchledger_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "matchledger_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.MatchTransitions,
		s.RosterRejected,
		s.LedgerEntries,
		s.FinalizeDuration,
		s.EventsPublished,
		s.EventsPublishFailed,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncMatchTransition(transition string) {
	s.MatchTransitions.WithLabelValues(transition).Inc()
}

func (s *Service) IncRosterRejected(kind string) {
	s.RosterRejected.WithLabelValues(kind).Inc()
}

func (s *Service) AddLedgerEntries(reason string, n int) {
	s.LedgerEntries.WithLabelValues(reason).Add(float64(n))
}

func (s *Service) ObserveFinalizeDuration(duration float64) {
	s.FinalizeDuration.Observe(duration)
}

func (s *Service) IncEventsPublished() {
	s.EventsPublished.Inc()
}

func (s *Service) IncEventsPublishFailed() {
	s.EventsPublishFailed.Inc()
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
