package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RecordsAndExposes(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)

	s.IncMatchTransition("finalize")
	s.IncMatchTransition("finalize")
	s.IncRosterRejected("CAPACITY_EXCEEDED")
	s.AddLedgerEntries("MATCH_RESULT", 4)
	s.ObserveFinalizeDuration(0.02)
	s.IncSlackNotifSent()

	rec := httptest.NewRecorder()
	NewMetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, line := range []string{
		`matchledger_match_transitions_total{transition="finalize"} 2`,
		`matchledger_roster_rejections_total{kind="CAPACITY_EXCEEDED"} 1`,
		`matchledger_ledger_entries_total{reason="MATCH_RESULT"} 4`,
		`matchledger_slack_notifications_sent_total 1`,
		`matchledger_finalize_duration_seconds_count 1`,
	} {
		assert.True(t, strings.Contains(body, line), "missing %q", line)
	}
}

func TestMock_Counts(t *testing.T) {
	m := NewMock()
	m.IncMatchTransition("cancel")
	m.AddLedgerEntries("MANUAL_ADJUSTMENT", 1)
	m.AddLedgerEntries("MANUAL_ADJUSTMENT", 2)
	m.IncEventsPublishFailed()

	assert.Equal(t, 1, m.MatchTransitions("cancel"))
	assert.Equal(t, 3, m.LedgerEntries("MANUAL_ADJUSTMENT"))
	assert.Equal(t, 1, m.EventsPublishFailed())
	assert.Equal(t, 0, m.EventsPublished())
}
