package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mauv0809/matchledger/internal/config"
	"github.com/mauv0809/matchledger/internal/match"
	"github.com/mauv0809/matchledger/internal/metrics"
	"github.com/mauv0809/matchledger/internal/notifier"
	"github.com/mauv0809/matchledger/internal/processor"
	"github.com/mauv0809/matchledger/internal/rating"
)

type Server struct {
	Matches        *match.Service
	Roster         *match.Roster
	Ratings        *rating.Service
	Notifier       notifier.Notifier
	Processor      *processor.Processor
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *mux.Router
}

// Deps groups the collaborators of a Server.
type Deps struct {
	Matches        *match.Service
	Roster         *match.Roster
	Ratings        *rating.Service
	Notifier       notifier.Notifier
	Processor      *processor.Processor
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
}

type createMatchRequest struct {
	ScheduledAt  time.Time    `json:"scheduledAt"`
	IsPublic     *bool        `json:"isPublic"`
	Location     string       `json:"location"`
	Cost         *match.Money `json:"cost"`
	TeamCapacity int          `json:"teamCapacity"`
	TeamAName    string       `json:"teamAName"`
	TeamBName    string       `json:"teamBName"`
	Publish      bool         `json:"publish"`
}

type rosterRequest struct {
	UserID string            `json:"userId"`
	SlotID string            `json:"teamSlotId"`
	Status match.EntryStatus `json:"status"`
}

// scoresRequest keeps absent goal counts distinguishable from zero.
type scoresRequest struct {
	TeamAGoals *int `json:"teamAGoals"`
	TeamBGoals *int `json:"teamBGoals"`
}

type adjustmentRequest struct {
	Rating *float64 `json:"rating"`
	Delta  *float64 `json:"delta"`
	Note   string   `json:"note"`
}

// pushRequest is the envelope of a Pub/Sub push delivery.
type pushRequest struct {
	Subscription string `json:"subscription"`
	Message      struct {
		Data       string            `json:"data"` // base64-encoded message payload
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
}
