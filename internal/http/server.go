package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mauv0809/matchledger/internal/apperr"
)

func NewServer(d Deps) *Server {
	server := &Server{
		Matches:        d.Matches,
		Roster:         d.Roster,
		Ratings:        d.Ratings,
		Notifier:       d.Notifier,
		Processor:      d.Processor,
		Metrics:        d.Metrics,
		MetricsHandler: d.MetricsHandler,
		Cfg:            d.Cfg,
		Router:         mux.NewRouter(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	r := s.Router
	r.Use(recoveryMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, apperr.New(apperr.ErrNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})

	// Operational routes carry no caller identity.
	r.Handle("/metrics", s.MetricsHandler).Methods(http.MethodGet)
	r.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware)).Methods(http.MethodGet)
	r.Handle("/events/{event}", Chain(s.EventPushHandler(), paramsMiddleware)).Methods(http.MethodPost)
	r.Handle("/slack/command/leaderboard", Chain(s.LeaderboardCommandHandler(), paramsMiddleware, s.slackVerificationMiddleware)).Methods(http.MethodPost)

	// Everything else acts on behalf of the caller named by the gateway.
	api := r.NewRoute().Subrouter()
	api.Use(paramsMiddleware, actorMiddleware)

	api.HandleFunc("/matches", s.CreateMatchHandler()).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}", s.GetMatchHandler()).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}/publish", s.PublishMatchHandler()).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/close", s.CloseMatchHandler()).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/finalize", s.FinalizeMatchHandler()).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/cancel", s.CancelMatchHandler()).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/rating-preview", s.RatingPreviewHandler()).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}/roster", s.ListRosterHandler()).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}/roster", s.AddRosterEntryHandler()).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/roster/{userId}", s.RemoveRosterEntryHandler()).Methods(http.MethodDelete)

	api.HandleFunc("/users/{id}/rating-history", s.RatingHistoryHandler()).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/rating-trend", s.RatingTrendHandler()).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/rating-stats", s.RatingStatsHandler()).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/rating-at", s.RatingAtHandler()).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/rating-adjustments", s.RatingAdjustmentHandler()).Methods(http.MethodPost)
	api.HandleFunc("/leaderboard", s.LeaderboardHandler()).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
