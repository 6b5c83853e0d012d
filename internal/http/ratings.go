package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mauv0809/matchledger/internal/rating"
)

func (s *Server) RatingHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := rating.HistoryFilter{
			MatchID: q.Get("matchId"),
			Reason:  rating.ChangeReason(q.Get("reason")),
		}
		var err error
		if f.From, err = parseTime(q.Get("from"), "from"); err != nil {
			respondError(w, err)
			return
		}
		if f.To, err = parseTime(q.Get("to"), "to"); err != nil {
			respondError(w, err)
			return
		}
		if f.Page, err = parseNonNegative(r, "page"); err != nil {
			respondError(w, err)
			return
		}
		if f.PageSize, err = parseNonNegative(r, "pageSize"); err != nil {
			respondError(w, err)
			return
		}

		page, err := s.Ratings.History(r.Context(), mux.Vars(r)["id"], f)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, page)
	}
}

func (s *Server) RatingTrendHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		last, err := parseNonNegative(r, "last")
		if err != nil {
			respondError(w, err)
			return
		}
		points, err := s.Ratings.Trend(r.Context(), mux.Vars(r)["id"], last)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, points)
	}
}

func (s *Server) RatingStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.Ratings.Statistics(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) RatingAtHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("date")
		if raw == "" {
			respondError(w, invalidRequest("date is required"))
			return
		}
		at, err := parseTime(raw, "date")
		if err != nil {
			respondError(w, err)
			return
		}
		entry, err := s.Ratings.RatingAt(r.Context(), mux.Vars(r)["id"], at)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, entry)
	}
}

func (s *Server) RatingAdjustmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustmentRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, err)
			return
		}
		change, err := s.Ratings.Adjust(r.Context(), rating.AdjustParams{
			UserID:  mux.Vars(r)["id"],
			ActorID: actorFromContext(r),
			Rating:  req.Rating,
			Delta:   req.Delta,
			Note:    req.Note,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, change)
	}
}

// LeaderboardHandler returns a handler that serves the rating leaderboard.
func (s *Server) LeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseNonNegative(r, "limit")
		if err != nil {
			respondError(w, err)
			return
		}
		members, err := s.Ratings.Leaderboard(r.Context(), limit)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, members)
	}
}

func parseTime(raw, key string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, invalidRequest("%s must be an RFC3339 timestamp", key)
	}
	return t, nil
}
