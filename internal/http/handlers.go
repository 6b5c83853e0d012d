package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/mauv0809/matchledger/internal/match"
	"github.com/mauv0809/matchledger/internal/rating"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) CreateMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMatchRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, err)
			return
		}
		isPublic := true
		if req.IsPublic != nil {
			isPublic = *req.IsPublic
		}

		d, err := s.Matches.Create(r.Context(), match.CreateParams{
			OrganizerID:  actorFromContext(r),
			ScheduledAt:  req.ScheduledAt,
			IsPublic:     isPublic,
			Location:     req.Location,
			Cost:         req.Cost,
			TeamCapacity: req.TeamCapacity,
			TeamAName:    req.TeamAName,
			TeamBName:    req.TeamBName,
			Publish:      req.Publish,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, d)
	}
}

func (s *Server) GetMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := s.Matches.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, d)
	}
}

func (s *Server) PublishMatchHandler() http.HandlerFunc {
	return s.transitionHandler(s.Matches.Publish)
}

func (s *Server) CloseMatchHandler() http.HandlerFunc {
	return s.transitionHandler(s.Matches.Close)
}

func (s *Server) CancelMatchHandler() http.HandlerFunc {
	return s.transitionHandler(s.Matches.Cancel)
}

func (s *Server) transitionHandler(step func(ctx context.Context, matchID, actorID string) (*match.Match, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := step(r.Context(), mux.Vars(r)["id"], actorFromContext(r))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, m)
	}
}

// FinalizeMatchHandler applies a result. With dry_run=true it returns the
// preview instead and writes nothing.
func (s *Server) FinalizeMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scoresRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, err)
			return
		}
		if req.TeamAGoals == nil || req.TeamBGoals == nil {
			respondError(w, invalidRequest("teamAGoals and teamBGoals are both required"))
			return
		}
		scores := rating.Scores{TeamA: *req.TeamAGoals, TeamB: *req.TeamBGoals}
		matchID, actor := mux.Vars(r)["id"], actorFromContext(r)

		if isDryRunFromContext(r) {
			preview, err := s.Matches.Preview(r.Context(), matchID, actor, scores)
			if err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, preview)
			return
		}

		result, err := s.Matches.Finalize(r.Context(), matchID, actor, scores)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) RatingPreviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var scores rating.Scores
		var err error
		if scores.TeamA, err = strconv.Atoi(q.Get("teamAGoals")); err != nil {
			respondError(w, invalidRequest("teamAGoals must be an integer"))
			return
		}
		if scores.TeamB, err = strconv.Atoi(q.Get("teamBGoals")); err != nil {
			respondError(w, invalidRequest("teamBGoals must be an integer"))
			return
		}

		preview, err := s.Matches.Preview(r.Context(), mux.Vars(r)["id"], actorFromContext(r), scores)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, preview)
	}
}

func (s *Server) ListRosterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roster, err := s.Roster.List(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, roster)
	}
}

// AddRosterEntryHandler joins the caller, or assigns another user when the
// caller manages the match.
func (s *Server) AddRosterEntryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rosterRequest
		if err := decodeOptionalBody(r, &req); err != nil {
			respondError(w, err)
			return
		}
		matchID, actor := mux.Vars(r)["id"], actorFromContext(r)
		if req.UserID == "" {
			req.UserID = actor
		}

		var entry *match.RosterEntry
		var err error
		if req.UserID == actor && (req.Status == "" || req.Status == match.EntryConfirmed) {
			entry, err = s.Roster.Join(r.Context(), matchID, actor, req.SlotID)
		} else {
			entry, err = s.Roster.Assign(r.Context(), match.AssignParams{
				MatchID: matchID,
				UserID:  req.UserID,
				SlotID:  req.SlotID,
				ActorID: actor,
				Status:  req.Status,
			})
		}
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, entry)
	}
}

// RemoveRosterEntryHandler lets the caller leave, or removes another user
// when the caller manages the match.
func (s *Server) RemoveRosterEntryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		matchID, userID, actor := vars["id"], vars["userId"], actorFromContext(r)

		var err error
		if userID == actor {
			err = s.Roster.Leave(r.Context(), matchID, userID)
		} else {
			err = s.Roster.Remove(r.Context(), matchID, userID, actor)
		}
		if err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// parseNonNegative reads an optional integer query parameter.
func parseNonNegative(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalidRequest("%s must be a non-negative integer", key)
	}
	return n, nil
}
