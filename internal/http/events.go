package http

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/mauv0809/matchledger/internal/pubsub"
	"github.com/slack-go/slack"
)

// EventPushHandler receives Pub/Sub push deliveries for match events.
// Any non-2xx response makes Pub/Sub redeliver.
func (s *Server) EventPushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		log.Debug("Received push message", "body", string(bodyBytes))

		var push pushRequest
		if err := json.Unmarshal(bodyBytes, &push); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			respondError(w, invalidRequest("invalid JSON"))
			return
		}
		// Decode base64 to raw MessagePack bytes
		rawData, err := base64.StdEncoding.DecodeString(push.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			respondError(w, invalidRequest("invalid base64 data"))
			return
		}

		topic := pubsub.EventType(mux.Vars(r)["event"])
		if err := s.Processor.HandleEvent(r.Context(), topic, rawData, isDryRunFromContext(r)); err != nil {
			respondError(w, err)
			return
		}
		w.Write([]byte("OK"))
	}
}

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

// LeaderboardCommandHandler returns a handler for the /leaderboard Slack command.
// The command text may carry the number of places to show.
func (s *Server) LeaderboardCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			log.Error("Failed to parse slash command", "error", err)
			http.Error(w, "Invalid slash command", http.StatusBadRequest)
			return
		}

		limit := 0
		if text := strings.TrimSpace(cmd.Text); text != "" {
			limit, err = strconv.Atoi(text)
			if err != nil || limit < 1 {
				http.Error(w, "Usage: /leaderboard [places]", http.StatusBadRequest)
				return
			}
		}

		members, err := s.Ratings.Leaderboard(r.Context(), limit)
		if err != nil {
			http.Error(w, "Failed to get leaderboard", http.StatusInternalServerError)
			log.Error("Failed to get leaderboard", "error", err)
			return
		}

		msg, err := s.Notifier.FormatLeaderboardResponse(members)
		if err != nil {
			http.Error(w, "Failed to format leaderboard", http.StatusInternalServerError)
			log.Error("Failed to format leaderboard", "error", err)
			return
		}

		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}

		respondWithSlackMsg(w, slackMsg)
	}
}
