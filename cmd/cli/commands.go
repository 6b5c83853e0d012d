package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd, metricsCmd, matchCmd, rosterCmd, ratingCmd, leaderboardCmd)

	createCmd.Flags().String("at", "", "Kickoff time (RFC3339)")
	createCmd.Flags().String("location", "", "Where the match is played")
	createCmd.Flags().Int("capacity", 0, "Confirmed players per team (server default when 0)")
	createCmd.Flags().String("team-a", "", "Name of team A")
	createCmd.Flags().String("team-b", "", "Name of team B")
	createCmd.Flags().Bool("private", false, "Hide the match from the public listing")
	createCmd.Flags().Bool("publish", false, "Open the match for sign-ups right away")
	_ = createCmd.MarkFlagRequired("at")

	matchCmd.AddCommand(createCmd, getCmd,
		transitionCmd("publish", "Open a draft match for sign-ups"),
		transitionCmd("close", "Freeze the roster of an open match"),
		transitionCmd("cancel", "Cancel a match"),
		finalizeCmd, previewCmd)

	joinCmd.Flags().String("slot", "", "Team slot id")
	joinCmd.Flags().String("status", "", "Roster status when placing another member")
	_ = joinCmd.MarkFlagRequired("slot")
	rosterCmd.AddCommand(listCmd, joinCmd, leaveCmd)

	historyCmd.Flags().String("reason", "", "Only entries with this reason")
	historyCmd.Flags().String("match", "", "Only entries for this match")
	historyCmd.Flags().Int("page", 0, "Page number")
	trendCmd.Flags().Int("last", 0, "Number of recent matches to include")
	adjustCmd.Flags().Float64("rating", 0, "Set the rating to this value")
	adjustCmd.Flags().Float64("delta", 0, "Move the rating by this amount")
	adjustCmd.Flags().String("note", "", "Why the rating is adjusted")
	adjustCmd.MarkFlagsMutuallyExclusive("rating", "delta")
	adjustCmd.MarkFlagsOneRequired("rating", "delta")
	ratingCmd.AddCommand(historyCmd, trendCmd, statsCmd, atCmd, adjustCmd)

	leaderboardCmd.Flags().Int("limit", 0, "Number of places to show")
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health", nil)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics", nil)
	},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Manage matches",
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a match organized by the acting user",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		raw, _ := f.GetString("at")
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		location, _ := f.GetString("location")
		capacity, _ := f.GetInt("capacity")
		teamA, _ := f.GetString("team-a")
		teamB, _ := f.GetString("team-b")
		private, _ := f.GetBool("private")
		publish, _ := f.GetBool("publish")

		return performRequest(http.MethodPost, "/matches", map[string]any{
			"scheduledAt":  at,
			"isPublic":     !private,
			"location":     location,
			"teamCapacity": capacity,
			"teamAName":    teamA,
			"teamBName":    teamB,
			"publish":      publish,
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <match-id>",
	Short: "Show a match and its roster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/matches/"+args[0], nil)
	},
}

func transitionCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <match-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return performRequest(http.MethodPost, "/matches/"+args[0]+"/"+name, nil)
		},
	}
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize <match-id> <team-a-goals> <team-b-goals>",
	Short: "Record the result of a closed match and apply rating changes",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		scores, err := parseScores(args[1], args[2])
		if err != nil {
			return err
		}
		return performRequest(http.MethodPost, "/matches/"+args[0]+"/finalize", scores)
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <match-id> <team-a-goals> <team-b-goals>",
	Short: "Show the rating changes a result would apply",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := parseScores(args[1], args[2]); err != nil {
			return err
		}
		q := url.Values{"teamAGoals": {args[1]}, "teamBGoals": {args[2]}}
		return performRequest(http.MethodGet, "/matches/"+args[0]+"/rating-preview?"+q.Encode(), nil)
	},
}

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Manage match rosters",
}

var listCmd = &cobra.Command{
	Use:   "list <match-id>",
	Short: "Show the roster of a match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/matches/"+args[0]+"/roster", nil)
	},
}

var joinCmd = &cobra.Command{
	Use:   "add <match-id> [member-id]",
	Short: "Join a match, or place another member on it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, _ := cmd.Flags().GetString("slot")
		status, _ := cmd.Flags().GetString("status")
		body := map[string]any{"teamSlotId": slot, "status": status}
		if len(args) == 2 {
			body["userId"] = args[1]
		}
		return performRequest(http.MethodPost, "/matches/"+args[0]+"/roster", body)
	},
}

var leaveCmd = &cobra.Command{
	Use:   "remove <match-id> [member-id]",
	Short: "Leave a match, or take another member off it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := user
		if len(args) == 2 {
			target = args[1]
		}
		return performRequest(http.MethodDelete, "/matches/"+args[0]+"/roster/"+url.PathEscape(target), nil)
	},
}

var ratingCmd = &cobra.Command{
	Use:   "rating",
	Short: "Inspect and adjust ratings",
}

var historyCmd = &cobra.Command{
	Use:   "history <member-id>",
	Short: "List rating ledger entries, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		matchID, _ := cmd.Flags().GetString("match")
		page, _ := cmd.Flags().GetInt("page")
		q := url.Values{}
		if reason != "" {
			q.Set("reason", reason)
		}
		if matchID != "" {
			q.Set("matchId", matchID)
		}
		if page > 0 {
			q.Set("page", strconv.Itoa(page))
		}
		return performRequest(http.MethodGet, "/users/"+args[0]+"/rating-history?"+q.Encode(), nil)
	},
}

var trendCmd = &cobra.Command{
	Use:   "trend <member-id>",
	Short: "Show the rating trend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		last, _ := cmd.Flags().GetInt("last")
		return performRequest(http.MethodGet, fmt.Sprintf("/users/%s/rating-trend?last=%d", args[0], last), nil)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <member-id>",
	Short: "Summarise a member's rating history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/users/"+args[0]+"/rating-stats", nil)
	},
}

var atCmd = &cobra.Command{
	Use:   "at <member-id> <RFC3339 time>",
	Short: "Show the rating a member had at a point in time",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/users/"+args[0]+"/rating-at?date="+url.QueryEscape(args[1]), nil)
	},
}

var adjustCmd = &cobra.Command{
	Use:   "adjust <member-id>",
	Short: "Record a manual rating adjustment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		note, _ := f.GetString("note")
		body := map[string]any{"note": note}
		if f.Changed("rating") {
			v, _ := f.GetFloat64("rating")
			body["rating"] = v
		} else {
			v, _ := f.GetFloat64("delta")
			body["delta"] = v
		}
		return performRequest(http.MethodPost, "/users/"+args[0]+"/rating-adjustments", body)
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the rating leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return performRequest(http.MethodGet, fmt.Sprintf("/leaderboard?limit=%d", limit), nil)
	},
}

func parseScores(a, b string) (map[string]int, error) {
	teamA, err := strconv.Atoi(a)
	if err != nil {
		return nil, fmt.Errorf("invalid team A goals %q", a)
	}
	teamB, err := strconv.Atoi(b)
	if err != nil {
		return nil, fmt.Errorf("invalid team B goals %q", b)
	}
	return map[string]int{"teamAGoals": teamA, "teamBGoals": teamB}, nil
}

func performRequest(method, endpoint string, body any) error {
	u, err := url.Parse(host + endpoint)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if dryRun {
		q := u.Query()
		q.Set("dry_run", "true")
		u.RawQuery = q.Encode()
	}
	fmt.Printf("Making %s request to %s\n", method, u)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(respBody))

	return nil
}
