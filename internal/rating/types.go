package rating

import (
	"math"
	"time"

	"github.com/mauv0809/matchledger/internal/apperr"
)

// ChangeReason tags why a ledger entry was written.
type ChangeReason string

const (
	ReasonMatchResult      ChangeReason = "MATCH_RESULT"
	ReasonManualAdjustment ChangeReason = "MANUAL_ADJUSTMENT"
	ReasonImport           ChangeReason = "IMPORT"
)

// Valid reports whether r is a known reason.
func (r ChangeReason) Valid() bool {
	switch r {
	case ReasonMatchResult, ReasonManualAdjustment, ReasonImport:
		return true
	}
	return false
}

// Entry is one immutable ledger row. Rating is the new absolute value, not a delta.
// MatchID is set only for MATCH_RESULT; ActorID and Note only for MANUAL_ADJUSTMENT.
type Entry struct {
	Seq       int64        `json:"-"`
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Rating    float64      `json:"rating"`
	Reason    ChangeReason `json:"reason"`
	MatchID   string       `json:"matchId,omitempty"`
	ActorID   string       `json:"actorId,omitempty"`
	Note      string       `json:"note,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// MatchResultEntry builds the entry written when a match is finalized.
func MatchResultEntry(userID, matchID string, value float64) Entry {
	return Entry{UserID: userID, Rating: value, Reason: ReasonMatchResult, MatchID: matchID}
}

// ManualAdjustmentEntry builds the entry written when an organizer corrects a rating.
func ManualAdjustmentEntry(userID, actorID, note string, value float64) Entry {
	return Entry{UserID: userID, Rating: value, Reason: ReasonManualAdjustment, ActorID: actorID, Note: note}
}

// ImportEntry builds the entry written when a rating is seeded from outside.
func ImportEntry(userID string, value float64) Entry {
	return Entry{UserID: userID, Rating: value, Reason: ReasonImport}
}

// Validate rejects entries whose fields do not belong to their reason.
func (e Entry) Validate() error {
	if e.UserID == "" {
		return apperr.New(apperr.ErrValidation, "ledger entry has no user")
	}
	switch e.Reason {
	case ReasonMatchResult:
		if e.MatchID == "" {
			return apperr.New(apperr.ErrValidation, "match result entry requires a match id")
		}
		if e.ActorID != "" || e.Note != "" {
			return apperr.New(apperr.ErrValidation, "match result entry carries no actor or note")
		}
	case ReasonManualAdjustment:
		if e.ActorID == "" {
			return apperr.New(apperr.ErrValidation, "manual adjustment requires an acting user")
		}
		if e.MatchID != "" {
			return apperr.New(apperr.ErrValidation, "manual adjustment carries no match id")
		}
	case ReasonImport:
		if e.MatchID != "" || e.ActorID != "" || e.Note != "" {
			return apperr.New(apperr.ErrValidation, "import entry carries no match, actor or note")
		}
	default:
		return apperr.New(apperr.ErrValidation, "unknown change reason %q", e.Reason)
	}
	return nil
}

// Rules configure the rating algorithm.
type Rules struct {
	Delta      float64
	UpperBound float64
	Baseline   float64
}

// Teams holds the confirmed roster of each side by user id.
type Teams struct {
	A []string
	B []string
}

// Scores are the final goal counts of both sides.
type Scores struct {
	TeamA int `json:"teamAGoals"`
	TeamB int `json:"teamBGoals"`
}

// Validate rejects negative goal counts.
func (s Scores) Validate() error {
	if s.TeamA < 0 || s.TeamB < 0 {
		return apperr.New(apperr.ErrValidation, "goals must be non-negative, got %d-%d", s.TeamA, s.TeamB)
	}
	return nil
}

// Outcome of a match from the scores.
type Outcome string

const (
	OutcomeDraw  Outcome = "DRAW"
	OutcomeAWins Outcome = "TEAM_A_WINS"
	OutcomeBWins Outcome = "TEAM_B_WINS"
)

func (s Scores) Outcome() Outcome {
	switch {
	case s.TeamA > s.TeamB:
		return OutcomeAWins
	case s.TeamB > s.TeamA:
		return OutcomeBWins
	default:
		return OutcomeDraw
	}
}

// RatingChange is the projected or applied movement of one user's rating.
type RatingChange struct {
	UserID   string  `json:"userId"`
	UserName string  `json:"userName,omitempty"`
	Before   float64 `json:"before"`
	After    float64 `json:"after"`
	// Delta is After-Before, i.e. after clamping.
	Delta float64 `json:"delta"`
}

// HistoryFilter narrows a history query. Zero values mean no constraint.
type HistoryFilter struct {
	MatchID  string
	Reason   ChangeReason
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage keeps the row offset of any page within int32.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// HistoryPage is one page of a user's ledger, newest first.
type HistoryPage struct {
	Entries  []LabelledEntry `json:"entries"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

// LabelledEntry is a ledger entry with the display names of the people involved.
type LabelledEntry struct {
	Entry
	UserName  string `json:"userName,omitempty"`
	ActorName string `json:"actorName,omitempty"`
}

// Stats summarise a user's full ledger.
type Stats struct {
	UserID            string               `json:"userId"`
	UserName          string               `json:"userName,omitempty"`
	Current           float64              `json:"current"`
	Highest           float64              `json:"highest"`
	Lowest            float64              `json:"lowest"`
	Average           float64              `json:"average"`
	MatchesPlayed     int                  `json:"matchesPlayed"`
	ManualAdjustments int                  `json:"manualAdjustments"`
	FirstChange       time.Time            `json:"firstChange"`
	LastChange        time.Time            `json:"lastChange"`
	Breakdown         map[ChangeReason]int `json:"breakdown"`
}

// TrendPoint is one point of a rating time series.
type TrendPoint struct {
	Date        time.Time    `json:"date"`
	Rating      float64      `json:"rating"`
	Reason      ChangeReason `json:"reason"`
	MatchID     string       `json:"matchId,omitempty"`
	Description string       `json:"description,omitempty"`
}
