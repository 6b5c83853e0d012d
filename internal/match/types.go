package match

import (
	"time"

	"github.com/mauv0809/matchledger/internal/rating"
)

// Status is the lifecycle state of a match.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusFinalized Status = "FINALIZED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusFinalized || s == StatusCancelled
}

// Side identifies one of the two team slots of a match.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// EntryStatus is the status of a roster entry. Only confirmed entries count
// toward capacity and take part in rating computation.
type EntryStatus string

const (
	EntryConfirmed  EntryStatus = "CONFIRMED"
	EntryPending    EntryStatus = "PENDING"
	EntryWaitlisted EntryStatus = "WAITLISTED"
)

func (s EntryStatus) Valid() bool {
	switch s {
	case EntryConfirmed, EntryPending, EntryWaitlisted:
		return true
	}
	return false
}

// Money is an optional cost per player.
type Money struct {
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

// Match is a scheduled game between two team slots.
type Match struct {
	ID           string     `json:"id"`
	OrganizerID  string     `json:"organizerId"`
	ScheduledAt  time.Time  `json:"scheduledAt"`
	IsPublic     bool       `json:"isPublic"`
	Status       Status     `json:"status"`
	Location     string     `json:"location"`
	Cost         *Money     `json:"cost,omitempty"`
	TeamCapacity int        `json:"teamCapacity"`
	Slots        []TeamSlot `json:"slots"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	FinalizedAt  *time.Time `json:"finalizedAt,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
}

// Slot returns the team slot on the given side.
func (m *Match) Slot(side Side) *TeamSlot {
	for i := range m.Slots {
		if m.Slots[i].Side == side {
			return &m.Slots[i]
		}
	}
	return nil
}

// SlotByID returns the team slot with the given id, or nil if it is not part of m.
func (m *Match) SlotByID(id string) *TeamSlot {
	for i := range m.Slots {
		if m.Slots[i].ID == id {
			return &m.Slots[i]
		}
	}
	return nil
}

// TeamSlot is one of the two teams of a match. Goals stay nil until the
// match is finalized.
type TeamSlot struct {
	ID    string `json:"id"`
	Side  Side   `json:"side"`
	Name  string `json:"name"`
	Goals *int   `json:"goals,omitempty"`
}

// RosterEntry places a user in a team slot.
type RosterEntry struct {
	MatchID  string      `json:"matchId"`
	UserID   string      `json:"userId"`
	UserName string      `json:"userName,omitempty"`
	SlotID   string      `json:"teamSlotId"`
	Side     Side        `json:"side"`
	Status   EntryStatus `json:"status"`
	JoinedAt time.Time   `json:"joinedAt"`
}

// Details is a match together with its roster.
type Details struct {
	Match
	Roster []RosterEntry `json:"roster"`
}

// CreateParams describe a new match. Zero TeamCapacity uses the configured default.
type CreateParams struct {
	OrganizerID  string
	ScheduledAt  time.Time
	IsPublic     bool
	Location     string
	Cost         *Money
	TeamCapacity int
	TeamAName    string
	TeamBName    string
	Publish      bool
}

// AssignParams describe an organizer placing a user on the roster.
// Empty Status means confirmed.
type AssignParams struct {
	MatchID string
	UserID  string
	SlotID  string
	ActorID string
	Status  EntryStatus
}

// RosterRules bound team sizes.
type RosterRules struct {
	TeamCapacity        int
	MinConfirmedPerTeam int
}

// FinalizeResult is the finalized match plus every applied rating change.
type FinalizeResult struct {
	Match   *Match                `json:"match"`
	Scores  rating.Scores         `json:"scores"`
	Changes []rating.RatingChange `json:"changes"`
}

// PreviewResult is what a finalize with the given scores would apply now.
type PreviewResult struct {
	MatchID string                `json:"matchId"`
	Scores  rating.Scores         `json:"scores"`
	Outcome rating.Outcome        `json:"outcome"`
	Changes []rating.RatingChange `json:"changes"`
}
