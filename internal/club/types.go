package club

import (
	"database/sql"
	"time"

	"github.com/mauv0809/matchledger/internal/clock"
)

// Role distinguishes organizer and player capabilities.
type Role string

const (
	RolePlayer    Role = "PLAYER"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePlayer, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// CanAdjustRatings reports whether the role may record manual rating adjustments.
func (r Role) CanAdjustRatings() bool {
	return r == RoleOrganizer || r == RoleAdmin
}

// store handles all database operations for the member directory.
type store struct {
	db    *sql.DB
	clock clock.Clock
}

// Member is the rating-relevant projection of a user.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
	// Rating mirrors the latest ledger entry; nil until the first entry exists.
	Rating    *float64  `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
