package match

import (
	"context"
	"database/sql"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/authz"
	"github.com/mauv0809/matchledger/internal/clock"
	"github.com/mauv0809/matchledger/internal/club"
	"github.com/mauv0809/matchledger/internal/database"
	"github.com/mauv0809/matchledger/internal/lock"
	"github.com/mauv0809/matchledger/internal/metrics"
)

// Roster manages who plays on which team of a match. It never touches ratings.
type Roster struct {
	db      *sql.DB
	store   Store
	members club.ClubStore
	authz   authz.Checker
	locker  lock.Locker
	clock   clock.Clock
	metrics metrics.Metrics
}

// NewRoster creates a roster manager.
func NewRoster(db *sql.DB, store Store, members club.ClubStore, checker authz.Checker, locker lock.Locker, c clock.Clock, m metrics.Metrics) *Roster {
	return &Roster{
		db:      db,
		store:   store,
		members: members,
		authz:   checker,
		locker:  locker,
		clock:   c,
		metrics: m,
	}
}

// Join adds the caller to a team slot as a confirmed player.
func (r *Roster) Join(ctx context.Context, matchID, userID, slotID string) (*RosterEntry, error) {
	entry, err := r.add(ctx, matchID, userID, slotID, EntryConfirmed)
	return entry, r.observe("join", matchID, userID, err)
}

// Leave removes the caller's own entry.
func (r *Roster) Leave(ctx context.Context, matchID, userID string) error {
	return r.observe("leave", matchID, userID, r.remove(ctx, matchID, userID))
}

// Assign lets an organizer or active delegate place a user on a team slot
// with the given status.
func (r *Roster) Assign(ctx context.Context, p AssignParams) (*RosterEntry, error) {
	if p.Status == "" {
		p.Status = EntryConfirmed
	}
	if !p.Status.Valid() {
		return nil, r.observe("assign", p.MatchID, p.UserID, apperr.New(apperr.ErrValidation, "unknown roster status %q", p.Status))
	}
	if err := r.authorize(ctx, p.MatchID, p.ActorID); err != nil {
		return nil, r.observe("assign", p.MatchID, p.UserID, err)
	}
	entry, err := r.add(ctx, p.MatchID, p.UserID, p.SlotID, p.Status)
	return entry, r.observe("assign", p.MatchID, p.UserID, err)
}

// Remove lets an organizer or active delegate take a user off the roster.
func (r *Roster) Remove(ctx context.Context, matchID, userID, actorID string) error {
	if err := r.authorize(ctx, matchID, actorID); err != nil {
		return r.observe("remove", matchID, userID, err)
	}
	return r.observe("remove", matchID, userID, r.remove(ctx, matchID, userID))
}

// List returns the roster of a match.
func (r *Roster) List(ctx context.Context, matchID string) ([]RosterEntry, error) {
	if _, err := r.store.Get(ctx, r.db, matchID); err != nil {
		return nil, err
	}
	return r.store.Roster(ctx, r.db, matchID)
}

func (r *Roster) authorize(ctx context.Context, matchID, actorID string) error {
	m, err := r.store.Get(ctx, r.db, matchID)
	if err != nil {
		return err
	}
	return authz.Require(ctx, r.authz, actorID, m.OrganizerID)
}

func (r *Roster) add(ctx context.Context, matchID, userID, slotID string, status EntryStatus) (*RosterEntry, error) {
	// Directory lookups happen before the transaction holds the connection.
	if _, err := r.members.GetMember(ctx, userID); err != nil {
		return nil, err
	}

	unlock, err := r.locker.Lock(ctx, lock.MatchKey(matchID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var entry *RosterEntry
	err = database.RunInTx(ctx, r.db, func(tx *sql.Tx) error {
		m, err := r.store.Get(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if err := CheckRosterMutable(m.Status); err != nil {
			return err
		}
		slot := m.SlotByID(slotID)
		if slot == nil {
			return apperr.New(apperr.ErrNotFound, "team slot %s is not part of match %s", slotID, matchID)
		}

		existing, err := r.store.GetEntry(ctx, tx, matchID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.New(apperr.ErrAlreadyRostered, "user %s is already on team %s", userID, existing.Side)
		}

		e := RosterEntry{
			MatchID:  matchID,
			UserID:   userID,
			SlotID:   slotID,
			Side:     slot.Side,
			Status:   status,
			JoinedAt: r.clock.Now(),
		}
		added, err := r.store.AddEntry(ctx, tx, e, m.TeamCapacity)
		if err != nil {
			return err
		}
		if !added {
			return apperr.New(apperr.ErrCapacityExceeded, "team %s is full (%d confirmed players)", slot.Side, m.TeamCapacity)
		}

		entry, err = r.store.GetEntry(ctx, tx, matchID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *Roster) remove(ctx context.Context, matchID, userID string) error {
	unlock, err := r.locker.Lock(ctx, lock.MatchKey(matchID))
	if err != nil {
		return err
	}
	defer unlock()

	return database.RunInTx(ctx, r.db, func(tx *sql.Tx) error {
		m, err := r.store.Get(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if err := CheckRosterMutable(m.Status); err != nil {
			return err
		}
		removed, err := r.store.DeleteEntry(ctx, tx, matchID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.New(apperr.ErrNotRostered, "user %s is not on the roster of match %s", userID, matchID)
		}
		return nil
	})
}

// observe logs and counts the outcome of a roster operation and returns err unchanged.
func (r *Roster) observe(op, matchID, userID string, err error) error {
	if err == nil {
		log.Info("Roster updated", "op", op, "match_id", matchID, "user_id", userID)
		return nil
	}
	if apperr.Kind(err) != nil {
		r.metrics.IncRosterRejected(apperr.Code(err))
		log.Debug("Roster operation rejected", "op", op, "match_id", matchID, "user_id", userID, "reason", apperr.Reason(err))
	} else {
		log.Error("Roster operation failed", "op", op, "match_id", matchID, "user_id", userID, "error", err)
	}
	return err
}
