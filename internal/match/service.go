package match

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/authz"
	"github.com/mauv0809/matchledger/internal/clock"
	"github.com/mauv0809/matchledger/internal/club"
	"github.com/mauv0809/matchledger/internal/database"
	"github.com/mauv0809/matchledger/internal/lock"
	"github.com/mauv0809/matchledger/internal/metrics"
	"github.com/mauv0809/matchledger/internal/pubsub"
	"github.com/mauv0809/matchledger/internal/rating"
)

// Service owns the match lifecycle: creation, state transitions and the
// finalize path that turns a result into ledger entries.
type Service struct {
	db        *sql.DB
	store     Store
	ledger    rating.Ledger
	members   club.ClubStore
	authz     authz.Checker
	locker    lock.Locker
	publisher pubsub.PubSubClient
	clock     clock.Clock
	metrics   metrics.Metrics
	rules     rating.Rules
	roster    RosterRules
}

// Deps groups the collaborators of a Service.
type Deps struct {
	DB        *sql.DB
	Store     Store
	Ledger    rating.Ledger
	Members   club.ClubStore
	Authz     authz.Checker
	Locker    lock.Locker
	Publisher pubsub.PubSubClient
	Clock     clock.Clock
	Metrics   metrics.Metrics
}

// NewService creates a match Service.
func NewService(d Deps, rules rating.Rules, roster RosterRules) *Service {
	return &Service{
		db:        d.DB,
		store:     d.Store,
		ledger:    d.Ledger,
		members:   d.Members,
		authz:     d.Authz,
		locker:    d.Locker,
		publisher: d.Publisher,
		clock:     d.Clock,
		metrics:   d.Metrics,
		rules:     rules,
		roster:    roster,
	}
}

// Create inserts a match with its two team slots. It starts OPEN when
// Publish is set and DRAFT otherwise.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Details, error) {
	organizer, err := s.members.GetMember(ctx, p.OrganizerID)
	if err != nil {
		return nil, err
	}
	if organizer.Role == club.RolePlayer {
		return nil, apperr.New(apperr.ErrUnauthorized, "user %s is not an organizer", p.OrganizerID)
	}
	if p.ScheduledAt.IsZero() {
		return nil, apperr.New(apperr.ErrValidation, "scheduled time is required")
	}
	if p.TeamCapacity == 0 {
		p.TeamCapacity = s.roster.TeamCapacity
	}
	if p.TeamCapacity < 1 || p.TeamCapacity < s.roster.MinConfirmedPerTeam {
		return nil, apperr.New(apperr.ErrValidation, "team capacity must be at least %d", max(1, s.roster.MinConfirmedPerTeam))
	}
	if p.Cost != nil && (p.Cost.AmountCents < 0 || len(p.Cost.Currency) != 3) {
		return nil, apperr.New(apperr.ErrValidation, "cost needs a non-negative amount and a three letter currency")
	}

	now := s.clock.Now()
	status := StatusDraft
	if p.Publish {
		status = StatusOpen
	}
	m := &Match{
		ID:           uuid.NewString(),
		OrganizerID:  p.OrganizerID,
		ScheduledAt:  p.ScheduledAt.UTC().Truncate(time.Millisecond),
		IsPublic:     p.IsPublic,
		Status:       status,
		Location:     strings.TrimSpace(p.Location),
		Cost:         p.Cost,
		TeamCapacity: p.TeamCapacity,
		Slots: []TeamSlot{
			{ID: uuid.NewString(), Side: SideA, Name: nameOr(p.TeamAName, "Team A")},
			{ID: uuid.NewString(), Side: SideB, Name: nameOr(p.TeamBName, "Team B")},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, s.db, m); err != nil {
		return nil, err
	}

	log.Info("Match created", "match_id", m.ID, "organizer_id", m.OrganizerID, "status", m.Status)
	return s.Get(ctx, m.ID)
}

// Get returns a match with its roster.
func (s *Service) Get(ctx context.Context, matchID string) (*Details, error) {
	m, err := s.store.Get(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}
	roster, err := s.store.Roster(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}
	return &Details{Match: *m, Roster: roster}, nil
}

// Publish opens a draft match for joining.
func (s *Service) Publish(ctx context.Context, matchID, actorID string) (*Match, error) {
	return s.transition(ctx, matchID, actorID, TransitionPublish, nil)
}

// Close freezes the roster. Each team needs the configured minimum of
// confirmed players.
func (s *Service) Close(ctx context.Context, matchID, actorID string) (*Match, error) {
	return s.transition(ctx, matchID, actorID, TransitionClose, func(tx *sql.Tx, m *Match) error {
		roster, err := s.store.Roster(ctx, tx, matchID)
		if err != nil {
			return err
		}
		teams := confirmedTeams(roster)
		for _, team := range []struct {
			side    Side
			players []string
		}{{SideA, teams.A}, {SideB, teams.B}} {
			if len(team.players) < s.roster.MinConfirmedPerTeam {
				return apperr.New(apperr.ErrInvalidState, "team %s has %d confirmed players, %d required to close", team.side, len(team.players), s.roster.MinConfirmedPerTeam)
			}
		}
		return nil
	})
}

// Cancel ends a match without touching ratings. Cancelling a cancelled match
// succeeds without changing anything.
func (s *Service) Cancel(ctx context.Context, matchID, actorID string) (*Match, error) {
	var changed bool
	m, err := s.transition(ctx, matchID, actorID, TransitionCancel, func(*sql.Tx, *Match) error {
		changed = true
		return nil
	})
	if err != nil || !changed {
		return m, err
	}

	s.publish(ctx, pubsub.EventMatchCancelled, pubsub.MatchCancelledEvent{
		MatchID:     m.ID,
		OrganizerID: m.OrganizerID,
		ActorID:     actorID,
		Location:    m.Location,
		ScheduledAt: m.ScheduledAt.UnixMilli(),
		CancelledAt: m.CancelledAt.UnixMilli(),
	})
	return m, nil
}

// transition runs one lifecycle step under the match lock. guard runs inside
// the transaction after the state check and may veto the step; it is not
// called when the step is a tolerated no-op.
func (s *Service) transition(ctx context.Context, matchID, actorID string, t Transition, guard func(tx *sql.Tx, m *Match) error) (*Match, error) {
	if err := s.authorizeFor(ctx, matchID, actorID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lock.MatchKey(matchID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *Match
	var noop bool
	err = database.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		m, err := s.store.Get(ctx, tx, matchID)
		if err != nil {
			return err
		}
		next, skip, err := Next(m.Status, t)
		if err != nil {
			return err
		}
		if skip {
			noop, result = true, m
			return nil
		}
		if guard != nil {
			if err := guard(tx, m); err != nil {
				return err
			}
		}
		if err := s.moveStatus(ctx, tx, m, next); err != nil {
			return err
		}
		result, err = s.store.Get(ctx, tx, matchID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if noop {
		log.Info("Match transition was a no-op", "match_id", matchID, "transition", t, "status", result.Status)
	} else {
		s.metrics.IncMatchTransition(string(t))
		log.Info("Match transitioned", "match_id", matchID, "transition", t, "status", result.Status, "actor_id", actorID)
	}
	return result, nil
}

func (s *Service) moveStatus(ctx context.Context, tx *sql.Tx, m *Match, next Status) error {
	moved, err := s.store.UpdateStatus(ctx, tx, m.ID, m.Status, next, s.clock.Now())
	if err != nil {
		return err
	}
	if !moved {
		return apperr.New(apperr.ErrInvalidState, "match %s changed concurrently", m.ID)
	}
	return nil
}

func (s *Service) authorizeFor(ctx context.Context, matchID, actorID string) error {
	m, err := s.store.Get(ctx, s.db, matchID)
	if err != nil {
		return err
	}
	return authz.Require(ctx, s.authz, actorID, m.OrganizerID)
}

// publish sends an event after its transaction committed. Failures are
// logged and counted; the committed transition stands.
func (s *Service) publish(ctx context.Context, topic pubsub.EventType, event any) {
	if err := s.publisher.SendMessage(ctx, topic, event); err != nil {
		s.metrics.IncEventsPublishFailed()
		log.Error("Failed to publish event", "topic", topic, "error", err)
		return
	}
	s.metrics.IncEventsPublished()
}

// confirmedTeams splits the confirmed entries of a roster by side.
func confirmedTeams(roster []RosterEntry) rating.Teams {
	var teams rating.Teams
	for _, e := range roster {
		if e.Status != EntryConfirmed {
			continue
		}
		switch e.Side {
		case SideA:
			teams.A = append(teams.A, e.UserID)
		case SideB:
			teams.B = append(teams.B, e.UserID)
		}
	}
	return teams
}

func nameOr(name, def string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return def
}
