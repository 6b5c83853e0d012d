package rating

import (
	"context"
	"database/sql"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/club"
	"github.com/mauv0809/matchledger/internal/database"
	"github.com/mauv0809/matchledger/internal/lock"
	"github.com/mauv0809/matchledger/internal/metrics"
)

// Service answers rating queries and records ratings that do not come from
// a match result.
type Service struct {
	db      *sql.DB
	ledger  Ledger
	members club.ClubStore
	matches MatchDescriber
	locker  lock.Locker
	rules   Rules
	metrics metrics.Metrics
}

// NewService creates a rating Service. matches may be nil, in which case
// trend points carry no match description.
func NewService(db *sql.DB, ledger Ledger, members club.ClubStore, matches MatchDescriber, locker lock.Locker, rules Rules, m metrics.Metrics) *Service {
	return &Service{
		db:      db,
		ledger:  ledger,
		members: members,
		matches: matches,
		locker:  locker,
		rules:   rules,
		metrics: m,
	}
}

// Rules returns the rules the service applies.
func (s *Service) Rules() Rules {
	return s.rules
}

// History returns one page of the user's ledger labelled with display names.
func (s *Service) History(ctx context.Context, userID string, f HistoryFilter) (HistoryPage, error) {
	member, err := s.members.GetMember(ctx, userID)
	if err != nil {
		return HistoryPage{}, err
	}
	if f.Reason != "" && !f.Reason.Valid() {
		return HistoryPage{}, apperr.New(apperr.ErrValidation, "unknown change reason %q", f.Reason)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return HistoryPage{}, apperr.New(apperr.ErrValidation, "date range starts after it ends")
	}

	f = normalizePage(f)
	entries, total, err := s.ledger.HistoryFor(ctx, userID, f)
	if err != nil {
		return HistoryPage{}, err
	}

	var actorIDs []string
	for _, e := range entries {
		if e.ActorID != "" {
			actorIDs = append(actorIDs, e.ActorID)
		}
	}
	actors, err := s.members.GetMembers(ctx, actorIDs)
	if err != nil {
		return HistoryPage{}, err
	}

	page := HistoryPage{
		Entries:  make([]LabelledEntry, 0, len(entries)),
		Total:    total,
		Page:     f.Page,
		PageSize: f.PageSize,
	}
	for _, e := range entries {
		page.Entries = append(page.Entries, LabelledEntry{
			Entry:     e,
			UserName:  member.Name,
			ActorName: actors[e.ActorID].Name,
		})
	}
	return page, nil
}

// Statistics summarises the user's full ledger. A user without any entry
// has no statistics and gets NotFound.
func (s *Service) Statistics(ctx context.Context, userID string) (Stats, error) {
	member, err := s.members.GetMember(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	entries, err := s.ledger.AllFor(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	if len(entries) == 0 {
		return Stats{}, apperr.New(apperr.ErrNotFound, "user %s has no rating history", userID)
	}

	st := ComputeStats(entries)
	st.UserName = member.Name
	return st, nil
}

// Trend returns the user's rating time series, oldest first. With lastN > 0
// only the last lastN match results are returned.
func (s *Service) Trend(ctx context.Context, userID string, lastN int) ([]TrendPoint, error) {
	if _, err := s.members.GetMember(ctx, userID); err != nil {
		return nil, err
	}
	if lastN < 0 {
		return nil, apperr.New(apperr.ErrValidation, "last must be non-negative")
	}
	entries, err := s.ledger.AllFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	var descriptions map[string]string
	if ids := matchIDs(entries); len(ids) > 0 && s.matches != nil {
		descriptions, err = s.matches.DescribeMatches(ctx, userID, ids)
		if err != nil {
			// Descriptions are cosmetic; the series is still correct without them.
			log.Warn("Failed to describe trend matches", "user_id", userID, "error", err)
		}
	}
	return BuildTrend(entries, lastN, descriptions), nil
}

// RatingAt returns the entry in force at the given instant.
func (s *Service) RatingAt(ctx context.Context, userID string, at time.Time) (*Entry, error) {
	if _, err := s.members.GetMember(ctx, userID); err != nil {
		return nil, err
	}
	return s.ledger.AtDate(ctx, userID, at)
}

// AdjustParams describe a manual rating correction. Exactly one of Rating
// (absolute) and Delta (relative, clamped) must be set.
type AdjustParams struct {
	UserID  string
	ActorID string
	Rating  *float64
	Delta   *float64
	Note    string
}

// Adjust appends a manual adjustment entry and updates the cached rating in
// the same transaction. Only organizers and admins may adjust ratings.
func (s *Service) Adjust(ctx context.Context, p AdjustParams) (RatingChange, error) {
	if (p.Rating == nil) == (p.Delta == nil) {
		return RatingChange{}, apperr.New(apperr.ErrValidation, "exactly one of rating and delta is required")
	}
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > s.rules.UpperBound) {
		return RatingChange{}, apperr.New(apperr.ErrValidation, "rating must be within [0, %g]", s.rules.UpperBound)
	}

	actor, err := s.members.GetMember(ctx, p.ActorID)
	if err != nil || !actor.Role.CanAdjustRatings() {
		return RatingChange{}, apperr.New(apperr.ErrUnauthorized, "user %q may not adjust ratings", p.ActorID)
	}
	target, err := s.members.GetMember(ctx, p.UserID)
	if err != nil {
		return RatingChange{}, err
	}

	unlock, err := s.locker.Lock(ctx, lock.RatingKey(p.UserID))
	if err != nil {
		return RatingChange{}, err
	}
	defer unlock()

	var change RatingChange
	err = database.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		before := s.rules.Baseline
		latest, err := s.ledger.LatestFor(ctx, tx, p.UserID)
		if err != nil {
			return err
		}
		if latest != nil {
			before = latest.Rating
		}

		after := Clamp(derefOr(p.Rating, 0), s.rules)
		if p.Delta != nil {
			after = Apply(before, *p.Delta, s.rules)
		}

		if _, err := s.ledger.Append(ctx, tx, ManualAdjustmentEntry(p.UserID, p.ActorID, p.Note, after)); err != nil {
			return err
		}
		if err := s.members.SetCachedRating(ctx, tx, p.UserID, after); err != nil {
			return err
		}
		change = newChange(p.UserID, before, after)
		change.UserName = target.Name
		return nil
	})
	if err != nil {
		return RatingChange{}, err
	}

	s.metrics.AddLedgerEntries(string(ReasonManualAdjustment), 1)
	log.Info("Rating adjusted", "user_id", p.UserID, "actor_id", p.ActorID, "before", change.Before, "after", change.After)
	return change, nil
}

// Import seeds a rating from an external source.
func (s *Service) Import(ctx context.Context, userID string, value float64) (Entry, error) {
	if value < 0 || value > s.rules.UpperBound {
		return Entry{}, apperr.New(apperr.ErrValidation, "rating must be within [0, %g]", s.rules.UpperBound)
	}
	if _, err := s.members.GetMember(ctx, userID); err != nil {
		return Entry{}, err
	}

	unlock, err := s.locker.Lock(ctx, lock.RatingKey(userID))
	if err != nil {
		return Entry{}, err
	}
	defer unlock()

	var appended Entry
	err = database.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		e, err := s.ledger.Append(ctx, tx, ImportEntry(userID, value))
		if err != nil {
			return err
		}
		appended = e
		return s.members.SetCachedRating(ctx, tx, userID, value)
	})
	if err != nil {
		return Entry{}, err
	}
	s.metrics.AddLedgerEntries(string(ReasonImport), 1)
	return appended, nil
}

// Leaderboard returns the best rated members.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]club.Member, error) {
	return s.members.Leaderboard(ctx, limit)
}

func derefOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
