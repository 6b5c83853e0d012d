package match

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/authz"
	"github.com/mauv0809/matchledger/internal/database"
	"github.com/mauv0809/matchledger/internal/lock"
	"github.com/mauv0809/matchledger/internal/pubsub"
	"github.com/mauv0809/matchledger/internal/rating"
)

// Finalize records the final scores, applies the rating changes of every
// confirmed player and marks the match FINALIZED. The state change, the goals
// and all ledger entries commit in one transaction; on any failure nothing is
// written and the match stays CLOSED.
func (s *Service) Finalize(ctx context.Context, matchID, actorID string, scores rating.Scores) (*FinalizeResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveFinalizeDuration(time.Since(start).Seconds())
	}()

	if err := scores.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorizeFor(ctx, matchID, actorID); err != nil {
		return nil, err
	}

	result, roster, err := s.commitResult(ctx, matchID, scores)
	if err != nil {
		return nil, err
	}

	s.labelChanges(ctx, result.Changes)
	s.metrics.IncMatchTransition(string(TransitionFinalize))
	s.metrics.AddLedgerEntries(string(rating.ReasonMatchResult), len(result.Changes))
	log.Info("Match finalized", "match_id", matchID, "score", scoreLabel(scores), "ledger_entries", len(result.Changes))

	// Locks are released by now; in-process delivery may call out to Slack.
	s.publish(ctx, pubsub.EventMatchFinalized, finalizedEvent(*result, roster))
	return result, nil
}

// commitResult applies a result under the match lock and the rating locks of
// every confirmed player, all released on return.
func (s *Service) commitResult(ctx context.Context, matchID string, scores rating.Scores) (*FinalizeResult, []RosterEntry, error) {
	unlockMatch, err := s.locker.Lock(ctx, lock.MatchKey(matchID))
	if err != nil {
		return nil, nil, err
	}
	defer unlockMatch()

	// The roster cannot change while the match lock is held, so the rating
	// keys taken here cover everyone the transaction will write.
	roster, err := s.store.Roster(ctx, s.db, matchID)
	if err != nil {
		return nil, nil, err
	}
	teams := confirmedTeams(roster)
	keys := make([]string, 0, len(teams.A)+len(teams.B))
	for _, id := range append(append([]string{}, teams.A...), teams.B...) {
		keys = append(keys, lock.RatingKey(id))
	}
	unlockRatings, err := lock.LockAll(ctx, s.locker, keys...)
	if err != nil {
		return nil, nil, err
	}
	defer unlockRatings()

	var result FinalizeResult
	err = database.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		m, err := s.store.Get(ctx, tx, matchID)
		if err != nil {
			return err
		}
		next, _, err := Next(m.Status, TransitionFinalize)
		if err != nil {
			return err
		}

		changes, err := s.project(ctx, tx, teams, scores)
		if err != nil {
			return err
		}

		if err := s.moveStatus(ctx, tx, m, next); err != nil {
			return err
		}
		if err := s.store.SetGoals(ctx, tx, m.Slot(SideA).ID, scores.TeamA); err != nil {
			return err
		}
		if err := s.store.SetGoals(ctx, tx, m.Slot(SideB).ID, scores.TeamB); err != nil {
			return err
		}

		for _, c := range changes {
			if _, err := s.ledger.Append(ctx, tx, rating.MatchResultEntry(c.UserID, matchID, c.After)); err != nil {
				return err
			}
			if err := s.members.SetCachedRating(ctx, tx, c.UserID, c.After); err != nil {
				return err
			}
		}

		finalized, err := s.store.Get(ctx, tx, matchID)
		if err != nil {
			return err
		}
		result = FinalizeResult{Match: finalized, Scores: scores, Changes: changes}
		return nil
	})
	if err != nil {
		if apperr.Kind(err) == nil {
			log.Error("Finalize rolled back", "match_id", matchID, "error", err)
		}
		return nil, nil, err
	}
	return &result, roster, nil
}

// Preview computes what Finalize would apply with the given scores against
// the current ledger without writing anything.
func (s *Service) Preview(ctx context.Context, matchID, actorID string, scores rating.Scores) (*PreviewResult, error) {
	if err := scores.Validate(); err != nil {
		return nil, err
	}
	m, err := s.store.Get(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(ctx, s.authz, actorID, m.OrganizerID); err != nil {
		return nil, err
	}
	if err := CheckPreviewable(m.Status); err != nil {
		return nil, err
	}

	roster, err := s.store.Roster(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}
	changes, err := s.project(ctx, s.db, confirmedTeams(roster), scores)
	if err != nil {
		return nil, err
	}
	s.labelChanges(ctx, changes)

	return &PreviewResult{
		MatchID: matchID,
		Scores:  scores,
		Outcome: scores.Outcome(),
		Changes: changes,
	}, nil
}

// project is the computation shared by Finalize and Preview.
func (s *Service) project(ctx context.Context, q database.Querier, teams rating.Teams, scores rating.Scores) ([]rating.RatingChange, error) {
	deltas := rating.ComputeDeltas(teams, scores, s.rules)
	if len(deltas) == 0 {
		return []rating.RatingChange{}, nil
	}
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	current, err := s.ledger.LatestForMany(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	return rating.Project(deltas, current, s.rules), nil
}

// labelChanges fills in display names. It runs outside any transaction and
// leaves names empty when the directory is unavailable.
func (s *Service) labelChanges(ctx context.Context, changes []rating.RatingChange) {
	if len(changes) == 0 {
		return
	}
	ids := make([]string, len(changes))
	for i, c := range changes {
		ids[i] = c.UserID
	}
	names, err := s.members.GetMembers(ctx, ids)
	if err != nil {
		log.Warn("Failed to label rating changes", "error", err)
		return
	}
	for i := range changes {
		changes[i].UserName = names[changes[i].UserID].Name
	}
}

func finalizedEvent(r FinalizeResult, roster []RosterEntry) pubsub.MatchFinalizedEvent {
	sides := make(map[string]Side, len(roster))
	for _, e := range roster {
		sides[e.UserID] = e.Side
	}
	m := r.Match
	event := pubsub.MatchFinalizedEvent{
		MatchID:     m.ID,
		OrganizerID: m.OrganizerID,
		Location:    m.Location,
		ScheduledAt: m.ScheduledAt.UnixMilli(),
		TeamAName:   m.Slot(SideA).Name,
		TeamBName:   m.Slot(SideB).Name,
		TeamAGoals:  r.Scores.TeamA,
		TeamBGoals:  r.Scores.TeamB,
		Changes:     make([]pubsub.RatingChange, 0, len(r.Changes)),
	}
	if m.FinalizedAt != nil {
		event.FinalizedAt = m.FinalizedAt.UnixMilli()
	}
	for _, c := range r.Changes {
		event.Changes = append(event.Changes, pubsub.RatingChange{
			UserID:   c.UserID,
			UserName: c.UserName,
			Side:     string(sides[c.UserID]),
			Before:   c.Before,
			After:    c.After,
		})
	}
	return event
}

func scoreLabel(s rating.Scores) string {
	return fmt.Sprintf("%d-%d", s.TeamA, s.TeamB)
}
