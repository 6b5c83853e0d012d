package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/database"
	"github.com/mauv0809/matchledger/internal/rating"
)

// store handles all database operations for matches.
type store struct {
	db *sql.DB
}

var (
	_ Store                 = (*store)(nil)
	_ rating.MatchDescriber = (*store)(nil)
)

// NewStore creates a new SQL backed Store.
func NewStore(db *sql.DB) Store {
	return &store{db: db}
}

func (s *store) Create(ctx context.Context, q database.Querier, m *Match) error {
	var cost, currency any
	if m.Cost != nil {
		cost, currency = m.Cost.AmountCents, m.Cost.Currency
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO matches (id, organizer_id, scheduled_at, is_public, status, location, cost_cents, currency, team_capacity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.OrganizerID, m.ScheduledAt.UnixMilli(), m.IsPublic, m.Status, m.Location, cost, currency, m.TeamCapacity, m.CreatedAt.UnixMilli(), m.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert match %s: %w", m.ID, err)
	}

	for _, slot := range m.Slots {
		_, err := q.ExecContext(ctx, `INSERT INTO team_slots (id, match_id, side, name) VALUES (?, ?, ?, ?)`, slot.ID, m.ID, slot.Side, slot.Name)
		if err != nil {
			return fmt.Errorf("failed to insert team slot %s: %w", slot.Side, err)
		}
	}
	return nil
}

func (s *store) Get(ctx context.Context, q database.Querier, id string) (*Match, error) {
	var m Match
	var scheduledAt, createdAt, updatedAt int64
	var finalizedAt, cancelledAt, cost sql.NullInt64
	var currency sql.NullString

	err := q.QueryRowContext(ctx, `
		SELECT id, organizer_id, scheduled_at, is_public, status, location, cost_cents, currency, team_capacity, created_at, updated_at, finalized_at, cancelled_at
		FROM matches WHERE id = ?
	`, id).Scan(&m.ID, &m.OrganizerID, &scheduledAt, &m.IsPublic, &m.Status, &m.Location, &cost, &currency, &m.TeamCapacity, &createdAt, &updatedAt, &finalizedAt, &cancelledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "match %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}

	m.ScheduledAt = fromMillis(scheduledAt)
	m.CreatedAt = fromMillis(createdAt)
	m.UpdatedAt = fromMillis(updatedAt)
	m.FinalizedAt = nullableTime(finalizedAt)
	m.CancelledAt = nullableTime(cancelledAt)
	if cost.Valid {
		m.Cost = &Money{AmountCents: cost.Int64, Currency: currency.String}
	}

	rows, err := q.QueryContext(ctx, `SELECT id, side, name, goals FROM team_slots WHERE match_id = ? ORDER BY side`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get team slots of %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var slot TeamSlot
		var goals sql.NullInt64
		if err := rows.Scan(&slot.ID, &slot.Side, &slot.Name, &goals); err != nil {
			return nil, fmt.Errorf("failed to scan team slot: %w", err)
		}
		if goals.Valid {
			g := int(goals.Int64)
			slot.Goals = &g
		}
		m.Slots = append(m.Slots, slot)
	}
	return &m, rows.Err()
}

const rosterSelect = `
	SELECT r.match_id, r.user_id, COALESCE(u.name, ''), r.slot_id, s.side, r.status, r.joined_at
	FROM roster_entries r
	JOIN team_slots s ON s.id = r.slot_id
	LEFT JOIN members u ON u.id = r.user_id
`

func (s *store) Roster(ctx context.Context, q database.Querier, matchID string) ([]RosterEntry, error) {
	rows, err := q.QueryContext(ctx, rosterSelect+` WHERE r.match_id = ? ORDER BY s.side, r.joined_at, r.user_id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster of %s: %w", matchID, err)
	}
	defer rows.Close()

	entries := []RosterEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *store) GetEntry(ctx context.Context, q database.Querier, matchID, userID string) (*RosterEntry, error) {
	e, err := scanEntry(q.QueryRowContext(ctx, rosterSelect+` WHERE r.match_id = ? AND r.user_id = ?`, matchID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get roster entry: %w", err)
	}
	return e, nil
}

func (s *store) AddEntry(ctx context.Context, q database.Querier, e RosterEntry, capacity int) (bool, error) {
	var res sql.Result
	var err error
	if e.Status == EntryConfirmed {
		// Count and insert in one statement so the capacity check cannot be
		// separated from the write.
		res, err = q.ExecContext(ctx, `
			INSERT INTO roster_entries (match_id, user_id, slot_id, status, joined_at)
			SELECT ?, ?, ?, ?, ?
			WHERE (SELECT COUNT(*) FROM roster_entries WHERE slot_id = ? AND status = ?) < ?
		`, e.MatchID, e.UserID, e.SlotID, e.Status, e.JoinedAt.UnixMilli(), e.SlotID, EntryConfirmed, capacity)
	} else {
		res, err = q.ExecContext(ctx, `
			INSERT INTO roster_entries (match_id, user_id, slot_id, status, joined_at)
			VALUES (?, ?, ?, ?, ?)
		`, e.MatchID, e.UserID, e.SlotID, e.Status, e.JoinedAt.UnixMilli())
	}
	if err != nil {
		return false, fmt.Errorf("failed to add %s to match %s: %w", e.UserID, e.MatchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (s *store) DeleteEntry(ctx context.Context, q database.Querier, matchID, userID string) (bool, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM roster_entries WHERE match_id = ? AND user_id = ?`, matchID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove %s from match %s: %w", userID, matchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (s *store) UpdateStatus(ctx context.Context, q database.Querier, id string, from, to Status, at time.Time) (bool, error) {
	b := sq.Update("matches").
		Set("status", to).
		Set("updated_at", at.UnixMilli()).
		Where(sq.Eq{"id": id, "status": from})
	switch to {
	case StatusFinalized:
		b = b.Set("finalized_at", at.UnixMilli())
	case StatusCancelled:
		b = b.Set("cancelled_at", at.UnixMilli())
	}

	query, args, err := b.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build status update: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to move match %s to %s: %w", id, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (s *store) SetGoals(ctx context.Context, q database.Querier, slotID string, goals int) error {
	if _, err := q.ExecContext(ctx, `UPDATE team_slots SET goals = ? WHERE id = ?`, goals, slotID); err != nil {
		return fmt.Errorf("failed to record goals for slot %s: %w", slotID, err)
	}
	return nil
}

// DescribeMatches labels matches from userID's point of view, e.g.
// "Riverside on 2026-03-01: 3-1 win".
func (s *store) DescribeMatches(ctx context.Context, userID string, matchIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}

	query, args, err := sq.Select("m.id", "m.location", "m.scheduled_at", "sa.goals", "sb.goals", "su.side").
		From("matches m").
		Join("team_slots sa ON sa.match_id = m.id AND sa.side = 'A'").
		Join("team_slots sb ON sb.match_id = m.id AND sb.side = 'B'").
		LeftJoin("roster_entries r ON r.match_id = m.id AND r.user_id = ?", userID).
		LeftJoin("team_slots su ON su.id = r.slot_id").
		Where(sq.Eq{"m.id": matchIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build describe query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to describe matches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, location string
		var scheduledAt int64
		var goalsA, goalsB sql.NullInt64
		var side sql.NullString
		if err := rows.Scan(&id, &location, &scheduledAt, &goalsA, &goalsB, &side); err != nil {
			return nil, fmt.Errorf("failed to scan match description: %w", err)
		}
		out[id] = describe(location, fromMillis(scheduledAt), goalsA, goalsB, Side(side.String))
	}
	return out, rows.Err()
}

func describe(location string, at time.Time, goalsA, goalsB sql.NullInt64, side Side) string {
	label := at.Format("2006-01-02")
	if location != "" {
		label = location + " on " + label
	}
	if !goalsA.Valid || !goalsB.Valid {
		return label
	}

	own, other := goalsA.Int64, goalsB.Int64
	switch side {
	case SideA:
	case SideB:
		own, other = other, own
	default:
		return fmt.Sprintf("%s: %d-%d", label, goalsA.Int64, goalsB.Int64)
	}

	result := "draw"
	if own > other {
		result = "win"
	} else if own < other {
		result = "loss"
	}
	return fmt.Sprintf("%s: %d-%d %s", label, own, other, result)
}

// scanEntry is a helper function to scan a single roster row.
func scanEntry(scanner interface{ Scan(...any) error }) (*RosterEntry, error) {
	var e RosterEntry
	var joinedAt int64
	if err := scanner.Scan(&e.MatchID, &e.UserID, &e.UserName, &e.SlotID, &e.Side, &e.Status, &joinedAt); err != nil {
		return nil, err
	}
	e.JoinedAt = fromMillis(joinedAt)
	return &e, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullableTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}
