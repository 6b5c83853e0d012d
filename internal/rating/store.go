package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/clock"
	"github.com/mauv0809/matchledger/internal/database"
)

const ledgerTable = "rating_ledger"

var ledgerColumns = []string{"seq", "id", "user_id", "rating", "reason", "match_id", "actor_id", "note", "created_at"}

// store is the SQL ledger. It never issues UPDATE or DELETE against the
// ledger table; the schema rejects both as well.
type store struct {
	db    *sql.DB
	clock clock.Clock
}

// NewLedger creates a new SQL backed Ledger.
func NewLedger(db *sql.DB, c clock.Clock) Ledger {
	return &store{db: db, clock: c}
}

// Append validates e, stamps its id and time when unset and inserts it.
func (s *store) Append(ctx context.Context, q database.Querier, e Entry) (Entry, error) {
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock.Now()
	}
	e.CreatedAt = time.UnixMilli(e.CreatedAt.UnixMilli()).UTC()

	query, args, err := sq.Insert(ledgerTable).
		Columns("id", "user_id", "rating", "reason", "match_id", "actor_id", "note", "created_at").
		Values(e.ID, e.UserID, e.Rating, e.Reason, nullable(e.MatchID), nullable(e.ActorID), e.Note, e.CreatedAt.UnixMilli()).
		ToSql()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to build ledger insert: %w", err)
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to append ledger entry for %s: %w", e.UserID, err)
	}
	if e.Seq, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("failed to read ledger sequence: %w", err)
	}
	return e, nil
}

// LatestFor returns the user's last appended entry, or nil when there is none.
// Append order decides, so a clock stepping backwards cannot resurrect an
// older rating.
func (s *store) LatestFor(ctx context.Context, q database.Querier, userID string) (*Entry, error) {
	query, args, err := sq.Select(ledgerColumns...).
		From(ledgerTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("seq DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build latest query: %w", err)
	}

	e, err := scanEntry(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest rating for %s: %w", userID, err)
	}
	return e, nil
}

// LatestForMany returns the current rating of every listed user that has at
// least one entry.
func (s *store) LatestForMany(ctx context.Context, q database.Querier, userIDs []string) (map[string]float64, error) {
	current := make(map[string]float64, len(userIDs))
	if len(userIDs) == 0 {
		return current, nil
	}

	query, args, err := sq.Select("l.user_id", "l.rating").
		From(ledgerTable + " l").
		Where(sq.Eq{"l.user_id": userIDs}).
		Where("l.seq = (SELECT l2.seq FROM " + ledgerTable + " l2 WHERE l2.user_id = l.user_id ORDER BY l2.seq DESC LIMIT 1)").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build current ratings query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read current ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var r float64
		if err := rows.Scan(&id, &r); err != nil {
			return nil, fmt.Errorf("failed to scan current rating: %w", err)
		}
		current[id] = r
	}
	return current, rows.Err()
}

// HistoryFor returns one page of the user's entries, newest first, plus the
// total number of entries matching the filter.
func (s *store) HistoryFor(ctx context.Context, userID string, f HistoryFilter) ([]Entry, int, error) {
	f = normalizePage(f)

	where := sq.And{sq.Eq{"user_id": userID}}
	if f.MatchID != "" {
		where = append(where, sq.Eq{"match_id": f.MatchID})
	}
	if f.Reason != "" {
		where = append(where, sq.Eq{"reason": f.Reason})
	}
	if !f.From.IsZero() {
		where = append(where, sq.GtOrEq{"created_at": f.From.UnixMilli()})
	}
	if !f.To.IsZero() {
		where = append(where, sq.LtOrEq{"created_at": f.To.UnixMilli()})
	}

	countQuery, countArgs, err := sq.Select("COUNT(*)").From(ledgerTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build history count: %w", err)
	}
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count history for %s: %w", userID, err)
	}

	query, args, err := sq.Select(ledgerColumns...).
		From(ledgerTable).
		Where(where).
		OrderBy("created_at DESC", "seq DESC").
		Limit(uint64(f.PageSize)).
		Offset(uint64((f.Page - 1) * f.PageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build history query: %w", err)
	}

	entries, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read history for %s: %w", userID, err)
	}
	return entries, total, nil
}

// AllFor returns the user's full ledger in append order.
func (s *store) AllFor(ctx context.Context, userID string) ([]Entry, error) {
	query, args, err := sq.Select(ledgerColumns...).
		From(ledgerTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger query: %w", err)
	}
	entries, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger for %s: %w", userID, err)
	}
	return entries, nil
}

// AtDate returns the most recent entry at or before at. A user with no entry
// by then has no rating, which is reported as NotFound rather than zero.
func (s *store) AtDate(ctx context.Context, userID string, at time.Time) (*Entry, error) {
	query, args, err := sq.Select(ledgerColumns...).
		From(ledgerTable).
		Where(sq.Eq{"user_id": userID}).
		Where(sq.LtOrEq{"created_at": at.UnixMilli()}).
		OrderBy("created_at DESC", "seq DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build point-in-time query: %w", err)
	}

	e, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "user %s has no rating at %s", userID, at.UTC().Format(time.RFC3339))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rating at date for %s: %w", userID, err)
	}
	return e, nil
}

func (s *store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// scanEntry is a helper function to scan a single ledger row.
func scanEntry(scanner interface{ Scan(...any) error }) (*Entry, error) {
	var e Entry
	var matchID, actorID sql.NullString
	var createdAt int64
	if err := scanner.Scan(&e.Seq, &e.ID, &e.UserID, &e.Rating, &e.Reason, &matchID, &actorID, &e.Note, &createdAt); err != nil {
		return nil, err
	}
	e.MatchID = matchID.String
	e.ActorID = actorID.String
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &e, nil
}

func normalizePage(f HistoryFilter) HistoryFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
