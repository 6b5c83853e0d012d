package club

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/matchledger/internal/apperr"
	"github.com/mauv0809/matchledger/internal/clock"
	"github.com/mauv0809/matchledger/internal/database"
)

// New creates a new ClubStore.
func New(db *sql.DB, c clock.Clock) ClubStore {
	return &store{
		db:    db,
		clock: c,
	}
}

// UpsertMember inserts a member or updates its name and role. The cached
// rating is never touched here.
func (s *store) UpsertMember(ctx context.Context, member Member) error {
	if member.ID == "" || strings.TrimSpace(member.Name) == "" {
		return apperr.New(apperr.ErrValidation, "member id and name are required")
	}
	if member.Role == "" {
		member.Role = RolePlayer
	}
	if !member.Role.Valid() {
		return apperr.New(apperr.ErrValidation, "unknown role %q", member.Role)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, name, role, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role
	`, member.ID, member.Name, member.Role, s.clock.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert member %s: %w", member.ID, err)
	}
	return nil
}

// GetMember returns a single member or a NotFound error.
func (s *store) GetMember(ctx context.Context, id string) (*Member, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, role, rating, created_at FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "user %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member %s: %w", id, err)
	}
	return m, nil
}

// GetMembers looks up several members at once. Unknown ids are simply absent
// from the result.
func (s *store) GetMembers(ctx context.Context, ids []string) (map[string]Member, error) {
	members := make(map[string]Member, len(ids))
	if len(ids) == 0 {
		return members, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, name, role, rating, created_at FROM members WHERE id IN (%s)`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			log.Error("Failed to scan member row", "error", err)
			continue
		}
		members[m.ID] = *m
	}
	return members, rows.Err()
}

// Leaderboard returns rated members ordered by cached rating, highest first.
func (s *store) Leaderboard(ctx context.Context, limit int) ([]Member, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, role, rating, created_at
		FROM members
		WHERE rating IS NOT NULL
		ORDER BY rating DESC, name ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *store) SetCachedRating(ctx context.Context, q database.Querier, userID string, rating float64) error {
	res, err := q.ExecContext(ctx, `UPDATE members SET rating = ? WHERE id = ?`, rating, userID)
	if err != nil {
		return fmt.Errorf("failed to cache rating for %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.ErrNotFound, "user %s not found", userID)
	}
	return nil
}

// scanMember is a helper function to scan a single member row.
func scanMember(scanner interface{ Scan(...any) error }) (*Member, error) {
	var m Member
	var rating sql.NullFloat64
	var createdAt int64
	if err := scanner.Scan(&m.ID, &m.Name, &m.Role, &rating, &createdAt); err != nil {
		return nil, err
	}
	if rating.Valid {
		r := rating.Float64
		m.Rating = &r
	}
	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &m, nil
}
