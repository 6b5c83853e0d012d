package processor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mauv0809/matchledger/internal/pubsub"
)

var _ Store = (*store)(nil)

// NewStore creates a SQL backed notification Store.
func NewStore(db *sql.DB) Store {
	return &store{db: db}
}

func (s *store) ClaimNotification(ctx context.Context, matchID string, event pubsub.EventType, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (match_id, event, notified_at) VALUES (?, ?, ?)
		ON CONFLICT (match_id, event) DO NOTHING
	`, matchID, event, at.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to claim %s notification for %s: %w", event, matchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (s *store) ReleaseNotification(ctx context.Context, matchID string, event pubsub.EventType) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE match_id = ? AND event = ?`, matchID, event); err != nil {
		return fmt.Errorf("failed to release %s notification for %s: %w", event, matchID, err)
	}
	return nil
}

func (s *store) UpdateNotificationTimestamp(ctx context.Context, matchID string, event pubsub.EventType, messageTS string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET message_ts = ? WHERE match_id = ? AND event = ?`, messageTS, matchID, event)
	if err != nil {
		return fmt.Errorf("failed to store message timestamp for %s: %w", matchID, err)
	}
	return nil
}
