// Package authz answers whether a caller may manage an organizer's matches.
package authz

import "context"

// Checker is the single capability check consumed by the match and roster
// operations: is actor the organizer, or an active delegate of the organizer.
type Checker interface {
	CanManage(ctx context.Context, actorID, organizerID string) (bool, error)
}
