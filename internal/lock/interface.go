// Package lock provides per-key critical sections for match and rating writes.
package lock

import (
	"context"
	"sort"
)

// Locker serializes work on a key. The returned unlock func releases the key
// and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// MatchKey is the lock key guarding a match's state and roster.
func MatchKey(matchID string) string {
	return "match:" + matchID
}

// RatingKey is the lock key guarding a user's read-latest/append sequence.
func RatingKey(userID string) string {
	return "rating:" + userID
}

// LockAll acquires every key in sorted order and releases them in reverse.
// Sorting gives concurrent callers the same acquisition order.
func LockAll(ctx context.Context, l Locker, keys ...string) (func(), error) {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, k := range sorted {
		unlock, err := l.Lock(ctx, k)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}
