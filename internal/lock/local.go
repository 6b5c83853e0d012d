package lock

import (
	"context"
	"fmt"
	"sync"
)

type localEntry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex. Entries are dropped once no caller
// holds or waits on them.
type Local struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

// NewLocal creates an in-process Locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*localEntry)}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *Local) release(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
