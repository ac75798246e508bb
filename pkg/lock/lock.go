// Package lock provides short-lived mutual exclusion keyed by string.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotOwner is returned by Unlock when the key is held under another token.
var ErrNotOwner = errors.New("lock not owned by this client")

// Locker acquires a key for at most ttl. TryLock never blocks; it returns
// false when the key is held elsewhere, and a token that Unlock must present.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error)
	Unlock(ctx context.Context, key, token string) error
}

type localEntry struct {
	token   string
	expires time.Time
}

// Local is an in-process Locker for single-instance deployments and tests.
type Local struct {
	mu    sync.Mutex
	held  map[string]localEntry
	clock func() time.Time
}

func NewLocal() *Local {
	return &Local{held: make(map[string]localEntry), clock: time.Now}
}

func (l *Local) TryLock(_ context.Context, key string, ttl time.Duration) (bool, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return false, "", nil
	}
	token := uuid.NewString()
	l.held[key] = localEntry{token: token, expires: now.Add(ttl)}
	return true, token, nil
}

func (l *Local) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.held[key]
	if !ok {
		return nil
	}
	if e.token != token {
		return ErrNotOwner
	}
	delete(l.held, key)
	return nil
}

// Noop always grants the lock.
type Noop struct{}

func (Noop) TryLock(context.Context, string, time.Duration) (bool, string, error) {
	return true, "", nil
}

func (Noop) Unlock(context.Context, string, string) error { return nil }
