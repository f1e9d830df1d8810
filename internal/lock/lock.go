// Package lock serializes tick runs, within one process or across processes
// sharing a Redis server.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Locker takes named, expiring locks without waiting.
type Locker interface {
	// TryLock attempts to take key for at most ttl. ok is false when another
	// holder has it; err is reserved for failures to reach the lock backend.
	// release must be called once the work is done and is safe to call after
	// the lock expired.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Local is an in-process Locker. Expired locks can be taken over, so a
// holder that never releases blocks others for at most ttl.
type Local struct {
	mu    sync.Mutex
	held  map[string]localHold
	clock func() time.Time
}

type localHold struct {
	token   string
	expires time.Time
}

// Compile-time check that Local implements Locker.
var _ Locker = (*Local)(nil)

// NewLocal creates an empty in-process locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]localHold), clock: time.Now}
}

func (l *Local) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if h, ok := l.held[key]; ok && now.Before(h.expires) {
		return nil, false, nil
	}

	token := newToken()
	l.held[key] = localHold{token: token, expires: now.Add(ttl)}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// Only the current holder may release.
			if h, ok := l.held[key]; ok && h.token == token {
				delete(l.held, key)
			}
		})
	}
	return release, true, nil
}

func newToken() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
