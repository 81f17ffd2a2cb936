package ports

import (
	"context"
	"time"
)

// ReleaseFunc gives back a session lock taken with SessionLocker.Lock.
type ReleaseFunc func(ctx context.Context) error

// SessionLocker serializes snapshot updates of one session across processes sharing
// a store. session.Manager takes the lock around each load-advance-save cycle; within
// one process its own mutexes already suffice.
type SessionLocker interface {
	// Lock blocks until the session's lock is held or ctx is done. The lock expires
	// after ttl so a crashed holder cannot wedge the session. The returned ReleaseFunc
	// must be called once the snapshot is saved.
	Lock(ctx context.Context, sessionID string, ttl time.Duration) (ReleaseFunc, error)
}
