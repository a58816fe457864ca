// Package lock provides keyed mutual exclusion for request-scoped
// read-modify-write sequences.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when the context ends before the lock is free.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker acquires an exclusive lock on key. The returned release func must be
// called exactly once. ttl bounds how long a crashed holder can keep the key;
// in-process implementations may ignore it.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
