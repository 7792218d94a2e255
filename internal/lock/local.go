// Package lock provides an in-process implementation of per-key locks.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNotHeld is returned when releasing a key that is not locked.
var ErrNotHeld = errors.New("lock: key is not held")

type entry struct {
	mu   sync.Mutex
	held atomic.Bool
}

// Local manages one mutex per key. Locks are held until released; the ttl
// passed to AcquireLock is ignored since a crashed holder takes the process
// with it.
type Local struct {
	locks sync.Map // map[string]*entry
}

// NewLocal creates an empty lock manager.
func NewLocal() *Local {
	return &Local{}
}

// AcquireLock tries to take the lock for key without blocking.
func (l *Local) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if key == "" {
		return false, errors.New("lock: empty key")
	}
	v, _ := l.locks.LoadOrStore(key, &entry{})
	e := v.(*entry)
	if !e.mu.TryLock() {
		return false, nil
	}
	e.held.Store(true)
	return true, nil
}

// ReleaseLock releases the lock for key.
func (l *Local) ReleaseLock(_ context.Context, key string) error {
	v, ok := l.locks.Load(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotHeld, key)
	}
	e := v.(*entry)
	if !e.held.CompareAndSwap(true, false) {
		return fmt.Errorf("%w: %q", ErrNotHeld, key)
	}
	e.mu.Unlock()
	return nil
}
