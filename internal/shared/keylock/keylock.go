// Package keylock provides one mutual exclusion region per key. Different keys
// never contend with each other and idle keys are released from the registry.
package keylock

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

type entry struct {
	sem  chan struct{}
	refs int
}

type Locker[K comparable] struct {
	entries *xsync.MapOf[K, *entry]
}

func New[K comparable]() *Locker[K] {
	return &Locker[K]{entries: xsync.NewMapOf[K, *entry]()}
}

// Lock blocks until the region for key is free or ctx is done. On success the
// returned func releases the region and must be called exactly once.
func (l *Locker[K]) Lock(ctx context.Context, key K) (func(), error) {
	e, _ := l.entries.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			old = &entry{sem: make(chan struct{}, 1)}
		}
		old.refs++
		return old, false
	})

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			l.release(key)
		}, nil
	case <-ctx.Done():
		l.release(key)
		return nil, ctx.Err()
	}
}

func (l *Locker[K]) release(key K) {
	l.entries.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			return nil, true
		}
		old.refs--
		return old, old.refs == 0
	})
}

// Len reports how many keys are currently held or awaited.
func (l *Locker[K]) Len() int {
	return l.entries.Size()
}
