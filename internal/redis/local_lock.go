package redisclient

import (
	"context"
	"sync"
	"time"
)

// localLocker serializes callers per key inside one process. It is the fallback
// when no Redis is configured and all writes flow through a single api-server.
type localLocker struct {
	mu   sync.Mutex
	keys map[string]*keyLock
	wait time.Duration
}

type keyLock struct {
	ch   chan struct{} // buffered(1): holding the token means holding the lock
	refs int
}

func NewLocalLocker(wait time.Duration) Locker {
	return &localLocker{
		keys: make(map[string]*keyLock),
		wait: wait,
	}
}

func (l *localLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	kl := l.ref(key)
	defer l.unref(key)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case kl.ch <- struct{}{}:
	case <-timer.C:
		return ErrLockNotAcquired
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-kl.ch }()

	return fn(ctx)
}

func (l *localLocker) ref(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.keys[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.keys[key] = kl
	}
	kl.refs++
	return kl
}

func (l *localLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl := l.keys[key]
	kl.refs--
	if kl.refs == 0 {
		delete(l.keys, key)
	}
}
